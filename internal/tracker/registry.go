package tracker

import (
	"sort"
	"sync"
	"time"
)

// LastKnownPosition is the most recent accepted position for a subject with
// at least one open reporting connection. It is ephemeral and rebuilt from
// zero on restart.
type LastKnownPosition struct {
	CapturedAt time.Time `json:"capturedAt"`
	SubjectID  string    `json:"subjectId"`
	VehicleID  string    `json:"vehicleId,omitempty"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
}

// presence records which subject a connection last reported for.
type presence struct {
	subjectID string
	vehicleID string
}

// Registry is the concurrency-safe mapping of connection to subject and
// subject to last-known position. A subject stays present while at least one
// connection is still reporting for it; the position itself is
// last-write-wins across connections.
type Registry struct {
	mu        sync.Mutex
	conns     map[string]presence
	positions map[string]LastKnownPosition
	reporting map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[string]presence),
		positions: make(map[string]LastKnownPosition),
		reporting: make(map[string]int),
	}
}

// Upsert records an accepted update from the given connection, overwriting
// the subject's last-known position. A connection that switches subject
// releases its previous one.
func (r *Registry) Upsert(connID string, pos LastKnownPosition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.conns[connID]; ok {
		if prev.subjectID != pos.SubjectID {
			r.release(prev.subjectID)
			r.reporting[pos.SubjectID]++
		}
	} else {
		r.reporting[pos.SubjectID]++
	}

	r.conns[connID] = presence{subjectID: pos.SubjectID, vehicleID: pos.VehicleID}
	r.positions[pos.SubjectID] = pos
}

// Remove drops the connection's presence. It returns the subject the
// connection was reporting for and whether other connections still report it.
// ok is false if the connection never submitted an accepted update.
func (r *Registry) Remove(connID string) (subjectID string, stillReporting bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, found := r.conns[connID]
	if !found {
		return "", false, false
	}
	delete(r.conns, connID)
	return prev.subjectID, r.release(prev.subjectID), true
}

// release decrements a subject's reporting count, clearing its position when
// the last connection leaves. Caller must hold the lock.
func (r *Registry) release(subjectID string) bool {
	count := r.reporting[subjectID]
	if count <= 1 {
		delete(r.reporting, subjectID)
		delete(r.positions, subjectID)
		return false
	}
	r.reporting[subjectID] = count - 1
	return true
}

// Get returns the last-known position for a subject.
func (r *Registry) Get(subjectID string) (LastKnownPosition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.positions[subjectID]
	return pos, ok
}

// Snapshot returns the full last-known-position table, ordered by subject
// for stable output.
func (r *Registry) Snapshot() []LastKnownPosition {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]LastKnownPosition, 0, len(r.positions))
	for _, pos := range r.positions {
		snapshot = append(snapshot, pos)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].SubjectID < snapshot[j].SubjectID
	})
	return snapshot
}

// Subjects returns the number of subjects currently present.
func (r *Registry) Subjects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.positions)
}

// Connections returns the number of connections with a recorded presence.
func (r *Registry) Connections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
