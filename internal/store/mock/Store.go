// Package mock provides mock implementations of the store package interfaces for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/SamuelRM25/codispro/internal/store"
)

// Store is a mock implementation of LocationStore for testing.
// It tracks method calls and allows configuring return values and behavior.
// When no behavior is configured it acts as an in-memory store.
type Store struct {
	mu sync.Mutex

	// AppendFunc is called when Append is invoked. If nil, the sample is
	// recorded in Samples and AppendError is returned.
	AppendFunc func(ctx context.Context, sample *store.LocationLog) error
	// AppendError is returned by Append if AppendFunc is nil.
	AppendError error
	// AppendCalls tracks all calls to Append with their arguments.
	AppendCalls []*store.LocationLog

	// QueryFunc is called when Query is invoked. If nil, Query filters the
	// in-memory Samples and returns QueryError.
	QueryFunc func(ctx context.Context, filter store.HistoryFilter) ([]store.LocationLog, error)
	// QueryError is returned by Query if QueryFunc is nil.
	QueryError error
	// QueryCalls tracks all calls to Query with their arguments.
	QueryCalls []store.HistoryFilter

	// DeleteFunc is called when DeleteOlderThan is invoked. If nil, matching
	// in-memory Samples are removed and DeleteError is returned.
	DeleteFunc func(ctx context.Context, cutoff time.Time) (int64, error)
	// DeleteError is returned by DeleteOlderThan if DeleteFunc is nil.
	DeleteError error
	// DeleteCalls tracks all calls to DeleteOlderThan with their arguments.
	DeleteCalls []time.Time

	// Samples is the in-memory sample log, oldest first.
	Samples []store.LocationLog

	nextID uint
}

// Ensure Store implements LocationStore.
var _ store.LocationStore = (*Store)(nil)

// Append records the sample in memory unless AppendFunc or AppendError is set.
func (m *Store) Append(ctx context.Context, sample *store.LocationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AppendCalls = append(m.AppendCalls, sample)

	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, sample)
	}
	if m.AppendError != nil {
		return m.AppendError
	}

	m.nextID++
	sample.ID = m.nextID
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now().UTC()
	}
	m.Samples = append(m.Samples, *sample)
	return nil
}

// Query filters the in-memory samples, newest first, unless QueryFunc is set.
func (m *Store) Query(ctx context.Context, filter store.HistoryFilter) ([]store.LocationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.QueryCalls = append(m.QueryCalls, filter)

	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, filter)
	}
	if m.QueryError != nil {
		return nil, m.QueryError
	}

	filter = filter.Normalize()

	var matched []store.LocationLog
	for i := len(m.Samples) - 1; i >= 0; i-- {
		s := m.Samples[i]
		if filter.SubjectID != "" && s.SubjectID != filter.SubjectID {
			continue
		}
		if filter.VehicleID != "" && s.VehicleID != filter.VehicleID {
			continue
		}
		matched = append(matched, s)
		if len(matched) >= filter.Limit {
			break
		}
	}
	return matched, nil
}

// DeleteOlderThan removes in-memory samples captured before the cutoff
// unless DeleteFunc is set.
func (m *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, cutoff)

	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, cutoff)
	}
	if m.DeleteError != nil {
		return 0, m.DeleteError
	}

	var kept []store.LocationLog
	var deleted int64
	for _, s := range m.Samples {
		if s.CapturedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	m.Samples = kept
	return deleted, nil
}

// DeleteCount returns the number of times DeleteOlderThan was called.
func (m *Store) DeleteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.DeleteCalls)
}

// SampleCount returns the number of samples currently held in memory.
func (m *Store) SampleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Samples)
}
