package tracker

import (
	"sync"

	"github.com/SamuelRM25/codispro/pkg/metrics"
)

// Sink is anything capable of receiving a serialized event. Send must not
// block; it reports false when the event could not be accepted.
type Sink interface {
	ID() string
	Send(payload []byte) bool
}

// Broadcaster fans a serialized event out to every registered sink.
// Delivery is fire-and-forget: a sink that cannot accept the event is
// skipped, no acknowledgement and no retry.
type Broadcaster struct {
	mu      sync.Mutex
	sinks   map[string]Sink
	metrics *metrics.TrackerMetrics // Optional metrics
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(m *metrics.TrackerMetrics) *Broadcaster {
	return &Broadcaster{
		sinks:   make(map[string]Sink),
		metrics: m,
	}
}

// Register adds a sink to the fan-out set.
func (b *Broadcaster) Register(s Sink) {
	b.mu.Lock()
	b.sinks[s.ID()] = s
	b.mu.Unlock()
}

// Unregister removes a sink from the fan-out set.
func (b *Broadcaster) Unregister(id string) {
	b.mu.Lock()
	delete(b.sinks, id)
	b.mu.Unlock()
}

// Publish delivers the payload to every registered sink, including the
// originator. It returns the number of sinks that accepted the event.
func (b *Broadcaster) Publish(payload []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	for _, s := range b.sinks {
		if s.Send(payload) {
			delivered++
			continue
		}
		// Lagging observer: drop for this sink only.
		if b.metrics != nil {
			b.metrics.BroadcastsDropped.Inc()
		}
	}

	if b.metrics != nil {
		b.metrics.BroadcastsTotal.Inc()
	}

	return delivered
}

// Len returns the number of registered sinks.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sinks)
}
