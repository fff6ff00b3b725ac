package processing

import (
	"sync"
	"sync/atomic"

	"github.com/sharminesan/tb-backend/pkg/config"
)

// TopicEntry is the routing record for one inbound telemetry topic.
type TopicEntry struct {
	Name     string
	Kind     string
	Priority Priority

	received uint64
	dropped  uint64
}

// TopicStats is a snapshot of a topic's counters.
type TopicStats struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Priority string `json:"priority"`
	Received uint64 `json:"received"`
	Dropped  uint64 `json:"dropped"`
}

// Registry maps inbound topic names to their kind and processing priority.
// The topic set is fixed at startup; only the counters mutate afterwards.
type Registry struct {
	mu     sync.RWMutex
	topics map[string]*TopicEntry
}

// NewRegistry builds the registry from the configured telemetry topics.
func NewRegistry(topics []config.TelemetryTopic) *Registry {
	r := &Registry{topics: make(map[string]*TopicEntry, len(topics))}
	for _, t := range topics {
		r.topics[t.Name] = &TopicEntry{
			Name:     t.Name,
			Kind:     t.Kind,
			Priority: ParsePriority(t.Priority),
		}
	}
	return r
}

// Lookup returns the entry for a topic name.
func (r *Registry) Lookup(name string) (*TopicEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.topics[name]
	return entry, ok
}

// Stats returns counter snapshots for every registered topic.
func (r *Registry) Stats() []TopicStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make([]TopicStats, 0, len(r.topics))
	for _, entry := range r.topics {
		stats = append(stats, TopicStats{
			Name:     entry.Name,
			Kind:     entry.Kind,
			Priority: entry.Priority.String(),
			Received: atomic.LoadUint64(&entry.received),
			Dropped:  atomic.LoadUint64(&entry.dropped),
		})
	}
	return stats
}

func (e *TopicEntry) markReceived() {
	atomic.AddUint64(&e.received, 1)
}

func (e *TopicEntry) markDropped() {
	atomic.AddUint64(&e.dropped, 1)
}
