package data

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// CollectionStats is the fetch record of one cached collection.
type CollectionStats struct {
	Key     string
	State   SnapshotState
	Fetches int
	Errors  int
	Latency time.Duration // sum over all fetches
}

// CacheSummary is what --stats reports about the cache.
type CacheSummary struct {
	Collections []CollectionStats
	Fetches     int
	Errors      int
	P50Latency  time.Duration
}

// ToMap converts the summary for the response meta.
func (s CacheSummary) ToMap() map[string]any {
	cols := make([]map[string]any, 0, len(s.Collections))
	for _, c := range s.Collections {
		cols = append(cols, map[string]any{
			"key":        c.Key,
			"state":      c.State.String(),
			"fetches":    c.Fetches,
			"errors":     c.Errors,
			"latency_ms": c.Latency.Milliseconds(),
		})
	}
	return map[string]any{
		"fetches":        s.Fetches,
		"errors":         s.Errors,
		"p50_latency_ms": s.P50Latency.Milliseconds(),
		"collections":    cols,
	}
}

// PoolMetrics collects fetch telemetry from the pools of one Hub.
type PoolMetrics struct {
	mu        sync.Mutex
	stats     map[string]*CollectionStats
	latencies []time.Duration // most recent fetches, capped at maxLatencies
	states    map[string]func() SnapshotState
}

const maxLatencies = 100

// NewPoolMetrics creates an empty collector.
func NewPoolMetrics() *PoolMetrics {
	return &PoolMetrics{
		stats:  make(map[string]*CollectionStats),
		states: make(map[string]func() SnapshotState),
	}
}

// Record adds one completed fetch of the collection at key.
func (m *PoolMetrics) Record(key string, d time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stats[key]
	if !ok {
		s = &CollectionStats{Key: key}
		m.stats[key] = s
	}
	s.Fetches++
	s.Latency += d
	if err != nil {
		s.Errors++
		return
	}
	if len(m.latencies) == maxLatencies {
		m.latencies = m.latencies[1:]
	}
	m.latencies = append(m.latencies, d)
}

// track reports the live state of the collection at key in summaries.
func (m *PoolMetrics) track(key string, state func() SnapshotState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = state
}

// forget drops a cleared collection.
func (m *PoolMetrics) forget(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	delete(m.stats, key)
}

// Summary returns the collections fetched so far, sorted by key, with
// session totals. State callbacks run without the metrics lock held since
// they take pool locks.
func (m *PoolMetrics) Summary() CacheSummary {
	m.mu.Lock()
	var sum CacheSummary
	states := make(map[string]func() SnapshotState, len(m.states))
	for k, f := range m.states {
		states[k] = f
	}
	for _, s := range m.stats {
		sum.Collections = append(sum.Collections, *s)
	}
	latencies := slices.Clone(m.latencies)
	m.mu.Unlock()

	for i := range sum.Collections {
		c := &sum.Collections[i]
		if f, ok := states[c.Key]; ok {
			c.State = f()
		}
		sum.Fetches += c.Fetches
		sum.Errors += c.Errors
	}
	slices.SortFunc(sum.Collections, func(a, b CollectionStats) int { return strings.Compare(a.Key, b.Key) })

	if len(latencies) > 0 {
		slices.Sort(latencies)
		sum.P50Latency = latencies[len(latencies)/2]
	}
	return sum
}
