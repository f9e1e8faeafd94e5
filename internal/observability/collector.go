// Package observability provides metrics collection and tracing for CLI operations.
package observability

import (
	"fmt"
	"sync"
	"time"
)

// RequestMetrics holds timing and status information for a single HTTP request.
type RequestMetrics struct {
	Method     string
	URL        string
	Attempt    int
	StatusCode int
	Duration   time.Duration
	Retryable  bool
	Error      error
}

// OperationMetrics holds timing information for a dispatched action.
type OperationMetrics struct {
	Resource   string
	Action     string
	IsMutation bool
	Duration   time.Duration
	Error      error
}

// RetryMetrics records a retry event.
type RetryMetrics struct {
	Method  string
	URL     string
	Attempt int
	Error   error
}

// SessionMetrics aggregates metrics for an entire CLI session.
type SessionMetrics struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalRequests   int
	FailedRequests  int
	TotalOperations int
	FailedOps       int
	Mutations       int
	TotalRetries    int
	TotalLatency    time.Duration
}

// SessionCollector accumulates metrics across a CLI session.
// It is safe for concurrent use and uses counters instead of unbounded slices.
type SessionCollector struct {
	mu sync.Mutex

	startTime       time.Time
	totalRequests   int
	failedRequests  int
	totalOperations int
	failedOps       int
	mutations       int
	totalRetries    int
	totalLatency    time.Duration
}

// NewSessionCollector creates a new SessionCollector.
func NewSessionCollector() *SessionCollector {
	return &SessionCollector{
		startTime: time.Now(),
	}
}

// RecordRequest records metrics for an HTTP request.
func (c *SessionCollector) RecordRequest(m RequestMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
	c.totalLatency += m.Duration
	if m.Error != nil || m.StatusCode >= 400 {
		c.failedRequests++
	}
}

// RecordOperation records metrics for a dispatched action.
func (c *SessionCollector) RecordOperation(m OperationMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalOperations++
	if m.IsMutation {
		c.mutations++
	}
	if m.Error != nil {
		c.failedOps++
	}
}

// RecordRetry records a retry event.
func (c *SessionCollector) RecordRetry(_ RetryMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRetries++
}

// Summary returns aggregated metrics for the session.
func (c *SessionCollector) Summary() SessionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SessionMetrics{
		StartTime:       c.startTime,
		EndTime:         time.Now(),
		TotalRequests:   c.totalRequests,
		FailedRequests:  c.failedRequests,
		TotalOperations: c.totalOperations,
		FailedOps:       c.failedOps,
		Mutations:       c.mutations,
		TotalRetries:    c.totalRetries,
		TotalLatency:    c.totalLatency,
	}
}

// Reset clears all collected metrics and resets the start time.
func (c *SessionCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.totalRequests = 0
	c.failedRequests = 0
	c.totalOperations = 0
	c.failedOps = 0
	c.mutations = 0
	c.totalRetries = 0
	c.totalLatency = 0
}

// ToMap converts the metrics to a JSON-friendly map for the response meta.
func (m SessionMetrics) ToMap() map[string]any {
	return map[string]any{
		"duration_ms":      m.EndTime.Sub(m.StartTime).Milliseconds(),
		"requests":         m.TotalRequests,
		"failed_requests":  m.FailedRequests,
		"operations":       m.TotalOperations,
		"failed_ops":       m.FailedOps,
		"mutations":        m.Mutations,
		"retries":          m.TotalRetries,
		"total_latency_ms": m.TotalLatency.Milliseconds(),
	}
}

// SessionMetricsFromMap rebuilds metrics from ToMap output, tolerating the
// float64 numbers produced by a JSON round-trip.
func SessionMetricsFromMap(m map[string]any) SessionMetrics {
	num := func(key string) int64 {
		switch v := m[key].(type) {
		case int:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
		return 0
	}
	start := time.Time{}
	return SessionMetrics{
		StartTime:       start,
		EndTime:         start.Add(time.Duration(num("duration_ms")) * time.Millisecond),
		TotalRequests:   int(num("requests")),
		FailedRequests:  int(num("failed_requests")),
		TotalOperations: int(num("operations")),
		FailedOps:       int(num("failed_ops")),
		Mutations:       int(num("mutations")),
		TotalRetries:    int(num("retries")),
		TotalLatency:    time.Duration(num("total_latency_ms")) * time.Millisecond,
	}
}

// FormatParts renders the metrics as short human-readable fragments.
func (m SessionMetrics) FormatParts() []string {
	var parts []string

	duration := m.EndTime.Sub(m.StartTime)
	if duration < time.Second {
		parts = append(parts, fmt.Sprintf("%dms", duration.Milliseconds()))
	} else {
		parts = append(parts, fmt.Sprintf("%.1fs", duration.Seconds()))
	}

	switch {
	case m.TotalRequests == 1:
		parts = append(parts, "1 request")
	case m.TotalRequests > 1:
		parts = append(parts, fmt.Sprintf("%d requests", m.TotalRequests))
	}

	switch {
	case m.TotalRetries == 1:
		parts = append(parts, "1 retry")
	case m.TotalRetries > 1:
		parts = append(parts, fmt.Sprintf("%d retries", m.TotalRetries))
	}

	if m.FailedOps > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", m.FailedOps))
	}

	return parts
}
