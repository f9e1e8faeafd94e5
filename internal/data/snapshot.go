package data

import "time"

// SnapshotState represents the freshness state of a data snapshot.
type SnapshotState int

const (
	StateEmpty   SnapshotState = iota // no data yet
	StateFresh                        // data within TTL
	StateStale                        // data past TTL, usable while revalidating
	StateLoading                      // request in flight (may have stale data)
	StateError                        // request failed (may have stale data)
)

func (s SnapshotState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot holds typed data along with its request state.
// Err and Success are never both set.
type Snapshot[T any] struct {
	Data      T
	State     SnapshotState
	Err       error
	Success   string
	FetchedAt time.Time
	HasData   bool // distinguishes zero-value T from "never fetched"
}

// Fresh returns true if the snapshot has data in the Fresh state.
func (s Snapshot[T]) Fresh() bool {
	return s.HasData && s.State == StateFresh
}

// Usable returns true if the snapshot has data, regardless of freshness.
func (s Snapshot[T]) Usable() bool {
	return s.HasData
}

// Loading returns true if a request is in flight.
func (s Snapshot[T]) Loading() bool {
	return s.State == StateLoading
}
