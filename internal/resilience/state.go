package resilience

import (
	"time"
)

// StateVersion is the current state schema version.
const StateVersion = 1

// State is the gateway health record shared by concurrent taskhub processes.
type State struct {
	Version int `json:"version"`

	Circuit CircuitState `json:"circuit"`

	// BlockedUntil is set from a Retry-After header. No request is sent
	// before it passes.
	BlockedUntil time.Time `json:"blocked_until"`

	UpdatedAt time.Time `json:"updated_at"`
}

// CircuitState tracks the circuit breaker.
type CircuitState struct {
	// State is "closed", "open" or "half_open".
	State string `json:"state"`

	// Failures counts consecutive failures while closed.
	Failures int `json:"failures"`

	// Successes counts consecutive successes while half-open.
	Successes int `json:"successes"`

	// HalfOpenAttempts counts probes in flight while half-open.
	HalfOpenAttempts int `json:"half_open_attempts,omitempty"`

	// HalfOpenLastAttemptAt is when the last probe slot was reserved.
	HalfOpenLastAttemptAt time.Time `json:"half_open_last_attempt_at"`

	LastFailureAt time.Time `json:"last_failure_at"`
	OpenedAt      time.Time `json:"opened_at"`
}

// Circuit states.
const (
	CircuitClosed   = "closed"
	CircuitOpen     = "open"
	CircuitHalfOpen = "half_open"
)

// IsClosed reports whether requests flow normally.
func (c *CircuitState) IsClosed() bool {
	return c.State == "" || c.State == CircuitClosed
}

// IsOpen reports whether requests fail fast.
func (c *CircuitState) IsOpen() bool {
	return c.State == CircuitOpen
}

// IsHalfOpen reports whether a limited number of probes may pass.
func (c *CircuitState) IsHalfOpen() bool {
	return c.State == CircuitHalfOpen
}

// BlockedFor returns how long the Retry-After window has left at now.
func (s *State) BlockedFor(now time.Time) time.Duration {
	if s.BlockedUntil.IsZero() || !now.Before(s.BlockedUntil) {
		return 0
	}
	return s.BlockedUntil.Sub(now)
}

// NewState returns a closed, unblocked state.
func NewState() *State {
	return &State{
		Version:   StateVersion,
		Circuit:   CircuitState{State: CircuitClosed},
		UpdatedAt: time.Now(),
	}
}
