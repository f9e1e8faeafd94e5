package resilience

import (
	"time"
)

// CircuitBreaker stops requests after repeated gateway failures and lets a
// few probes through once OpenTimeout has passed. State is persisted so the
// breaker survives between invocations.
type CircuitBreaker struct {
	config Config
	store  *Store
	now    func() time.Time
}

// NewCircuitBreaker creates a breaker; zero config fields take defaults.
func NewCircuitBreaker(store *Store, config Config) *CircuitBreaker {
	return &CircuitBreaker{
		config: config.withDefaults(),
		store:  store,
		now:    time.Now,
	}
}

// Allow reports whether a request may proceed. In half-open state it
// reserves a probe slot. Store errors allow the request.
func (cb *CircuitBreaker) Allow() (bool, error) {
	state, err := cb.store.Load()
	if err != nil {
		return true, nil
	}
	if state.Circuit.IsClosed() {
		return true, nil
	}

	now := cb.now()
	if state.Circuit.IsOpen() && now.Sub(state.Circuit.OpenedAt) < cb.config.OpenTimeout {
		return false, nil
	}

	var allowed bool
	err = cb.store.Update(func(s *State) error {
		c := &s.Circuit
		switch {
		case c.IsClosed():
			allowed = true
			return nil
		case c.IsOpen():
			if now.Sub(c.OpenedAt) < cb.config.OpenTimeout {
				return nil
			}
			c.State = CircuitHalfOpen
			c.Successes = 0
			c.Failures = 0
			c.HalfOpenAttempts = 0
		}

		if cb.staleAttempts(c, now) {
			c.HalfOpenAttempts = 0
		}
		if c.HalfOpenAttempts >= cb.config.HalfOpenMaxRequests {
			return nil
		}
		c.HalfOpenAttempts++
		c.HalfOpenLastAttemptAt = now
		s.UpdatedAt = now
		allowed = true
		return nil
	})
	if err != nil {
		return true, nil
	}
	return allowed, nil
}

// staleAttempts reports probe slots held by processes that never reported
// back, once no new slot has been reserved for OpenTimeout.
func (cb *CircuitBreaker) staleAttempts(c *CircuitState, now time.Time) bool {
	if c.HalfOpenAttempts < cb.config.HalfOpenMaxRequests || c.HalfOpenLastAttemptAt.IsZero() {
		return false
	}
	return now.Sub(c.HalfOpenLastAttemptAt) >= cb.config.OpenTimeout
}

// RecordSuccess records a successful request.
func (cb *CircuitBreaker) RecordSuccess() error {
	// Closed with no failures is the common case; skip the write.
	if state, err := cb.store.Load(); err == nil && state.Circuit.IsClosed() && state.Circuit.Failures == 0 {
		return nil
	}

	return cb.store.Update(func(s *State) error {
		c := &s.Circuit
		switch {
		case c.IsHalfOpen():
			if c.HalfOpenAttempts > 0 {
				c.HalfOpenAttempts--
			}
			c.Successes++
			if c.Successes >= cb.config.SuccessThreshold {
				*c = CircuitState{State: CircuitClosed, LastFailureAt: c.LastFailureAt}
			}
		case c.IsClosed():
			c.Failures = 0
		}
		s.UpdatedAt = cb.now()
		return nil
	})
}

// RecordFailure records a failed request.
func (cb *CircuitBreaker) RecordFailure() error {
	return cb.store.Update(func(s *State) error {
		c := &s.Circuit
		now := cb.now()
		c.LastFailureAt = now

		switch {
		case c.IsClosed():
			c.Failures++
			if c.Failures >= cb.config.FailureThreshold {
				c.State = CircuitOpen
				c.OpenedAt = now
			}
		case c.IsHalfOpen():
			c.State = CircuitOpen
			c.OpenedAt = now
			c.Successes = 0
			c.HalfOpenAttempts = 0
			c.HalfOpenLastAttemptAt = time.Time{}
		}
		s.UpdatedAt = now
		return nil
	})
}

// State returns the effective circuit state. An open circuit whose timeout
// has passed reports half-open.
func (cb *CircuitBreaker) State() (string, error) {
	state, err := cb.store.Load()
	if err != nil {
		return CircuitClosed, err
	}
	c := &state.Circuit
	if c.IsOpen() && cb.now().Sub(c.OpenedAt) >= cb.config.OpenTimeout {
		return CircuitHalfOpen, nil
	}
	if c.State == "" {
		return CircuitClosed, nil
	}
	return c.State, nil
}

// RetryIn returns how long an open circuit keeps rejecting requests.
func (cb *CircuitBreaker) RetryIn() time.Duration {
	state, err := cb.store.Load()
	if err != nil || !state.Circuit.IsOpen() {
		return 0
	}
	return max(0, cb.config.OpenTimeout-cb.now().Sub(state.Circuit.OpenedAt))
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() error {
	return cb.store.Update(func(s *State) error {
		s.Circuit = CircuitState{State: CircuitClosed}
		s.UpdatedAt = cb.now()
		return nil
	})
}
