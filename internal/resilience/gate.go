package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskhub/taskhub-cli/internal/output"
)

// Gate admits gateway calls through the circuit breaker and the Retry-After
// window, and feeds call outcomes back into both.
type Gate struct {
	breaker *CircuitBreaker
	store   *Store
	config  Config
	now     func() time.Time
}

// NewGate creates a gate persisting its state in store.
func NewGate(store *Store, config Config) *Gate {
	config = config.withDefaults()
	return &Gate{
		breaker: NewCircuitBreaker(store, config),
		store:   store,
		config:  config,
		now:     time.Now,
	}
}

// Breaker exposes the circuit breaker.
func (g *Gate) Breaker() *CircuitBreaker {
	return g.breaker
}

// BlockedFor returns how long the Retry-After window has left.
func (g *Gate) BlockedFor() time.Duration {
	state, err := g.store.Load()
	if err != nil {
		return 0
	}
	return state.BlockedFor(g.now())
}

// Reset closes the circuit and clears the Retry-After window.
func (g *Gate) Reset() error {
	return g.store.Clear()
}

// Admit returns an error when the call must not be sent. The Retry-After
// window is checked first so a rejected call never holds a probe slot.
func (g *Gate) Admit() error {
	if state, err := g.store.Load(); err == nil {
		if wait := state.BlockedFor(g.now()); wait > 0 {
			return output.ErrRateLimit(seconds(wait))
		}
	}

	allowed, _ := g.breaker.Allow()
	if !allowed {
		return &output.Error{
			Code:    output.CodeNetwork,
			Message: "Gateway unavailable",
			Hint:    fmt.Sprintf("Too many recent failures. Try again in %d seconds", seconds(g.breaker.RetryIn())),
		}
	}
	return nil
}

// Record feeds the outcome of an admitted call back into the gate.
func (g *Gate) Record(err error) {
	if err == nil {
		_ = g.breaker.RecordSuccess()
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}

	e := output.AsError(err)
	if e.Code == output.CodeRateLimit {
		wait := time.Duration(e.RetryAfter) * time.Second
		if wait <= 0 {
			wait = g.config.DefaultRetryAfter
		}
		_ = g.store.Update(func(s *State) error {
			s.BlockedUntil = g.now().Add(wait)
			s.UpdatedAt = g.now()
			return nil
		})
		return
	}

	if tripsCircuit(e) {
		_ = g.breaker.RecordFailure()
		return
	}
	// The gateway answered; a client error still proves it is up.
	_ = g.breaker.RecordSuccess()
}

// tripsCircuit reports network failures and 5xx responses.
func tripsCircuit(e *output.Error) bool {
	switch e.Code {
	case output.CodeNetwork:
		return true
	case output.CodeAPI:
		return e.HTTPStatus >= 500
	}
	return false
}

func seconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
