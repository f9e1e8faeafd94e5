package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/output"
)

func newTestGate(t *testing.T, cfg Config) (*Gate, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	g := NewGate(NewStore(t.TempDir()), cfg)
	g.now = clock.Now
	g.breaker.now = clock.Now
	return g, clock
}

func TestGateTripsOnServerAndNetworkErrors(t *testing.T) {
	g, _ := newTestGate(t, Config{FailureThreshold: 2})

	require.NoError(t, g.Admit())
	g.Record(output.ErrAPI(503, ""))
	g.Record(output.ErrNetwork(errors.New("connection refused")))

	err := g.Admit()
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, output.CodeNetwork, e.Code)
	assert.Equal(t, "Gateway unavailable", e.Message)
	assert.Contains(t, e.Hint, "30 seconds")
}

func TestGateIgnoresClientErrors(t *testing.T) {
	g, _ := newTestGate(t, Config{FailureThreshold: 1})

	g.Record(output.ErrForbidden("nope"))
	g.Record(output.ErrValidation("name", "required"))
	g.Record(&output.Error{Code: output.CodeNotFound, HTTPStatus: 404})
	g.Record(fmt.Errorf("wrapped: %w", context.Canceled))

	assert.NoError(t, g.Admit())
}

func TestGateHonorsRetryAfter(t *testing.T) {
	g, clock := newTestGate(t, Config{})

	g.Record(output.ErrRateLimit(5))
	assert.Equal(t, 5*time.Second, g.BlockedFor())

	err := g.Admit()
	require.Error(t, err)
	assert.Equal(t, output.CodeRateLimit, output.AsError(err).Code)
	assert.Equal(t, "Try again in 5 seconds", output.AsError(err).Hint)

	clock.Advance(5 * time.Second)
	assert.NoError(t, g.Admit())
}

func TestGateDefaultRetryAfter(t *testing.T) {
	g, _ := newTestGate(t, Config{DefaultRetryAfter: 42 * time.Second})

	g.Record(output.ErrRateLimit(0))
	assert.Equal(t, 42*time.Second, g.BlockedFor())
}

func TestGateReset(t *testing.T) {
	g, _ := newTestGate(t, Config{FailureThreshold: 1})

	g.Record(output.ErrAPI(500, ""))
	g.Record(output.ErrRateLimit(30))
	require.Error(t, g.Admit())

	require.NoError(t, g.Reset())
	assert.NoError(t, g.Admit())
	assert.Zero(t, g.BlockedFor())
}
