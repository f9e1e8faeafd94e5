package resilience

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(t *testing.T, cfg Config) (*CircuitBreaker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(NewStore(t.TempDir()), cfg)
	cb.now = clock.Now
	return cb, clock
}

func TestCircuitBreakerDefaultsClosed(t *testing.T) {
	cb, _ := newTestBreaker(t, Config{})

	state, err := cb.State()
	require.NoError(t, err)
	assert.Equal(t, CircuitClosed, state)

	allowed, err := cb.Allow()
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCircuitBreakerAppliesDefaults(t *testing.T) {
	cb, _ := newTestBreaker(t, Config{})
	assert.Equal(t, DefaultConfig(), cb.config)
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb, _ := newTestBreaker(t, Config{FailureThreshold: 3})

	for range 2 {
		require.NoError(t, cb.RecordFailure())
	}
	state, _ := cb.State()
	assert.Equal(t, CircuitClosed, state)

	require.NoError(t, cb.RecordFailure())
	state, _ = cb.State()
	assert.Equal(t, CircuitOpen, state)

	allowed, err := cb.Allow()
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 30*time.Second, cb.RetryIn())
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(t, Config{FailureThreshold: 3})

	require.NoError(t, cb.RecordFailure())
	require.NoError(t, cb.RecordFailure())
	require.NoError(t, cb.RecordSuccess())
	require.NoError(t, cb.RecordFailure())
	require.NoError(t, cb.RecordFailure())

	state, _ := cb.State()
	assert.Equal(t, CircuitClosed, state)
}

func TestCircuitBreakerHalfOpenProbes(t *testing.T) {
	cb, clock := newTestBreaker(t, Config{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: 10 * time.Second})

	require.NoError(t, cb.RecordFailure())
	clock.Advance(10 * time.Second)

	state, _ := cb.State()
	assert.Equal(t, CircuitHalfOpen, state)

	allowed, _ := cb.Allow()
	assert.True(t, allowed, "first probe gets the slot")
	allowed, _ = cb.Allow()
	assert.False(t, allowed, "only one probe in flight")

	require.NoError(t, cb.RecordSuccess())
	allowed, _ = cb.Allow()
	assert.True(t, allowed)
	require.NoError(t, cb.RecordSuccess())

	state, _ = cb.State()
	assert.Equal(t, CircuitClosed, state)
}

func TestCircuitBreakerFailureInHalfOpenReopens(t *testing.T) {
	cb, clock := newTestBreaker(t, Config{FailureThreshold: 1, OpenTimeout: 10 * time.Second})

	require.NoError(t, cb.RecordFailure())
	clock.Advance(11 * time.Second)
	allowed, _ := cb.Allow()
	require.True(t, allowed)

	require.NoError(t, cb.RecordFailure())
	state, _ := cb.State()
	assert.Equal(t, CircuitOpen, state)
	allowed, _ = cb.Allow()
	assert.False(t, allowed)
}

func TestCircuitBreakerReleasesStaleProbe(t *testing.T) {
	cb, clock := newTestBreaker(t, Config{FailureThreshold: 1, OpenTimeout: 10 * time.Second})

	require.NoError(t, cb.RecordFailure())
	clock.Advance(10 * time.Second)
	allowed, _ := cb.Allow()
	require.True(t, allowed)

	// The probing process never reports back.
	clock.Advance(10 * time.Second)
	allowed, _ = cb.Allow()
	assert.True(t, allowed)
}

func TestCircuitBreakerSharedAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	first := NewCircuitBreaker(NewStore(dir), Config{FailureThreshold: 2})
	require.NoError(t, first.RecordFailure())
	require.NoError(t, first.RecordFailure())

	second := NewCircuitBreaker(NewStore(dir), Config{FailureThreshold: 2})
	state, err := second.State()
	require.NoError(t, err)
	assert.Equal(t, CircuitOpen, state)

	require.NoError(t, second.Reset())
	state, _ = first.State()
	assert.Equal(t, CircuitClosed, state)
}

func TestStoreToleratesCorruptState(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, StateFileName), []byte("{oops"), 0o600))

	state, err := NewStore(dir).Load()
	require.NoError(t, err)
	assert.True(t, state.Circuit.IsClosed())
}

func TestStoreClearMissingFile(t *testing.T) {
	assert.NoError(t, NewStore(t.TempDir()).Clear())
}

func TestDefaultDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/tmp/cache", DefaultDirName), DefaultDir("/tmp/cache"))

	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "taskhub", DefaultDirName), DefaultDir(""))
}
