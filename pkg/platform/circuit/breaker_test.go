package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(opts ...Option) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)}
	return New("registry", append([]Option{WithClock(clock.Now)}, opts...)...), clock
}

func TestBreaker_InitialState(t *testing.T) {
	b, _ := newTestBreaker()
	assert.True(t, b.Allow())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "registry", b.Name())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(3))

	// First two failures don't open
	assert.False(t, b.RecordFailure())
	assert.False(t, b.RecordFailure())
	assert.True(t, b.Allow())

	// Third failure opens the circuit
	assert.True(t, b.RecordFailure())
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	// Two more failures don't open (count was reset)
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())

	assert.True(t, b.RecordFailure())
}

func TestBreaker_HalfOpenAdmitsOneProbe(t *testing.T) {
	b, clock := newTestBreaker(WithFailureThreshold(1), WithCooldown(time.Minute))
	b.RecordFailure()

	clock.Advance(59 * time.Second)
	assert.False(t, b.Allow())

	clock.Advance(time.Second)
	assert.True(t, b.Allow(), "cooldown elapsed, probe admitted")
	assert.Equal(t, StateHalfOpen, b.State())
	assert.False(t, b.Allow(), "second caller waits for the probe")

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b, clock := newTestBreaker(WithFailureThreshold(2), WithCooldown(time.Minute))
	b.RecordFailure()
	b.RecordFailure()

	clock.Advance(time.Minute)
	assert.True(t, b.Allow())
	assert.True(t, b.RecordFailure(), "failed probe reopens")
	assert.False(t, b.Allow())

	clock.Advance(time.Minute)
	assert.True(t, b.Allow())
}

func TestBreaker_NilAlwaysAllows(t *testing.T) {
	var b *Breaker
	assert.True(t, b.Allow())
	assert.False(t, b.RecordFailure())
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
}
