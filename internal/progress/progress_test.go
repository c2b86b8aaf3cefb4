package progress

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock advances by a fixed step on every call.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func TestRecord_CountsSuccessesAndFailures(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Second}
	tracker := newTracker(10, clock.now)

	s := tracker.Record(true)
	assert.Equal(t, 1, s.Processed)
	assert.Equal(t, 0, s.Failed)

	s = tracker.Record(false)
	assert.Equal(t, 1, s.Processed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 8, s.Remaining())
	assert.InDelta(t, 20.0, s.Percent, 1e-9)
}

func TestSnapshot_RateAndETA(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Second}
	tracker := newTracker(4, clock.now)

	tracker.Record(true) // 1 processed after ~1s
	s := tracker.Snapshot()

	assert.Greater(t, s.Rate, 0.0)
	assert.True(t, s.ETAKnown)
	assert.Greater(t, s.ETA, time.Duration(0))
}

func TestSnapshot_ZeroRateReportsUnknownETA(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Second}
	tracker := newTracker(5, clock.now)

	// Only failures: rate stays zero, ETA must be reported unknown rather
	// than dividing by zero.
	tracker.Record(false)
	s := tracker.Snapshot()

	assert.Zero(t, s.Rate)
	assert.False(t, s.ETAKnown)
	assert.False(t, math.IsNaN(s.Percent))
	assert.False(t, math.IsInf(s.Percent, 0))
}

func TestSnapshot_EmptyRunIsComplete(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Millisecond}
	tracker := newTracker(0, clock.now)

	s := tracker.Snapshot()
	assert.InDelta(t, 100.0, s.Percent, 1e-9)
	assert.True(t, s.ETAKnown)
	assert.Zero(t, s.ETA)
}

func TestSnapshot_NeverProducesInvalidNumbers(t *testing.T) {
	// Sub-step clock: elapsed can be tiny but never produces NaN/Inf.
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Nanosecond}
	tracker := newTracker(3, clock.now)

	tracker.Record(true)
	s := tracker.Snapshot()

	for _, v := range []float64{s.Rate, s.Percent} {
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestSeed_ResumesCumulativeCounts(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Second}
	tracker := newTracker(10, clock.now)

	tracker.Seed(6, 1)
	s := tracker.Record(true)

	assert.Equal(t, 7, s.Processed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 2, s.Remaining())
}

func TestSnapshot_CompletedRunHasZeroETA(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Second}
	tracker := newTracker(2, clock.now)

	tracker.Record(true)
	tracker.Record(true)
	s := tracker.Snapshot()

	assert.True(t, s.ETAKnown)
	assert.Zero(t, s.ETA)
	assert.InDelta(t, 100.0, s.Percent, 1e-9)
}
