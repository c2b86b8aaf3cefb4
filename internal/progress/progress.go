// Package progress counts processed and failed items and derives throughput
// and ETA figures for user-facing output.
package progress

import (
	"sync"
	"time"
)

// Snapshot is a derived, point-in-time view of run progress. It is
// recomputed on demand and never persisted.
type Snapshot struct {
	Processed int
	Failed    int
	Total     int
	Elapsed   time.Duration
	// Rate is successful items per second. Zero when nothing has been
	// processed yet or no time has elapsed.
	Rate float64
	// ETA is the projected time to completion. Valid only when ETAKnown is
	// true; a zero rate makes the ETA undefined rather than infinite.
	ETA      time.Duration
	ETAKnown bool
	// Percent is completion in [0, 100]. An empty run reports 100.
	Percent float64
}

// Remaining returns the number of items not yet accounted for.
func (s Snapshot) Remaining() int {
	r := s.Total - s.Processed - s.Failed
	if r < 0 {
		return 0
	}
	return r
}

// Tracker maintains the counters behind Snapshot. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	processed int
	failed    int
	total     int
	started   time.Time
	now       func() time.Time
}

// NewTracker creates a tracker for a run of total items, starting the clock
// immediately.
func NewTracker(total int) *Tracker {
	return newTracker(total, time.Now)
}

func newTracker(total int, now func() time.Time) *Tracker {
	if total < 0 {
		total = 0
	}
	return &Tracker{total: total, started: now(), now: now}
}

// Seed pre-loads counters from results committed by a prior run, so a
// resumed run reports cumulative figures.
func (t *Tracker) Seed(processed, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if processed > 0 {
		t.processed = processed
	}
	if failed > 0 {
		t.failed = failed
	}
}

// Record counts one attempt and returns the updated snapshot.
func (t *Tracker) Record(success bool) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if success {
		t.processed++
	} else {
		t.failed++
	}
	return t.snapshotLocked()
}

// Snapshot returns the current derived view without recording anything.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	s := Snapshot{
		Processed: t.processed,
		Failed:    t.failed,
		Total:     t.total,
		Elapsed:   t.now().Sub(t.started),
	}

	if t.total == 0 {
		s.Percent = 100
		s.ETA = 0
		s.ETAKnown = true
		return s
	}

	done := t.processed + t.failed
	s.Percent = float64(done) / float64(t.total) * 100
	if s.Percent > 100 {
		s.Percent = 100
	}

	// Guard against sub-millisecond elapsed producing absurd rates and
	// against division by zero: an unknown rate yields an unknown ETA,
	// never NaN or Inf.
	elapsedSec := s.Elapsed.Seconds()
	if elapsedSec > 0 && t.processed > 0 {
		s.Rate = float64(t.processed) / elapsedSec
	}

	remaining := s.Remaining()
	if remaining == 0 {
		s.ETA = 0
		s.ETAKnown = true
	} else if s.Rate > 0 {
		s.ETA = time.Duration(float64(remaining) / s.Rate * float64(time.Second))
		s.ETAKnown = true
	}
	return s
}
