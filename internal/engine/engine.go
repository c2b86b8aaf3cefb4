// Package engine provides the batch orchestration loop: it pulls work items,
// consults the duplicate index and budget guard, invokes the generation call
// with bounded retry, and routes every outcome to the result sink, progress
// tracker and checkpoint store. The loop is sequential by design; the
// external call is the bottleneck and rate-limited, so concurrency would
// only complicate budget accounting.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/budget"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/checkpoint"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/dedup"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/generation"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/progress"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/quality"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/results"
	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/types"
)

// Status is the terminal state of a run. Budget exhaustion, rate limiting
// and cancellation are planned stops that leave a valid resumable state;
// only StatusError is a process failure.
type Status string

const (
	StatusCompleted       Status = "completed"
	StatusBudgetExhausted Status = "budget_exhausted"
	StatusRateLimited     Status = "rate_limited"
	StatusCancelled       Status = "cancelled"
	StatusError           Status = "error"
)

// Resumable reports whether the run left state that a rerun with resume
// enabled will pick up cleanly.
func (s Status) Resumable() bool {
	return s == StatusBudgetExhausted || s == StatusRateLimited || s == StatusCancelled
}

// Config holds the orchestration knobs.
type Config struct {
	// MaxRetries bounds retry attempts for transient failures.
	MaxRetries int
	// RetryBaseDelay is the base of the exponential backoff
	// (base × 2^attempt).
	RetryBaseDelay time.Duration
	// ThrottleBackoffMultiplier stretches the backoff for transient
	// failures caused by provider overload.
	ThrottleBackoffMultiplier float64
	// CheckpointInterval is the number of committed results between
	// periodic checkpoint saves. Zero disables periodic saves; terminal
	// saves still happen.
	CheckpointInterval int
	// OnProgress, when set, receives a snapshot after every attempt.
	OnProgress func(progress.Snapshot)
}

// Report summarizes a finished run. It is populated even on abnormal
// termination, from counters rebuilt out of durable state.
type Report struct {
	Status      Status
	Processed   int
	Failed      int
	Skipped     int
	Total       int
	TotalCost   float64
	Requests    int
	Elapsed     time.Duration
	ResumeIndex int
	Failures    []types.FailedItem
}

// RunOptions carries resume state derived at startup: the checkpoint hint
// and the counters rebuilt from the committed result log.
type RunOptions struct {
	// ResumeIndex is the first item index to consider. Items before it are
	// assumed committed; the duplicate index still protects against a
	// stale hint.
	ResumeIndex int
	// SeedProcessed is the number of results committed by prior runs.
	SeedProcessed int
	// SeedFailures carries failed items recorded by prior runs.
	SeedFailures []types.FailedItem
	// SeedCost is the cumulative cost reported by the prior checkpoint.
	SeedCost float64
}

// Orchestrator wires the engine's collaborators together for one run.
type Orchestrator struct {
	gen         generation.Generator
	guard       *budget.Guard
	index       *dedup.Index
	checkpoints *checkpoint.Store
	sink        *results.Sink
	validator   *quality.Validator
	logger      *slog.Logger
	cfg         Config

	// sleep and now are injected for tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New creates an orchestrator. All collaborators are required except that a
// nil logger falls back to slog.Default().
func New(
	gen generation.Generator,
	guard *budget.Guard,
	index *dedup.Index,
	checkpoints *checkpoint.Store,
	sink *results.Sink,
	validator *quality.Validator,
	logger *slog.Logger,
	cfg Config,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		gen:         gen,
		guard:       guard,
		index:       index,
		checkpoints: checkpoints,
		sink:        sink,
		validator:   validator,
		logger:      logger,
		cfg:         cfg,
		sleep:       sleepCtx,
		now:         time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes the item list until it completes, the budget runs out, the
// provider rate-limits, the context is cancelled, or a systemic fault
// occurs. Whatever the exit path, a checkpoint is saved and the result sink
// is finalized, so partial progress is never lost.
func (o *Orchestrator) Run(ctx context.Context, items []types.WorkItem, opts RunOptions) (report *Report, err error) {
	started := o.now()

	tracker := progress.NewTracker(len(items))
	tracker.Seed(opts.SeedProcessed, len(opts.SeedFailures))
	o.guard.Restore(opts.SeedCost)

	failures := append([]types.FailedItem(nil), opts.SeedFailures...)
	status := StatusCompleted
	resumeIndex := len(items)
	skipped := 0
	sinceCheckpoint := 0

	i := opts.ResumeIndex
	if i < 0 {
		i = 0
	}

	defer func() {
		if r := recover(); r != nil {
			// Unanticipated fault: persist state before reporting it.
			status = StatusError
			resumeIndex = i
			err = fmt.Errorf("unexpected failure at item %d: %v", i, r)
			o.logger.Error("emergency checkpoint after panic", "item_index", i, "panic", r)
			if cerr := o.persist(resumeIndex, tracker, failures); cerr != nil {
				o.logger.Error("emergency checkpoint save failed", "error", cerr)
			}
		}
		if ferr := o.sink.Finalize(); ferr != nil {
			o.logger.Error("failed to finalize result log", "error", ferr)
			if err == nil {
				err = ferr
				status = StatusError
			}
		}

		snap := tracker.Snapshot()
		state := o.guard.Snapshot()
		report = &Report{
			Status:      status,
			Processed:   snap.Processed,
			Failed:      snap.Failed,
			Skipped:     skipped,
			Total:       snap.Total,
			TotalCost:   state.CurrentCost,
			Requests:    state.RequestsMade,
			Elapsed:     o.now().Sub(started),
			ResumeIndex: resumeIndex,
			Failures:    failures,
		}
	}()

	o.logger.Info("run starting",
		"total_items", len(items),
		"resume_index", i,
		"seed_processed", opts.SeedProcessed,
		"estimated_cost", o.guard.Estimate(len(items)-i))

	for ; i < len(items); i++ {
		// Stop signals are honored between items, never mid-call.
		if ctx.Err() != nil {
			status = StatusCancelled
			resumeIndex = i
			o.logger.Info("run cancelled", "item_index", i)
			if cerr := o.persist(resumeIndex, tracker, failures); cerr != nil {
				status = StatusError
				return nil, cerr
			}
			return nil, nil
		}

		item := items[i]
		if o.index.IsDuplicate(item.Key) {
			skipped++
			o.logger.Debug("skipping duplicate", "key", item.Key, "item_index", i)
			continue
		}

		if !o.guard.Authorize() {
			// Normal terminal condition, not a fault.
			status = StatusBudgetExhausted
			resumeIndex = i
			o.logger.Info("budget exhausted",
				"item_index", i,
				"current_cost", o.guard.Snapshot().CurrentCost)
			if cerr := o.persist(resumeIndex, tracker, failures); cerr != nil {
				status = StatusError
				return nil, cerr
			}
			return nil, nil
		}

		outcome := o.generateWithRetry(ctx, item)

		if ctx.Err() != nil && outcome.Kind != generation.KindSuccess {
			// Cancelled during retry backoff; the item stays unprocessed.
			o.guard.Release()
			status = StatusCancelled
			resumeIndex = i
			if cerr := o.persist(resumeIndex, tracker, failures); cerr != nil {
				status = StatusError
				return nil, cerr
			}
			return nil, nil
		}

		switch outcome.Kind {
		case generation.KindSuccess:
			o.guard.Commit(outcome.Cost)

			score, issues := o.validator.Validate(outcome.Artifact)
			result := types.Result{
				Key:           item.Key,
				Artifact:      outcome.Artifact,
				Alternatives:  outcome.Alternatives,
				Confidence:    outcome.Confidence,
				QualityScore:  score,
				QualityIssues: issues,
				ProducedAt:    o.now().UTC(),
			}
			if aerr := o.sink.Append(result); aerr != nil {
				// Cost is committed but the record is not durable; persist
				// the ledger before propagating so nothing desyncs.
				status = StatusError
				resumeIndex = i
				if cerr := o.persist(resumeIndex, tracker, failures); cerr != nil {
					o.logger.Error("checkpoint save failed during abort", "error", cerr)
				}
				return nil, fmt.Errorf("failed to commit result for %s: %w", item.Key, aerr)
			}

			o.index.MarkProcessed(item.Key, outcome.Artifact)
			snap := tracker.Record(true)
			o.notify(snap)
			o.logger.Info("item processed",
				"key", item.Key,
				"artifact", outcome.Artifact,
				"quality_score", score,
				"processed", snap.Processed)

			sinceCheckpoint++
			if o.cfg.CheckpointInterval > 0 && sinceCheckpoint >= o.cfg.CheckpointInterval {
				if cerr := o.persist(i+1, tracker, failures); cerr != nil {
					status = StatusError
					resumeIndex = i + 1
					return nil, cerr
				}
				sinceCheckpoint = 0
			}

		case generation.KindRateLimited:
			// Hammering a rate-limited endpoint only worsens recovery
			// time, so pause immediately and leave the item for the next
			// run.
			o.guard.Release()
			status = StatusRateLimited
			resumeIndex = i
			o.logger.Warn("rate limited, pausing run",
				"key", item.Key,
				"item_index", i,
				"reason", outcome.Reason)
			if cerr := o.persist(resumeIndex, tracker, failures); cerr != nil {
				status = StatusError
				return nil, cerr
			}
			return nil, nil

		default:
			// Fatal, or transient with retries exhausted: record the
			// failure and keep going. A single bad item never aborts the
			// run.
			o.guard.Release()
			failures = append(failures, types.FailedItem{Key: item.Key, Reason: outcome.Reason})
			snap := tracker.Record(false)
			o.notify(snap)
			o.logger.Warn("item failed",
				"key", item.Key,
				"kind", string(outcome.Kind),
				"reason", outcome.Reason)
		}
	}

	if cerr := o.persist(resumeIndex, tracker, failures); cerr != nil {
		status = StatusError
		return nil, cerr
	}
	o.logger.Info("run complete", "processed", tracker.Snapshot().Processed, "failed", len(failures))
	return nil, nil
}

// generateWithRetry invokes the generation call with bounded exponential
// backoff for transient failures. Rate-limit outcomes are returned to the
// caller untouched: they pause the run rather than retry.
func (o *Orchestrator) generateWithRetry(ctx context.Context, item types.WorkItem) generation.Outcome {
	var out generation.Outcome
	for attempt := 0; ; attempt++ {
		out = o.gen.Generate(ctx, item)
		if out.Kind != generation.KindTransient {
			return out
		}
		if attempt >= o.cfg.MaxRetries {
			o.logger.Warn("retries exhausted",
				"key", item.Key,
				"attempts", attempt+1,
				"reason", out.Reason)
			out.Reason = fmt.Sprintf("transient failure after %d attempts: %s", attempt+1, out.Reason)
			return out
		}

		delay := o.cfg.RetryBaseDelay * (1 << attempt)
		if out.Throttled && o.cfg.ThrottleBackoffMultiplier > 1 {
			delay = time.Duration(float64(delay) * o.cfg.ThrottleBackoffMultiplier)
		}
		o.logger.Info("transient failure, backing off",
			"key", item.Key,
			"attempt", attempt+1,
			"delay", delay,
			"throttled", out.Throttled)
		if err := o.sleep(ctx, delay); err != nil {
			return out
		}
	}
}

// persist saves a checkpoint reflecting the current ledger.
func (o *Orchestrator) persist(resumeIndex int, tracker *progress.Tracker, failures []types.FailedItem) error {
	cp := &checkpoint.Checkpoint{
		ResumeIndex:    resumeIndex,
		ProcessedCount: tracker.Snapshot().Processed,
		FailedItems:    failures,
		CumulativeCost: o.guard.Snapshot().CurrentCost,
		SavedAt:        o.now().UTC(),
	}
	if err := o.checkpoints.Save(cp); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (o *Orchestrator) notify(snap progress.Snapshot) {
	if o.cfg.OnProgress != nil {
		o.cfg.OnProgress(snap)
	}
}
