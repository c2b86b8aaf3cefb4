// Package generation defines the boundary between the batch engine and the
// external slug generation service. The engine only sees tagged outcomes;
// how they are produced (provider, prompting, response parsing) lives behind
// the Generator interface.
package generation

import (
	"context"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/types"
)

// Kind classifies the outcome of a single generation attempt. The engine
// dispatches on this tag rather than inspecting error text.
type Kind string

const (
	// KindSuccess means an artifact was produced.
	KindSuccess Kind = "success"
	// KindRateLimited means the provider signalled that further immediate
	// requests will fail. Never retried; the engine pauses the run.
	KindRateLimited Kind = "rate_limited"
	// KindTransient means the attempt failed for a reason that may resolve
	// on retry (network error, 5xx, timeout).
	KindTransient Kind = "transient"
	// KindFatal means the attempt can never succeed for this item
	// (malformed input, schema-invalid response, content blocked).
	KindFatal Kind = "fatal"
)

// Outcome is the result of one generation attempt.
type Outcome struct {
	Kind Kind

	// Artifact, Alternatives and Confidence are set only on success.
	Artifact     string
	Alternatives []string
	Confidence   float64

	// Cost is the actual spend for the attempt, derived from real token
	// counts when the provider reports them. Zero means unknown; the
	// budget guard falls back to its per-item estimate.
	Cost float64

	// Throttled marks a transient failure caused by provider overload
	// (e.g. HTTP 503). Retry backoff is stretched for these.
	Throttled bool

	// Reason describes the failure for non-success outcomes.
	Reason string

	// Err is the underlying error, if any.
	Err error
}

// Generator produces one candidate artifact per work item.
//
// Implementations must map provider errors onto outcome kinds explicitly;
// returning a plain error is not part of the contract because the engine
// needs to distinguish pause-worthy, retryable and unrecoverable failures.
type Generator interface {
	Generate(ctx context.Context, item types.WorkItem) Outcome
}

// Success builds a success outcome.
func Success(artifact string, alternatives []string, confidence, cost float64) Outcome {
	return Outcome{
		Kind:         KindSuccess,
		Artifact:     artifact,
		Alternatives: alternatives,
		Confidence:   confidence,
		Cost:         cost,
	}
}

// RateLimited builds a rate-limit outcome.
func RateLimited(reason string, err error) Outcome {
	return Outcome{Kind: KindRateLimited, Reason: reason, Err: err}
}

// Transient builds a retryable failure outcome.
func Transient(reason string, throttled bool, err error) Outcome {
	return Outcome{Kind: KindTransient, Reason: reason, Throttled: throttled, Err: err}
}

// Fatal builds a non-retryable failure outcome.
func Fatal(reason string, err error) Outcome {
	return Outcome{Kind: KindFatal, Reason: reason, Err: err}
}
