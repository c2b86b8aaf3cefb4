// Package types defines the data transfer objects shared across the batch
// generation pipeline.
package types

import "time"

// WorkItem is one unit of input: a blog post identified by its URL with an
// optional title payload. Items are immutable and sourced from an external
// list; each distinct item yields at most one Result.
type WorkItem struct {
	// Key is the stable identifier for the item, normally the post URL.
	Key string `json:"key"`
	// Payload is the text the slug is generated from (usually the title).
	// May be empty, in which case the generator falls back to the URL path.
	Payload string `json:"payload,omitempty"`
}

// Result is one committed output record. Owned by the result sink once
// written; immutable thereafter.
type Result struct {
	Key           string    `json:"key"`
	Artifact      string    `json:"artifact"`
	Alternatives  []string  `json:"alternatives,omitempty"`
	Confidence    float64   `json:"confidence,omitempty"`
	QualityScore  float64   `json:"quality_score"`
	QualityIssues []string  `json:"quality_issues,omitempty"`
	ProducedAt    time.Time `json:"produced_at"`
}

// FailedItem records an item that could not be processed, with the reason
// it was demoted. Failed items are reported in the run summary and persisted
// in checkpoints so a resumed run can account for them.
type FailedItem struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}
