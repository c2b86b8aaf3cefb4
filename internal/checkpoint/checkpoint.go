// Package checkpoint persists run progress durably so a crashed or paused
// run can resume without reprocessing committed items. A checkpoint is a
// resume-speed hint: correctness of "what's done" is always re-derived from
// the committed result log, so a stale or lost checkpoint costs a rescan,
// never duplicate work.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/types"
)

// FileName is the checkpoint file name inside the output directory.
const FileName = "checkpoint.json"

// ErrCorrupt is returned by Load when the checkpoint file exists but cannot
// be parsed. Callers should treat this the same as a missing checkpoint.
var ErrCorrupt = errors.New("checkpoint file is corrupt")

// Checkpoint is the durable snapshot of run progress. Rewritten every few
// successes and on any terminal stop; read once at resume.
type Checkpoint struct {
	// ResumeIndex is the index of the first work item not yet
	// guaranteed-committed to the result log.
	ResumeIndex    int                `json:"resume_index"`
	ProcessedCount int                `json:"processed_count"`
	FailedItems    []types.FailedItem `json:"failed_items,omitempty"`
	CumulativeCost float64            `json:"cumulative_cost"`
	SavedAt        time.Time          `json:"saved_at"`
}

// Store reads and writes the checkpoint file for one output directory.
type Store struct {
	path string
}

// NewStore creates a store rooted at the given output directory.
func NewStore(outputDir string) *Store {
	return &Store{path: filepath.Join(outputDir, FileName)}
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

// Save writes the checkpoint atomically: marshal to a temp file in the same
// directory, fsync, then rename over the old checkpoint. A crash at any
// point leaves either the old or the new checkpoint fully intact.
func (s *Store) Save(cp *Checkpoint) error {
	if cp == nil {
		return errors.New("checkpoint is nil")
	}
	if cp.SavedAt.IsZero() {
		cp.SavedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, FileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp checkpoint: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to promote checkpoint: %w", err)
	}
	return syncDir(dir)
}

// Load reads the current checkpoint. Returns (nil, nil) when no checkpoint
// exists and wraps ErrCorrupt when the file cannot be parsed.
func (s *Store) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &cp, nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open directory for sync: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync directory: %w", err)
	}
	return nil
}
