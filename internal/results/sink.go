// Package results implements the append-only, crash-safe result log. One
// self-contained JSON record is written per processed item and flushed
// before the append returns, so a crash immediately afterwards cannot lose
// it. Finalization promotes the in-progress log to its permanent name with
// an atomic rename.
package results

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/types"
)

const (
	// FinalName is the permanent result log name.
	FinalName = "slugs.jsonl"
	// PartialSuffix marks an in-progress log that has not been finalized.
	PartialSuffix = ".partial"
)

// ErrFinalized is returned when appending to a sink that has already been
// finalized. The temporary log is never reopened for append within a run.
var ErrFinalized = errors.New("result sink already finalized")

// Sink appends result records to the partial log for one output directory.
type Sink struct {
	dir       string
	f         *os.File
	finalized bool
}

func finalPath(dir string) string   { return filepath.Join(dir, FinalName) }
func partialPath(dir string) string { return finalPath(dir) + PartialSuffix }

// Open prepares the partial log for appending. Output finalized by a prior
// run is folded back into the partial log first, so a resumed run keeps
// appending to a single log and the next Finalize sees every record.
func Open(outputDir string) (*Sink, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := foldFinalIntoPartial(outputDir); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(partialPath(outputDir), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open result log: %w", err)
	}
	return &Sink{dir: outputDir, f: f}, nil
}

// foldFinalIntoPartial moves records from a previously finalized log into
// the partial log. Records are self-contained and order-independent, so a
// plain concatenation is sufficient.
func foldFinalIntoPartial(dir string) error {
	final := finalPath(dir)
	partial := partialPath(dir)

	if _, err := os.Stat(final); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat finalized log: %w", err)
	}

	if _, err := os.Stat(partial); os.IsNotExist(err) {
		if err := os.Rename(final, partial); err != nil {
			return fmt.Errorf("failed to reopen finalized log: %w", err)
		}
		return nil
	}

	// Both exist: a prior run finalized, then a later run crashed before
	// its own finalize. Append the finalized records and drop the file.
	src, err := os.Open(final)
	if err != nil {
		return fmt.Errorf("failed to open finalized log: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(partial, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open partial log: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to merge finalized log: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("failed to sync merged log: %w", err)
	}
	if err := os.Remove(final); err != nil {
		return fmt.Errorf("failed to remove merged finalized log: %w", err)
	}
	return nil
}

// Append writes one record and flushes it to disk before returning.
func (s *Sink) Append(r types.Result) error {
	if s.finalized {
		return ErrFinalized
	}

	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result for %s: %w", r.Key, err)
	}
	line = append(line, '\n')

	if _, err := s.f.Write(line); err != nil {
		return fmt.Errorf("failed to append result for %s: %w", r.Key, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync result log: %w", err)
	}
	return nil
}

// Finalize atomically promotes the partial log to its permanent name. It
// always runs on loop exit, whatever the stop reason, so partial progress
// is never stranded in a temporary file. Safe to call more than once.
func (s *Sink) Finalize() error {
	if s.finalized {
		return nil
	}
	s.finalized = true

	if err := s.f.Close(); err != nil {
		return fmt.Errorf("failed to close result log: %w", err)
	}
	if err := os.Rename(partialPath(s.dir), finalPath(s.dir)); err != nil {
		return fmt.Errorf("failed to finalize result log: %w", err)
	}
	return syncDir(s.dir)
}

// LoadExisting reads every parseable record from the finalized and partial
// logs in the output directory. Invalid lines (typically one truncated
// trailing line from a crash mid-write) are dropped; the dropped count is
// returned alongside the records.
func LoadExisting(outputDir string) ([]types.Result, int, error) {
	var out []types.Result
	dropped := 0

	for _, path := range []string{finalPath(outputDir), partialPath(outputDir)} {
		records, d, err := readLog(path)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, records...)
		dropped += d
	}
	return out, dropped, nil
}

func readLog(path string) ([]types.Result, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to open result log %s: %w", path, err)
	}
	defer f.Close()

	var out []types.Result
	dropped := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r types.Result
		if err := json.Unmarshal(line, &r); err != nil || r.Key == "" {
			dropped++
			continue
		}
		out = append(out, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read result log %s: %w", path, err)
	}
	return out, dropped, nil
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
