package results

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(key, slug string) types.Result {
	return types.Result{
		Key:          key,
		Artifact:     slug,
		QualityScore: 1.0,
		ProducedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAppendThenLoad(t *testing.T) {
	dir := t.TempDir()

	sink, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, sink.Append(sampleResult("https://x.com/a", "slug-a")))
	require.NoError(t, sink.Append(sampleResult("https://x.com/b", "slug-b")))

	// Records are durable before finalize: load from the partial log.
	records, dropped, err := LoadExisting(dir)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, records, 2)
	assert.Equal(t, "slug-a", records[0].Artifact)
	assert.Equal(t, "slug-b", records[1].Artifact)
}

func TestFinalize_PromotesPartialLog(t *testing.T) {
	dir := t.TempDir()

	sink, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, sink.Append(sampleResult("https://x.com/a", "slug-a")))
	require.NoError(t, sink.Finalize())

	_, err = os.Stat(filepath.Join(dir, FinalName))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, FinalName+PartialSuffix))
	assert.True(t, os.IsNotExist(err))

	// Finalize is idempotent.
	assert.NoError(t, sink.Finalize())
}

func TestAppend_AfterFinalizeRejected(t *testing.T) {
	sink, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, sink.Finalize())

	err = sink.Append(sampleResult("https://x.com/a", "slug-a"))
	assert.True(t, errors.Is(err, ErrFinalized))
}

func TestLoadExisting_DropsTruncatedTrailingLine(t *testing.T) {
	dir := t.TempDir()

	sink, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, sink.Append(sampleResult("https://x.com/a", "slug-a")))
	require.NoError(t, sink.Append(sampleResult("https://x.com/b", "slug-b")))

	// Simulate a crash mid-write: a half-record at the end of the log.
	partial := filepath.Join(dir, FinalName+PartialSuffix)
	f, err := os.OpenFile(partial, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"key":"https://x.com/c","arti`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	records, dropped, err := LoadExisting(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, records, 2)
	assert.Equal(t, "https://x.com/a", records[0].Key)
	assert.Equal(t, "https://x.com/b", records[1].Key)
}

func TestOpen_ResumesFromFinalizedLog(t *testing.T) {
	dir := t.TempDir()

	// First run: append and finalize.
	sink, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, sink.Append(sampleResult("https://x.com/a", "slug-a")))
	require.NoError(t, sink.Finalize())

	// Second run: keeps appending; prior records survive the next finalize.
	sink, err = Open(dir)
	require.NoError(t, err)
	require.NoError(t, sink.Append(sampleResult("https://x.com/b", "slug-b")))
	require.NoError(t, sink.Finalize())

	records, dropped, err := LoadExisting(dir)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, records, 2)
}

func TestOpen_MergesFinalizedAndPartialLogs(t *testing.T) {
	dir := t.TempDir()

	// Run 1 finalized.
	sink, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, sink.Append(sampleResult("https://x.com/a", "slug-a")))
	require.NoError(t, sink.Finalize())

	// Run 2 crashed before finalize, leaving a fresh partial behind the
	// finalized log.
	partial := filepath.Join(dir, FinalName+PartialSuffix)
	line := `{"key":"https://x.com/b","artifact":"slug-b","quality_score":1,"produced_at":"2026-03-01T12:00:00Z"}` + "\n"
	require.NoError(t, os.WriteFile(partial, []byte(line), 0o644))

	// Run 3 sees both records.
	sink, err = Open(dir)
	require.NoError(t, err)
	require.NoError(t, sink.Finalize())

	records, dropped, err := LoadExisting(dir)
	require.NoError(t, err)
	assert.Zero(t, dropped)

	keys := make(map[string]bool)
	for _, r := range records {
		keys[r.Key] = true
	}
	assert.True(t, keys["https://x.com/a"])
	assert.True(t, keys["https://x.com/b"])
}

func TestLoadExisting_EmptyDirectory(t *testing.T) {
	records, dropped, err := LoadExisting(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Empty(t, records)
}
