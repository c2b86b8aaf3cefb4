package checkpoint

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

func TestLoad_MissingFileReturnsNil(t *testing.T) {
	store := NewStore(t.TempDir())

	cp, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	saved := &Checkpoint{
		ResumeIndex:    7,
		ProcessedCount: 6,
		FailedItems: []types.FailedItem{
			{Key: "https://x.com/bad", Reason: "malformed item"},
		},
		CumulativeCost: 0.0123,
		SavedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, saved.ResumeIndex, loaded.ResumeIndex)
	assert.Equal(t, saved.ProcessedCount, loaded.ProcessedCount)
	assert.Equal(t, saved.FailedItems, loaded.FailedItems)
	assert.InDelta(t, saved.CumulativeCost, loaded.CumulativeCost, 1e-12)
	assert.True(t, saved.SavedAt.Equal(loaded.SavedAt))
}

func TestSave_OverwritesPreviousCheckpoint(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Save(&Checkpoint{ResumeIndex: 3}))
	require.NoError(t, store.Save(&Checkpoint{ResumeIndex: 9}))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 9, loaded.ResumeIndex)
}

func TestSave_LeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, store.Save(&Checkpoint{ResumeIndex: 1}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FileName, entries[0].Name())
}

func TestSave_StampsSavedAtWhenUnset(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Save(&Checkpoint{ResumeIndex: 2}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.False(t, loaded.SavedAt.IsZero())
}

func TestLoad_CorruptFileReturnsErrCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{truncated"), 0o644))

	cp, err := store.Load()
	assert.Nil(t, cp)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestSave_NilCheckpointRejected(t *testing.T) {
	store := NewStore(t.TempDir())
	assert.Error(t, store.Save(nil))
}
