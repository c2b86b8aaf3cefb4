package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/types"
)

func writeInput(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadItems_CSV(t *testing.T) {
	t.Run("with header and titles", func(t *testing.T) {
		path := writeInput(t, "items.csv", "url,title\nhttps://blog.example.com/a,First Post\nhttps://blog.example.com/b,Second Post\n")

		items, err := LoadItems(path)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, types.WorkItem{Key: "https://blog.example.com/a", Payload: "First Post"}, items[0])
		assert.Equal(t, "Second Post", items[1].Payload)
	})

	t.Run("url-only rows", func(t *testing.T) {
		path := writeInput(t, "items.csv", "https://blog.example.com/a\nhttps://blog.example.com/b\n")

		items, err := LoadItems(path)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Empty(t, items[0].Payload)
	})
}

func TestLoadItems_JSONL(t *testing.T) {
	path := writeInput(t, "items.jsonl",
		`{"url":"https://blog.example.com/a","title":"First"}
{"url":"https://blog.example.com/b"}

`)

	items, err := LoadItems(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "First", items[0].Payload)
	assert.Empty(t, items[1].Payload)
}

func TestLoadItems_JSONL_BadLine(t *testing.T) {
	path := writeInput(t, "items.jsonl", `{"url":"https://a"}
not json
`)

	_, err := LoadItems(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadItems_Text(t *testing.T) {
	path := writeInput(t, "items.txt", `# seed list
https://blog.example.com/a

https://blog.example.com/b
`)

	items, err := LoadItems(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "https://blog.example.com/a", items[0].Key)
}

func TestLoadItems_Errors(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		path := writeInput(t, "items.yaml", "whatever")
		_, err := LoadItems(path)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeInput(t, "items.txt", "\n# only comments\n")
		_, err := LoadItems(path)
		assert.ErrorIs(t, err, ErrEmptyList)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadItems(filepath.Join(t.TempDir(), "nope.txt"))
		assert.Error(t, err)
	})
}
