package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_LoadsSlugPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("slugs.json", "generate_slug")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.URL}}")
	assert.Contains(t, prompt, "{{.Title}}")
}

func TestGet_UnknownKey(t *testing.T) {
	_, err := Get("slugs.json", "no_such_prompt")
	assert.Error(t, err)
}

func TestGet_UnknownFile(t *testing.T) {
	_, err := Get("missing.json", "generate_slug")
	assert.Error(t, err)
}

func TestFormat_SubstitutesPlaceholders(t *testing.T) {
	out := Format("slug for {{.Title}} at {{.URL}}", map[string]string{
		"Title": "My Post",
		"URL":   "https://x.com/my-post",
	})
	assert.Equal(t, "slug for My Post at https://x.com/my-post", out)
}

func TestFormat_LeavesUnknownPlaceholders(t *testing.T) {
	out := Format("{{.Title}} and {{.Other}}", map[string]string{"Title": "T"})
	assert.True(t, strings.Contains(out, "{{.Other}}"))
}

func TestList_ReturnsKeys(t *testing.T) {
	keys, err := List("slugs.json")
	require.NoError(t, err)
	assert.Contains(t, keys, "generate_slug")
}
