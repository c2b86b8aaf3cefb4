// Package dedup provides URL canonicalization and the index of already
// processed items. Upstream lists frequently carry the same post under
// different spellings (http vs https, trailing slash, tracking parameters);
// deduplication operates on the canonical form so logical duplicates never
// cost a second generation call.
package dedup

import (
	"net/url"
	"strings"
	"sync"

	"github.com/derektsoi/slug-generator-for-blog-post-sub002/internal/types"
)

// Normalize reduces a raw item key to its canonical form: https scheme,
// lowercased host, default port dropped, trailing path separator stripped,
// query and fragment discarded. Keys that do not parse as URLs are returned
// trimmed so non-URL identifiers still deduplicate on exact match.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	withScheme := trimmed
	if !strings.Contains(withScheme, "://") {
		withScheme = "https://" + withScheme
	}

	u, err := url.Parse(withScheme)
	if err != nil || u.Host == "" {
		return trimmed
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimSuffix(host, ":443")
	host = strings.TrimSuffix(host, ":80")

	path := u.Path
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "/" {
		path = ""
	}

	return "https://" + host + path
}

// Index records which canonical keys have already produced a result. Safe
// for concurrent use so a bounded-worker orchestrator can share one index.
type Index struct {
	mu   sync.RWMutex
	seen map[string]string // canonical key -> artifact
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{seen: make(map[string]string)}
}

// Seed rebuilds the index from results committed by prior runs. This is the
// source of truth for "what's done" on resume; the checkpoint file is only a
// speed hint.
func (ix *Index) Seed(results []types.Result) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, r := range results {
		ix.seen[Normalize(r.Key)] = r.Artifact
	}
}

// IsDuplicate reports whether the key's canonical form already has a result.
func (ix *Index) IsDuplicate(key string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.seen[Normalize(key)]
	return ok
}

// MarkProcessed records a committed result for the key.
func (ix *Index) MarkProcessed(key, artifact string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.seen[Normalize(key)] = artifact
}

// Len returns the number of distinct canonical keys recorded.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.seen)
}
