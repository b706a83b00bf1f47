package fetch

import (
	"sync"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
)

// ChangeTracker remembers the last content hash seen per URL and reports
// whether a freshly fetched page differs. Hash changes are the engine's
// mutation signal: the watch loop feeds them into the scan scheduler's
// debounce instead of rescanning unconditionally on every heartbeat.
type ChangeTracker struct {
	mu     sync.Mutex
	hashes map[string]string
}

// NewChangeTracker returns an empty tracker.
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{hashes: make(map[string]string)}
}

// Changed records the page's hash and reports whether it differs from the
// previous observation. The first observation of a URL reports true: an
// unseen page is by definition new content.
func (t *ChangeTracker) Changed(page *model.Page) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, seen := t.hashes[page.URL]
	t.hashes[page.URL] = page.Hash
	return !seen || prev != page.Hash
}

// Forget drops the recorded hash for a URL, so the next observation
// reports a change again.
func (t *ChangeTracker) Forget(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.hashes, url)
}
