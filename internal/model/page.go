package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// MaxPageSize is the maximum size of raw page content to retain.
// Larger bodies are truncated to this size before parsing.
const MaxPageSize = 5 * 1024 * 1024 // 5 MB

// Page is a fetched snapshot of the target document.
//
// Design decision: We keep both the raw bytes and a content hash because the
// hash is what drives mutation detection: two fetches with the same hash are
// the "unchanged DOM" case and must not trigger a re-scan, while a changed
// hash is the mutation signal fed to the scheduler's debounce.
type Page struct {
	// URL is the full URL of the fetched document.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type of the response.
	ContentType string `json:"content_type"`

	// Title is the document title, when the body parsed as HTML.
	Title string `json:"title,omitempty"`

	// Raw contains the (possibly truncated) response body bytes.
	Raw []byte `json:"-"`

	// Hash is the SHA-256 hex digest of Raw, used for change detection.
	Hash string `json:"hash"`
}

// ComputeHash fills in the content hash from the raw body.
func (p *Page) ComputeHash() {
	sum := sha256.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(sum[:])
}

// TruncateRaw enforces MaxPageSize on the raw body.
func (p *Page) TruncateRaw() {
	if len(p.Raw) > MaxPageSize {
		p.Raw = p.Raw[:MaxPageSize]
	}
}
