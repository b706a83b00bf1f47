package model

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"time"
)

// AnchorIDPrefix is the prefix of every minted anchor identifier. The full
// identifier is stamped onto the live DOM node as a data attribute so the
// node can be re-found cheaply, but the attribute is only a lookup aid: the
// Anchor Registry owns the canonical records.
const AnchorIDPrefix = "mg-anchor-"

// AnchorSnippetPrefixLen is the number of leading text characters that
// participate in an anchor's identity key. Long enough to distinguish
// neighboring regions, short enough to survive trailing edits.
const AnchorSnippetPrefixLen = 64

// MaxAnchorTextLen caps the text retained on a persisted anchor.
const MaxAnchorTextLen = 5000

// RiskAnchor is a persisted, identity-stable record of a page region judged
// risky. Identity derives from the locator path and a text prefix rather
// than from the transient batch-local Candidate.ID, so an anchor survives
// DOM rebuilds that renumber candidates.
type RiskAnchor struct {
	// AnchorID is the stable identifier, stamped on the live node.
	AnchorID string `json:"anchor_id"`

	// Score is the normalized risk score in [0,1] from the latest scan
	// that resolved this anchor.
	Score float64 `json:"score"`

	// Label is the classifier's risk bucket for the latest score.
	Label string `json:"label"`

	// Locator records how to re-find the region.
	Locator Locator `json:"locator"`

	// SourceURL is the URL of the page the anchor was created on.
	SourceURL string `json:"source_url"`

	// Text is the scored text, capped at MaxAnchorTextLen.
	Text string `json:"text"`

	// RawText is the sampled candidate text before any classifier
	// cleanup, capped at MaxAnchorTextLen.
	RawText string `json:"raw_text,omitempty"`

	// Timestamp records when the anchor was last refreshed.
	Timestamp time.Time `json:"timestamp"`
}

// IdentityKey computes the deterministic identity of an anchor from its
// locator path and a snippet prefix. Two candidates with the same key are
// the same region as far as anchor lifecycle is concerned, regardless of
// batch numbering.
func IdentityKey(locatorPath, text string) string {
	snippet := text
	if len(snippet) > AnchorSnippetPrefixLen {
		snippet = snippet[:AnchorSnippetPrefixLen]
	}
	return locatorPath + "::" + snippet
}

// MintAnchorID derives a stable anchor identifier from an identity key.
//
// Design decision: We use FNV-1a rather than a cryptographic hash because
// the identifier only needs to be deterministic and short enough to live in
// a DOM attribute; collision resistance at cryptographic strength buys
// nothing here.
func MintAnchorID(identityKey string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identityKey)) //nolint:errcheck // hash.Write never fails
	return AnchorIDPrefix + strconv.FormatUint(uint64(h.Sum32()), 36)
}

// Truncate enforces the persisted text caps in place.
func (a *RiskAnchor) Truncate() {
	if len(a.Text) > MaxAnchorTextLen {
		a.Text = a.Text[:MaxAnchorTextLen]
	}
	if len(a.RawText) > MaxAnchorTextLen {
		a.RawText = a.RawText[:MaxAnchorTextLen]
	}
}

// String returns a short human-readable description for logs.
func (a *RiskAnchor) String() string {
	snippet := a.Text
	if len(snippet) > 40 {
		snippet = snippet[:40] + "..."
	}
	return fmt.Sprintf("%s score=%.2f %q", a.AnchorID, a.Score, snippet)
}
