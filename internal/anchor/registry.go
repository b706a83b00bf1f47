package anchor

import (
	"sort"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
)

// AttrID is the data attribute stamped onto anchored DOM nodes. It is a
// back-reference only; the registry owns the canonical records and never
// trusts the attribute for identity.
const AttrID = "data-mg-id"

// Registry holds the current set of risk anchors for one document context.
//
// Rebuild computes a complete replacement list and swaps it in atomically
// under the lock, so readers never observe a half-updated registry. Anchor
// identifiers are carried forward across rebuilds by identity key, which
// keeps an anchor stable while candidates get renumbered between scans.
type Registry struct {
	mu      sync.RWMutex
	anchors []model.RiskAnchor
	cursor  int

	// knownIDs maps identity keys to previously minted anchor IDs.
	// Survives Rebuild so identity is stable across scans; reset by Clear.
	knownIDs map[string]string
}

// NewRegistry returns an empty registry with the navigation cursor parked
// before the first anchor.
func NewRegistry() *Registry {
	return &Registry{
		cursor:   -1,
		knownIDs: make(map[string]string),
	}
}

// Rebuild replaces the registry contents from a scan batch.
//
// Results at or above threshold (both sides normalized, so a threshold of
// 60 and a score of 0.82 compare correctly) become anchors. Page-digest
// candidates are never anchored; they have no element to anchor to.
//
// When doc is non-nil, anchored nodes are stamped with AttrID. Anchors keep
// document order when every one of them resolved in doc; otherwise the list
// falls back to score-descending so the riskiest unresolvable finding still
// surfaces first. A nil doc counts as nothing resolved.
//
// The new list is computed fully before the swap. The navigation cursor is
// parked before the first anchor of the new list.
func (r *Registry) Rebuild(doc *goquery.Document, results []model.ScoreResult, candidates []model.Candidate, threshold float64) []model.RiskAnchor {
	threshold = model.NormalizeScore(threshold)

	resultByID := make(map[int]model.ScoreResult, len(results))
	for _, res := range results {
		resultByID[res.ID] = res
	}

	now := time.Now()
	next := make([]model.RiskAnchor, 0, len(results))
	allResolved := doc != nil

	r.mu.Lock()
	defer r.mu.Unlock()

	// Candidates are in document order; walking them (rather than the
	// results, whose order the service controls) keeps anchors in DOM order.
	for _, cand := range candidates {
		res, ok := resultByID[cand.ID]
		if !ok || cand.Kind == model.KindPage {
			continue
		}
		score := model.NormalizeScore(res.Score)
		if score < threshold {
			continue
		}

		key := model.IdentityKey(cand.Locator.Path, cand.Text)
		id, known := r.knownIDs[key]
		if !known {
			id = model.MintAnchorID(key)
			r.knownIDs[key] = id
		}

		label := res.Label
		if label == "" {
			label = model.BucketScore(score)
		}

		a := model.RiskAnchor{
			AnchorID:  id,
			Score:     score,
			Label:     label,
			Locator:   cand.Locator,
			SourceURL: cand.SourceURL,
			Text:      cand.Text,
			RawText:   cand.Text,
			Timestamp: now,
		}
		a.Truncate()

		if doc == nil || !stamp(doc, &a) {
			allResolved = false
		}
		next = append(next, a)
	}

	if !allResolved {
		sort.SliceStable(next, func(i, j int) bool {
			return next[i].Score > next[j].Score
		})
	}

	r.anchors = next
	r.cursor = -1
	return r.snapshotLocked()
}

// stamp writes the anchor ID onto the located node. Resolution tries the
// full locator path, then its first segment; an anchor whose region cannot
// be found at all is kept in the registry but left unstamped.
func stamp(doc *goquery.Document, a *model.RiskAnchor) bool {
	sel := doc.Find(a.Locator.Path)
	if sel.Length() == 0 {
		if prefix := a.Locator.PathPrefix(); prefix != "" && prefix != a.Locator.Path {
			sel = doc.Find(prefix)
		}
	}
	if sel.Length() == 0 {
		return false
	}
	sel.First().SetAttr(AttrID, a.AnchorID)
	return true
}

// Navigate moves the circular cursor by step (+1 forward, -1 backward) and
// returns the anchor under the new cursor along with its index. Navigation
// wraps at both ends. An empty registry yields nil and -1.
func (r *Registry) Navigate(step int) (*model.RiskAnchor, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.anchors)
	if n == 0 {
		r.cursor = -1
		return nil, -1
	}

	if r.cursor < 0 {
		// First navigation lands on an end rather than skipping past it.
		if step >= 0 {
			r.cursor = 0
		} else {
			r.cursor = n - 1
		}
	} else {
		r.cursor = ((r.cursor+step)%n + n) % n
	}

	a := r.anchors[r.cursor]
	return &a, r.cursor
}

// Clear empties the registry, resets the cursor, and forgets known identity
// keys. The next rebuild starts from a blank slate.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.anchors = nil
	r.cursor = -1
	r.knownIDs = make(map[string]string)
}

// List returns a copy of the current anchors in registry order.
func (r *Registry) List() []model.RiskAnchor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// Len returns the number of anchors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.anchors)
}

// Cursor returns the current navigation index, -1 when parked or empty.
func (r *Registry) Cursor() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cursor
}

func (r *Registry) snapshotLocked() []model.RiskAnchor {
	out := make([]model.RiskAnchor, len(r.anchors))
	copy(out, r.anchors)
	return out
}
