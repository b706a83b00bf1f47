package anchor

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
)

// TestRegistryPropertyIdentityStable checks with generated inputs that
// anchor identity depends only on locator path and text prefix, never on
// candidate numbering.
func TestRegistryPropertyIdentityStable(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		path := rapid.StringMatching(`div#[a-z]{1,8} > p:nth-of-type\([1-9]\)`).Draw(rt, "path")
		text := rapid.StringN(-1, 200, -1).Filter(func(s string) bool { return s != "" }).Draw(rt, "text")
		score := rapid.Float64Range(0.5, 1).Draw(rt, "score")

		firstID := rapid.IntRange(0, 499).Draw(rt, "firstID")
		secondID := rapid.IntRange(0, 499).Draw(rt, "secondID")

		r := NewRegistry()
		first := r.Rebuild(nil, []model.ScoreResult{{ID: firstID, Score: score}},
			[]model.Candidate{{ID: firstID, Text: text, Locator: model.Locator{Path: path}}}, 0.5)
		second := r.Rebuild(nil, []model.ScoreResult{{ID: secondID, Score: score}},
			[]model.Candidate{{ID: secondID, Text: text, Locator: model.Locator{Path: path}}}, 0.5)

		if len(first) != 1 || len(second) != 1 {
			rt.Fatalf("expected one anchor per rebuild, got %d and %d", len(first), len(second))
		}
		if first[0].AnchorID != second[0].AnchorID {
			rt.Fatalf("identity changed across renumbering: %s vs %s",
				first[0].AnchorID, second[0].AnchorID)
		}
	})
}

// TestRegistryPropertyNavigateInBounds checks that the cursor always stays
// within the registry after arbitrary navigation sequences.
func TestRegistryPropertyNavigateInBounds(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "anchors")

		candidates := make([]model.Candidate, n)
		results := make([]model.ScoreResult, n)
		for i := range n {
			candidates[i] = model.Candidate{
				ID:      i,
				Text:    "text " + string(rune('a'+i)),
				Locator: model.Locator{Path: "p:nth-of-type(" + string(rune('1'+i)) + ")"},
			}
			results[i] = model.ScoreResult{ID: i, Score: 0.9}
		}

		r := NewRegistry()
		r.Rebuild(nil, results, candidates, 0.5)

		steps := rapid.SliceOfN(rapid.SampledFrom([]int{-1, 1}), 1, 32).Draw(rt, "steps")
		for _, step := range steps {
			a, idx := r.Navigate(step)
			if n == 0 {
				if a != nil || idx != -1 {
					rt.Fatalf("empty registry returned anchor %v index %d", a, idx)
				}
				continue
			}
			if a == nil {
				rt.Fatalf("populated registry returned nil anchor")
			}
			if idx < 0 || idx >= n {
				rt.Fatalf("cursor %d out of bounds for %d anchors", idx, n)
			}
		}
	})
}
