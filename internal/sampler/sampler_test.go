package sampler

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
)

// parseDoc is a test helper that parses an HTML fragment into a document.
func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse test document: %v", err)
	}
	return doc
}

// findByKind returns candidates of the given kind.
func findByKind(candidates []model.Candidate, kind model.CandidateKind) []model.Candidate {
	var out []model.Candidate
	for _, c := range candidates {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// TestSampleBasicExtraction verifies that text elements are sampled in
// document order with sequential IDs.
func TestSampleBasicExtraction(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<html><body>
		<h1>Guaranteed returns!</h1>
		<p>Double your money in 7 days.</p>
		<p>DM me on WhatsApp to invest.</p>
	</body></html>`)

	got := Sample(doc, "https://scam.example", DefaultBudget())

	texts := findByKind(got, model.KindText)
	if len(texts) != 3 {
		t.Fatalf("expected 3 text candidates, got %d", len(texts))
	}
	if texts[0].Text != "Guaranteed returns!" {
		t.Errorf("expected heading first, got %q", texts[0].Text)
	}
	if texts[1].Text != "Double your money in 7 days." {
		t.Errorf("expected first paragraph second, got %q", texts[1].Text)
	}

	// IDs are batch-local and sequential
	for i, c := range got {
		if c.ID != i {
			t.Errorf("candidate %d has ID %d, want %d", i, c.ID, i)
		}
	}

	// Source URL is carried on every candidate
	for _, c := range got {
		if c.SourceURL != "https://scam.example" {
			t.Errorf("candidate %d missing source URL, got %q", c.ID, c.SourceURL)
		}
	}
}

// TestSamplePageDigest verifies the whole-page digest candidate.
func TestSamplePageDigest(t *testing.T) {
	t.Parallel()

	t.Run("digest is appended last", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><body><p>One</p><p>Two</p></body></html>`)
		got := Sample(doc, "", DefaultBudget())
		if len(got) == 0 {
			t.Fatal("expected candidates, got none")
		}
		last := got[len(got)-1]
		if last.Kind != model.KindPage {
			t.Fatalf("expected last candidate to be the page digest, got kind %v", last.Kind)
		}
		if last.Text != "One Two" {
			t.Errorf("expected digest %q, got %q", "One Two", last.Text)
		}
		if last.Locator.Path != "body" {
			t.Errorf("expected digest locator body, got %q", last.Locator.Path)
		}
	})

	t.Run("nested element boundaries keep words apart", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><body><div><span>Pay</span><b>now</b></div><p>today</p></body></html>`)
		got := Sample(doc, "", DefaultBudget())
		if len(got) == 0 {
			t.Fatal("expected candidates, got none")
		}
		digest := got[len(got)-1]
		if digest.Text != "Pay now today" {
			t.Errorf("expected digest %q, got %q", "Pay now today", digest.Text)
		}
	})

	t.Run("digest gets at least the 2000-char floor", func(t *testing.T) {
		t.Parallel()

		long := strings.Repeat("x", 3000)
		doc := parseDoc(t, "<html><body><p>"+long+"</p></body></html>")

		b := DefaultBudget()
		b.PerItemCharLimit = 100
		got := Sample(doc, "", b)

		digest := got[len(got)-1]
		if digest.Kind != model.KindPage {
			t.Fatalf("expected page digest, got kind %v", digest.Kind)
		}
		if len(digest.Text) != 2000 {
			t.Errorf("expected digest capped at 2000, got %d", len(digest.Text))
		}
	})

	t.Run("empty body produces no digest", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><body></body></html>`)
		got := Sample(doc, "", DefaultBudget())
		if len(got) != 0 {
			t.Errorf("expected no candidates for empty body, got %d", len(got))
		}
	})
}

// TestSampleVisibility verifies invisible elements are skipped.
func TestSampleVisibility(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<html><body>
		<p>visible</p>
		<p hidden>hidden attribute</p>
		<p style="display: none">inline display none</p>
		<p style="visibility:hidden">inline visibility hidden</p>
		<p aria-hidden="true">aria hidden</p>
		<div style="display:none"><span>inside hidden ancestor</span></div>
		<input type="hidden" value="csrf-token">
	</body></html>`)

	got := Sample(doc, "", DefaultBudget())

	for _, c := range got {
		if c.Kind == model.KindPage {
			continue
		}
		if c.Text != "visible" {
			t.Errorf("unexpected candidate %q sampled from invisible element", c.Text)
		}
	}
	if len(findByKind(got, model.KindText)) != 1 {
		t.Errorf("expected exactly one visible text candidate, got %d", len(findByKind(got, model.KindText)))
	}
}

// TestSampleOwnUISkipped verifies the overlay's own DOM is never sampled.
func TestSampleOwnUISkipped(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<html><body>
		<p>page content</p>
		<div class="marketguard-overlay"><p>This page looks risky</p></div>
		<div class="ss-badge"><span>98% risk</span></div>
	</body></html>`)

	got := Sample(doc, "", DefaultBudget())

	for _, c := range got {
		if strings.Contains(c.Text, "risk") && c.Kind != model.KindPage {
			t.Errorf("overlay UI text was sampled: %q", c.Text)
		}
	}
}

// TestSampleEditable verifies editable value and hint extraction.
func TestSampleEditable(t *testing.T) {
	t.Parallel()

	t.Run("input value with placeholder hint", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><body>
			<input value="victim@upi" placeholder="Enter UPI ID to claim prize">
		</body></html>`)
		got := findByKind(Sample(doc, "", DefaultBudget()), model.KindEditable)
		if len(got) != 1 {
			t.Fatalf("expected 1 editable candidate, got %d", len(got))
		}
		want := "victim@upi\nEnter UPI ID to claim prize"
		if got[0].Text != want {
			t.Errorf("expected %q, got %q", want, got[0].Text)
		}
	})

	t.Run("empty input with placeholder only", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><body>
			<input placeholder="Enter OTP to verify">
		</body></html>`)
		got := findByKind(Sample(doc, "", DefaultBudget()), model.KindEditable)
		if len(got) != 1 {
			t.Fatalf("expected 1 editable candidate, got %d", len(got))
		}
		if got[0].Text != "Enter OTP to verify" {
			t.Errorf("expected placeholder-only text, got %q", got[0].Text)
		}
	})

	t.Run("password inputs are never sampled", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><body>
			<input type="password" value="hunter2" placeholder="Password">
		</body></html>`)
		got := findByKind(Sample(doc, "", DefaultBudget()), model.KindEditable)
		if len(got) != 0 {
			t.Errorf("expected password input to be skipped, got %d candidates", len(got))
		}
	})

	t.Run("contenteditable region uses its text", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><body>
			<div contenteditable="true">send money to this account</div>
		</body></html>`)
		got := findByKind(Sample(doc, "", DefaultBudget()), model.KindEditable)
		if len(got) != 1 {
			t.Fatalf("expected 1 editable candidate, got %d", len(got))
		}
		if got[0].Text != "send money to this account" {
			t.Errorf("unexpected text %q", got[0].Text)
		}
	})
}

// TestSampleBudgets verifies per-item, total, and item-count limits.
func TestSampleBudgets(t *testing.T) {
	t.Parallel()

	t.Run("per-item limit truncates long text", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, "<html><body><p>"+strings.Repeat("a", 900)+"</p></body></html>")
		b := DefaultBudget()
		got := findByKind(Sample(doc, "", b), model.KindText)
		if len(got) != 1 {
			t.Fatalf("expected 1 candidate, got %d", len(got))
		}
		if len(got[0].Text) != b.PerItemCharLimit {
			t.Errorf("expected text truncated to %d, got %d", b.PerItemCharLimit, len(got[0].Text))
		}
	})

	t.Run("total budget truncates the crossing candidate", func(t *testing.T) {
		t.Parallel()

		var sb strings.Builder
		sb.WriteString("<html><body>")
		for range 5 {
			sb.WriteString("<p>" + strings.Repeat("b", 100) + "</p>")
		}
		sb.WriteString("</body></html>")
		doc := parseDoc(t, sb.String())

		b := DefaultBudget()
		b.TotalCharBudget = 250
		got := findByKind(Sample(doc, "", b), model.KindText)

		// 100 + 100 + 50(truncated) = 250
		if len(got) != 3 {
			t.Fatalf("expected 3 candidates, got %d", len(got))
		}
		if len(got[2].Text) != 50 {
			t.Errorf("expected crossing candidate truncated to 50, got %d", len(got[2].Text))
		}
	})

	t.Run("item ceiling stops sampling but digest still appended", func(t *testing.T) {
		t.Parallel()

		var sb strings.Builder
		sb.WriteString("<html><body>")
		for range 10 {
			sb.WriteString("<p>item</p>")
		}
		sb.WriteString("</body></html>")
		doc := parseDoc(t, sb.String())

		b := DefaultBudget()
		b.MaxItems = 4
		got := Sample(doc, "", b)

		if n := len(findByKind(got, model.KindText)); n != 4 {
			t.Errorf("expected 4 text candidates, got %d", n)
		}
		if got[len(got)-1].Kind != model.KindPage {
			t.Error("expected page digest even after hitting the item ceiling")
		}
	})
}

// TestSampleNoParentChildDuplication verifies that a container and its
// children never contribute the same text twice.
func TestSampleNoParentChildDuplication(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<html><body>
		<div><p>only once</p></div>
	</body></html>`)

	got := findByKind(Sample(doc, "", DefaultBudget()), model.KindText)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %+v", len(got), got)
	}
	if got[0].Text != "only once" {
		t.Errorf("expected %q, got %q", "only once", got[0].Text)
	}
}

// TestSampleDeterminism verifies identical documents produce identical lists.
func TestSampleDeterminism(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<h1>Offer</h1>
		<p>Act now, limited time.</p>
		<input placeholder="Enter card number">
	</body></html>`

	first := Sample(parseDoc(t, html), "https://x.example", DefaultBudget())
	second := Sample(parseDoc(t, html), "https://x.example", DefaultBudget())

	if len(first) != len(second) {
		t.Fatalf("candidate counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("candidate %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

// TestSampleLocators verifies locator path construction.
func TestSampleLocators(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<html><body>
		<div id="offers">
			<p>first</p>
			<p>second</p>
		</div>
	</body></html>`)

	got := findByKind(Sample(doc, "", DefaultBudget()), model.KindText)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}

	if got[0].Locator.Path != "div#offers > p:nth-of-type(1)" {
		t.Errorf("unexpected locator path %q", got[0].Locator.Path)
	}
	if got[1].Locator.Path != "div#offers > p:nth-of-type(2)" {
		t.Errorf("unexpected locator path %q", got[1].Locator.Path)
	}
	if got[0].Locator.PathPrefix() != "div#offers" {
		t.Errorf("unexpected path prefix %q", got[0].Locator.PathPrefix())
	}
}

// TestMediaCandidates verifies media enumeration and size filtering.
func TestMediaCandidates(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://shop.example/product")
	if err != nil {
		t.Fatalf("failed to parse base URL: %v", err)
	}

	t.Run("images and videos are enumerated with absolute URLs", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><body>
			<img src="/img/ceo-endorsement.jpg" width="400" height="300">
			<video><source src="testimonial.mp4"></video>
		</body></html>`)

		got := MediaCandidates(doc, base, 32)
		if len(got) != 2 {
			t.Fatalf("expected 2 media candidates, got %d", len(got))
		}
		if got[0].Kind != "image" || got[0].SourceURL != "https://shop.example/img/ceo-endorsement.jpg" {
			t.Errorf("unexpected image candidate %+v", got[0])
		}
		if got[1].Kind != "video" || got[1].SourceURL != "https://shop.example/testimonial.mp4" {
			t.Errorf("unexpected video candidate %+v", got[1])
		}
	})

	t.Run("tiny declared dimensions are skipped", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><body>
			<img src="/pixel.gif" width="1" height="1">
			<img src="/icon.png" width="16">
			<img src="/photo.jpg" width="640" height="480">
			<img src="/unsized.jpg">
		</body></html>`)

		got := MediaCandidates(doc, base, 32)
		if len(got) != 2 {
			t.Fatalf("expected 2 media candidates, got %d: %+v", len(got), got)
		}
		if got[0].SourceURL != "https://shop.example/photo.jpg" {
			t.Errorf("unexpected first candidate %q", got[0].SourceURL)
		}
		if got[1].SourceURL != "https://shop.example/unsized.jpg" {
			t.Errorf("unexpected second candidate %q", got[1].SourceURL)
		}
	})

	t.Run("hidden media is skipped", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><body>
			<img src="/hidden.jpg" style="display:none">
		</body></html>`)
		if got := MediaCandidates(doc, base, 32); len(got) != 0 {
			t.Errorf("expected hidden media to be skipped, got %d", len(got))
		}
	})

	t.Run("data URLs pass through", func(t *testing.T) {
		t.Parallel()

		doc := parseDoc(t, `<html><body>
			<img src="data:image/png;base64,iVBORw0KGgo=">
		</body></html>`)
		got := MediaCandidates(doc, base, 32)
		if len(got) != 1 {
			t.Fatalf("expected 1 media candidate, got %d", len(got))
		}
		if !strings.HasPrefix(got[0].SourceURL, "data:image/png") {
			t.Errorf("expected data URL preserved, got %q", got[0].SourceURL)
		}
	})
}
