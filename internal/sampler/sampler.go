package sampler

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/config"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
)

// candidateSelector matches the content-bearing elements worth scoring.
// The set covers block text, inline text, table cells, headings, and the
// editable controls scammers coax victims into filling out.
const candidateSelector = "p,div,span,li,a,td,th,h1,h2,h3,h4,h5,h6,label," +
	"blockquote,figcaption,button,summary,dd,dt,input,textarea,[contenteditable]"

// ownUIClassPrefixes are class name prefixes of the overlay's own DOM.
// Elements carrying these classes (or nested under them) are never sampled;
// scoring our own warning text would feed back into itself.
var ownUIClassPrefixes = []string{"marketguard", "ss-"}

// pageDigestFloor is the minimum character cap for the whole-page digest
// candidate. The digest gets at least this much even when the per-item
// limit is configured lower.
const pageDigestFloor = 2000

// maxLocatorDepth bounds locator path length. Deeper paths are brittle
// against re-renders and bloat persisted anchors.
const maxLocatorDepth = 5

// Budget bounds how much content a single scan may extract.
type Budget struct {
	// PerItemCharLimit caps the text of one candidate. Longer text is
	// truncated, not dropped.
	PerItemCharLimit int

	// TotalCharBudget caps the combined text across all candidates.
	// The candidate that crosses the budget is truncated to fit.
	TotalCharBudget int

	// MaxItems caps the number of candidates, page digest excluded.
	MaxItems int

	// SkipSelectors are additional CSS selectors whose subtrees are
	// excluded from sampling, typically from per-site configuration.
	SkipSelectors []string
}

// DefaultBudget returns the standard sampling limits.
func DefaultBudget() Budget {
	return Budget{
		PerItemCharLimit: config.DefaultPerItemCharLimit,
		TotalCharBudget:  config.DefaultTotalCharBudget,
		MaxItems:         config.DefaultMaxItems,
	}
}

// Sample extracts score candidates from doc in document order.
//
// Each matched element contributes its direct text (children are matched
// separately, so a container and its paragraphs never duplicate content).
// Editable controls contribute their value plus any placeholder or
// aria-label hint. Invisible elements and the overlay's own UI are skipped.
//
// The result always ends with a whole-page digest candidate when the body
// has any text, even if the item ceiling was reached; the digest is the
// classifier's fallback signal when granular sampling misses context.
//
// Sampling is deterministic: the same document and budget yield the same
// candidate list.
func Sample(doc *goquery.Document, sourceURL string, b Budget) []model.Candidate {
	candidates := make([]model.Candidate, 0, 64)
	used := 0

	doc.Find(candidateSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(candidates) >= b.MaxItems || used >= b.TotalCharBudget {
			return false
		}
		if skipElement(s, b.SkipSelectors) {
			return true
		}

		kind := model.KindText
		var text string
		if isEditable(s) {
			kind = model.KindEditable
			text = editableText(s)
		} else {
			text = normalizeSpace(ownText(s))
		}
		if text == "" {
			return true
		}

		text = truncate(text, b.PerItemCharLimit)
		if remaining := b.TotalCharBudget - used; utf8.RuneCountInString(text) > remaining {
			// The budget-crossing candidate is truncated, not dropped.
			text = truncate(text, remaining)
			if text == "" {
				return false
			}
		}
		used += utf8.RuneCountInString(text)

		candidates = append(candidates, model.Candidate{
			ID:        len(candidates),
			Text:      text,
			Kind:      kind,
			Locator:   locatorFor(s),
			SourceURL: sourceURL,
		})
		return true
	})

	if digest := pageDigest(doc, b.PerItemCharLimit); digest != "" {
		candidates = append(candidates, model.Candidate{
			ID:        len(candidates),
			Text:      digest,
			Kind:      model.KindPage,
			Locator:   model.Locator{Path: "body"},
			SourceURL: sourceURL,
		})
	}

	return candidates
}

// pageDigest returns the normalized body text capped at the digest limit.
func pageDigest(doc *goquery.Document, perItem int) string {
	limit := pageDigestFloor
	if perItem > limit {
		limit = perItem
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}
	return truncate(normalizeSpace(spacedText(body.Get(0))), limit)
}

// spacedText collects all descendant text with a space between text nodes,
// so words from adjacent elements do not run together.
func spacedText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			sb.WriteString(cur.Data)
			sb.WriteByte(' ')
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// skipElement reports whether s is invisible, part of the overlay's own UI,
// or inside an operator-configured skip region. Ancestors are checked too:
// a visible span inside a display:none div is still invisible.
func skipElement(s *goquery.Selection, skipSelectors []string) bool {
	for _, sel := range skipSelectors {
		if s.Closest(sel).Length() > 0 {
			return true
		}
	}
	for cur := s; cur.Length() > 0; cur = cur.Parent() {
		node := cur.Get(0)
		if node.Type != html.ElementNode {
			break
		}
		if hiddenElement(cur) || ownUIElement(cur) {
			return true
		}
		if node.Data == "body" || node.Data == "html" {
			break
		}
	}
	return false
}

// hiddenElement approximates runtime visibility from static attributes:
// the hidden attribute, inline display:none / visibility:hidden styles,
// aria-hidden, and hidden inputs.
func hiddenElement(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	if v, ok := s.Attr("aria-hidden"); ok && v == "true" {
		return true
	}
	if style, ok := s.Attr("style"); ok {
		style = strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return true
		}
	}
	if goquery.NodeName(s) == "input" {
		if t, _ := s.Attr("type"); strings.EqualFold(t, "hidden") {
			return true
		}
	}
	return false
}

// ownUIElement reports whether the element carries one of the overlay's
// reserved class prefixes.
func ownUIElement(s *goquery.Selection) bool {
	class, ok := s.Attr("class")
	if !ok {
		return false
	}
	for _, token := range strings.Fields(class) {
		for _, prefix := range ownUIClassPrefixes {
			if strings.HasPrefix(token, prefix) {
				return true
			}
		}
	}
	return false
}

// isEditable reports whether s is a form control or contenteditable region.
func isEditable(s *goquery.Selection) bool {
	switch goquery.NodeName(s) {
	case "input", "textarea":
		return true
	}
	if v, ok := s.Attr("contenteditable"); ok && !strings.EqualFold(v, "false") {
		return true
	}
	return false
}

// editableText extracts the content of an editable element: its value (or
// text for textarea/contenteditable) joined with any placeholder or
// aria-label hint on a new line. The hint matters: an empty payment field
// whose placeholder says "Enter UPI PIN to claim prize" is itself a signal.
//
// Password inputs are never sampled; their values must not leave the page.
func editableText(s *goquery.Selection) string {
	name := goquery.NodeName(s)
	if name == "input" {
		if t, _ := s.Attr("type"); strings.EqualFold(t, "password") {
			return ""
		}
	}

	var value string
	switch name {
	case "input":
		value, _ = s.Attr("value")
		value = normalizeSpace(value)
	default:
		value = normalizeSpace(s.Text())
	}

	hint, ok := s.Attr("placeholder")
	if !ok || hint == "" {
		hint, _ = s.Attr("aria-label")
	}
	hint = normalizeSpace(hint)

	switch {
	case value != "" && hint != "":
		return value + "\n" + hint
	case value != "":
		return value
	default:
		return hint
	}
}

// ownText returns the text of s's direct text-node children only.
// Nested elements match the selector themselves, so collecting descendants
// here would double-count every container's content.
func ownText(s *goquery.Selection) string {
	node := s.Get(0)
	var sb strings.Builder
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// locatorFor builds a shallow CSS-like path for s, root-most segment first.
// An id terminates the walk early since it already pins the subtree.
func locatorFor(s *goquery.Selection) model.Locator {
	segments := make([]string, 0, maxLocatorDepth)
	for cur := s; cur.Length() > 0 && len(segments) < maxLocatorDepth; cur = cur.Parent() {
		node := cur.Get(0)
		if node.Type != html.ElementNode || node.Data == "html" {
			break
		}
		if id, ok := cur.Attr("id"); ok && id != "" {
			segments = append(segments, node.Data+"#"+id)
			break
		}
		segments = append(segments, node.Data+nthOfType(cur))
		if node.Data == "body" {
			break
		}
	}

	// Reverse into document order.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	return model.Locator{
		Path: strings.Join(segments, " > "),
		Rect: rectFor(s),
	}
}

// nthOfType returns a ":nth-of-type(k)" suffix when s has same-tag siblings,
// or "" when the tag is unique among its siblings.
func nthOfType(s *goquery.Selection) string {
	name := goquery.NodeName(s)
	self := s.Get(0)

	index, count := 0, 0
	if parent := self.Parent; parent != nil {
		for c := parent.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == name {
				count++
				if c == self {
					index = count
				}
			}
		}
	}
	if count <= 1 {
		return ""
	}
	return ":nth-of-type(" + strconv.Itoa(index) + ")"
}

// rectFor derives approximate geometry from width/height attributes.
// Statically parsed documents have no layout, so most elements report zero.
func rectFor(s *goquery.Selection) model.Rect {
	var r model.Rect
	if w, ok := s.Attr("width"); ok {
		if n, err := strconv.Atoi(w); err == nil {
			r.W = n
		}
	}
	if h, ok := s.Attr("height"); ok {
		if n, err := strconv.Atoi(h); err == nil {
			r.H = n
		}
	}
	return r
}

// normalizeSpace collapses runs of whitespace to single spaces and trims.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate caps s at limit runes without splitting a multi-byte character.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
