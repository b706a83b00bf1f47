package sampler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
)

// MediaCandidates enumerates visible images and videos worth sending to
// deepfake detection. Elements smaller than minSize pixels in either
// declared dimension are skipped; tracking pixels and icons carry no
// detectable faces. Elements with no declared size are kept, since static
// parsing cannot know their rendered dimensions.
//
// Relative source URLs are resolved against base. Data URLs pass through
// unchanged; sources that cannot be resolved are skipped.
func MediaCandidates(doc *goquery.Document, base *url.URL, minSize int) []model.MediaCandidate {
	media := make([]model.MediaCandidate, 0, 8)

	doc.Find("img,video").Each(func(_ int, s *goquery.Selection) {
		if skipElement(s, nil) {
			return
		}

		rect := rectFor(s)
		if declaredTooSmall(rect, minSize) {
			return
		}

		src := mediaSource(s)
		if src == "" {
			return
		}
		resolved := resolveSource(src, base)
		if resolved == "" {
			return
		}

		kind := "image"
		if goquery.NodeName(s) == "video" {
			kind = "video"
		}

		media = append(media, model.MediaCandidate{
			ID:        len(media),
			Kind:      kind,
			SourceURL: resolved,
			Locator:   locatorFor(s),
		})
	})

	return media
}

// declaredTooSmall reports whether a declared dimension falls below the
// minimum. A zero dimension means "not declared" and does not disqualify.
func declaredTooSmall(r model.Rect, minSize int) bool {
	if r.W > 0 && r.W < minSize {
		return true
	}
	if r.H > 0 && r.H < minSize {
		return true
	}
	return false
}

// mediaSource returns the element's source URL. Videos may carry the
// source on the element itself or on a nested <source> child.
func mediaSource(s *goquery.Selection) string {
	if src, ok := s.Attr("src"); ok && src != "" {
		return src
	}
	if goquery.NodeName(s) == "video" {
		if src, ok := s.Find("source").First().Attr("src"); ok && src != "" {
			return src
		}
	}
	return ""
}

// resolveSource makes src absolute against base. Data URLs are already
// self-contained; anything unparseable is dropped.
func resolveSource(src string, base *url.URL) string {
	if strings.HasPrefix(src, "data:") {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if base == nil {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	return base.ResolveReference(ref).String()
}
