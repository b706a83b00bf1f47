package model

// CandidateKind categorizes what part of the document a candidate came from.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons. The String() method provides the wire
// representation sent to the classifier as metadata.
type CandidateKind int

const (
	// KindText is rendered text extracted from a block or inline element.
	KindText CandidateKind = iota

	// KindEditable is the value (plus placeholder hint) of a form control
	// or contenteditable region.
	KindEditable

	// KindPage is the whole-page digest candidate appended at the end of
	// every batch as a fallback signal.
	KindPage

	// KindMedia is an image or video region sampled for deepfake detection.
	KindMedia
)

// String returns the wire representation of the candidate kind.
func (k CandidateKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindEditable:
		return "editable"
	case KindPage:
		return "page"
	case KindMedia:
		return "media"
	default:
		return "unknown"
	}
}

// Rect is the bounding geometry recorded alongside a locator.
// For statically parsed documents the geometry is approximate; it is carried
// as descriptive metadata for the scoring services, never used for identity.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Locator is a structural description used to re-find or describe a region.
// Path is a shallow CSS-like path (tag, #id, .classes, :nth-of-type) built
// from at most a handful of ancestors; deep paths would be brittle against
// re-renders and bloat persisted anchors.
type Locator struct {
	// Path is the CSS-like selector path, segments joined by " > ".
	Path string `json:"path"`

	// Rect is the approximate bounding geometry of the region.
	Rect Rect `json:"rect"`
}

// PathPrefix returns the first segment of the locator path.
// Navigation falls back to this prefix when an anchored element can no
// longer be resolved by its stamped identifier.
func (l Locator) PathPrefix() string {
	for i := 0; i < len(l.Path); i++ {
		if l.Path[i] == '>' {
			// Trim the trailing space before the separator.
			end := i
			for end > 0 && l.Path[end-1] == ' ' {
				end--
			}
			return l.Path[:end]
		}
	}
	return l.Path
}

// Candidate is a sampled unit of page content eligible for scoring in one
// scan batch. Candidates are produced fresh on each scan and never persisted;
// their IDs are only meaningful within the batch that produced them.
type Candidate struct {
	// ID is the batch-local identifier used to correlate score results.
	// It is assigned in document traversal order starting from zero.
	ID int `json:"id"`

	// Text is the extracted content, capped at the per-item character limit.
	Text string `json:"text"`

	// Kind describes where the text came from.
	Kind CandidateKind `json:"kind"`

	// Locator describes how to re-find the region in the live document.
	Locator Locator `json:"locator"`

	// SourceURL is the URL of the document the candidate was sampled from.
	SourceURL string `json:"source_url,omitempty"`
}

// MediaCandidate is a sampled media region (image or video) eligible for
// deepfake detection. Media candidates go through the detection service
// rather than the text classifier.
type MediaCandidate struct {
	// ID is the batch-local identifier, shared numbering space with text
	// candidates is not required; media batches correlate by slice index.
	ID int `json:"id"`

	// Kind is "image" or "video" as expected by the detection service.
	Kind string `json:"kind"`

	// SourceURL is the resolved absolute URL of the media resource.
	SourceURL string `json:"source_url"`

	// Locator describes the element's position in the document.
	Locator Locator `json:"locator"`
}
