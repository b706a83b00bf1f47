package model

// Risk level cut points used to bucket normalized scores.
// These match the classifier's own bucketing so local and remote labels agree.
const (
	// CutLow is the boundary below which a score is considered safe.
	CutLow = 0.34

	// CutHigh is the boundary at or above which a score is considered high risk.
	CutHigh = 0.6
)

// ScoreResult is a per-candidate score returned by the risk classifier.
// Results are keyed to Candidate.ID from the same scan batch only; matching
// a result against a different batch's candidates is a correlation bug.
type ScoreResult struct {
	// ID is the candidate identifier from the request batch.
	ID int `json:"id"`

	// Score is the normalized risk score in [0,1].
	Score float64 `json:"score"`

	// Label is the classifier's risk bucket (e.g. "HIGH", "MEDIUM", "SAFE").
	Label string `json:"risk"`

	// Highlights are the classifier's flagged phrases, used by the
	// explanation flow. May be empty.
	Highlights []string `json:"highlights,omitempty"`
}

// NormalizeScore clamps a score into [0,1], accepting percentage inputs.
// The settings UI historically exposed thresholds as 0-100 while the
// services speak [0,1]; both representations must filter identically.
func NormalizeScore(v float64) float64 {
	if v > 1 {
		v = v / 100
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// BucketScore maps a normalized score onto a coarse risk label using the
// same cut points as the classifier.
func BucketScore(score float64) string {
	s := NormalizeScore(score)
	switch {
	case s >= CutHigh:
		return "HIGH"
	case s >= CutLow:
		return "MEDIUM"
	default:
		return "SAFE"
	}
}
