package model

import "time"

// MediaSummary aggregates per-level counts from a media detection pass.
// Keys are the detection service's levels: HIGH, MEDIUM, LOW, SAFE, UNKNOWN.
type MediaSummary map[string]int

// Total returns the number of media items counted.
func (m MediaSummary) Total() int {
	n := 0
	for _, c := range m {
		n += c
	}
	return n
}

// ScanReport is the aggregate result of one scan pass over a document.
// It is what report writers render and what the store persists per scan.
type ScanReport struct {
	// URL is the scanned document URL.
	URL string `json:"url"`

	// Timestamp records when the scan completed.
	Timestamp time.Time `json:"timestamp"`

	// TopScore is the highest normalized candidate score in the batch.
	TopScore float64 `json:"top_score"`

	// TopLabel is the classifier bucket of the top-scoring candidate.
	TopLabel string `json:"top_label"`

	// CandidateCount is the number of text candidates sampled.
	CandidateCount int `json:"candidate_count"`

	// Anchors is the ordered live anchor list after the rebuild.
	Anchors []RiskAnchor `json:"anchors,omitempty"`

	// Media summarizes the optional media detection pass.
	Media MediaSummary `json:"media,omitempty"`

	// Show records the visibility decision derived from this scan.
	Show bool `json:"show"`

	// Placeholder is true when scanning was paused and the badge should
	// render a neutral placeholder instead of a score.
	Placeholder bool `json:"placeholder,omitempty"`

	// ErrorMessage records a degraded scan (service failure) in
	// human-readable form. Empty on success.
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewScanReport creates a report shell for the given document URL.
func NewScanReport(url string) *ScanReport {
	return &ScanReport{
		URL:       url,
		Timestamp: time.Now(),
	}
}
