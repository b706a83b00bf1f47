package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeAnchors(&sb, report)
	w.writeMedia(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with scan information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.ScanReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       MARKETGUARD SCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Page URL:   %s\n", report.URL))
	sb.WriteString(fmt.Sprintf("Scan Date:  %s\n", report.Timestamp.Format("2006-01-02 15:04:05 MST")))

	switch {
	case report.ErrorMessage != "":
		sb.WriteString(fmt.Sprintf("Status:     ERROR - %s\n", report.ErrorMessage))
	case report.Placeholder:
		sb.WriteString("Status:     PAUSED (no scan performed)\n")
	default:
		sb.WriteString("Status:     Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the risk summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.ScanReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RISK SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Top Score:   %.0f%%\n", report.TopScore*100))
	if report.TopLabel != "" {
		sb.WriteString(fmt.Sprintf("  Risk Level:  %s\n", report.TopLabel))
	}
	sb.WriteString(fmt.Sprintf("  Candidates:  %d sampled\n", report.CandidateCount))
	sb.WriteString(fmt.Sprintf("  Anchors:     %d flagged\n", len(report.Anchors)))

	if report.Show {
		sb.WriteString("  Badge:       VISIBLE\n")
	} else {
		sb.WriteString("  Badge:       hidden\n")
	}
	sb.WriteString("\n")
}

// writeAnchors writes the flagged anchors section.
func (w *SimpleWriter) writeAnchors(sb *strings.Builder, report *model.ScanReport) {
	if len(report.Anchors) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RISKY REGIONS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Anchors) == 0 {
		sb.WriteString("  No risky regions flagged\n\n")
		return
	}

	for i, a := range report.Anchors {
		sb.WriteString(fmt.Sprintf("  %d. [%s %.0f%%] %s\n",
			i+1, a.Label, a.Score*100, snippet(a.Text, 60)))
		if w.verbose {
			sb.WriteString(fmt.Sprintf("     ID:   %s\n", a.AnchorID))
			sb.WriteString(fmt.Sprintf("     Path: %s\n", a.Locator.Path))
		}
	}
	sb.WriteString("\n")
}

// writeMedia writes the media detection section.
func (w *SimpleWriter) writeMedia(sb *strings.Builder, report *model.ScanReport) {
	if report.Media.Total() == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("MEDIA DETECTION\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if report.Media.Total() == 0 {
		sb.WriteString("  No media scanned\n\n")
		return
	}

	for _, level := range []string{"HIGH", "MEDIUM", "LOW", "SAFE", "UNKNOWN"} {
		count, ok := report.Media[level]
		if !ok && !w.showEmpty {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-8s %d\n", level+":", count))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by MarketGuard\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// snippet truncates s to maxLen characters with ellipsis and collapses
// newlines so multi-line candidate text stays on one report line.
func snippet(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
