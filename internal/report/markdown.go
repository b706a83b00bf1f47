package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeAnchors(md, report)
	w.writeMedia(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ScanReport) {
	md.H1("MarketGuard Scan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Page URL", "`" + report.URL + "`"},
			{"Scan Date", report.Timestamp.Format("2006-01-02 15:04:05 MST")},
			{"Candidates Sampled", strconv.Itoa(report.CandidateCount)},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.ScanReport) string {
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	if report.Placeholder {
		return "⏸️ Paused (no scan performed)"
	}
	return "✅ Complete"
}

// writeSummary writes the risk summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Risk Summary")
	md.PlainText("")

	badge := "hidden"
	if report.Show {
		badge = "**visible**"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Top Score", fmt.Sprintf("%.0f%%", report.TopScore*100)},
			{"Risk Level", orDash(report.TopLabel)},
			{"Flagged Regions", strconv.Itoa(len(report.Anchors))},
			{"Badge", badge},
		},
	})
	md.PlainText("")

	w.writeAlert(md, report)
}

// writeAlert writes an appropriate alert based on the risk level.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.ScanReport) {
	switch {
	case report.TopLabel == "HIGH":
		md.Cautionf(
			"High-risk content detected with a top score of %.0f%%. %d region(s) were flagged on this page.",
			report.TopScore*100, len(report.Anchors),
		)
	case report.TopLabel == "MEDIUM":
		md.Warningf(
			"Suspicious content detected with a top score of %.0f%%. Review the flagged regions before trusting this page.",
			report.TopScore*100,
		)
	case len(report.Anchors) > 0:
		md.Note("Low-risk matches were found but none crossed the alert threshold.")
	default:
		md.Tip("No risky content detected on this page.")
	}
	md.PlainText("")
}

// writeAnchors writes the flagged regions section.
func (w *MarkdownWriter) writeAnchors(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Risky Regions")
	md.PlainText("")

	if len(report.Anchors) == 0 {
		md.PlainText("No risky regions flagged.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Anchors))
	for i, a := range report.Anchors {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			a.Label,
			fmt.Sprintf("%.0f%%", a.Score*100),
			"`" + snippet(a.Locator.Path, 40) + "`",
			snippet(a.Text, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Level", "Score", "Path", "Text"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeMedia writes the media detection section with a severity chart.
func (w *MarkdownWriter) writeMedia(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Media Detection")
	md.PlainText("")

	if report.Media.Total() == 0 {
		md.PlainText("No media scanned.")
		md.PlainText("")
		return
	}

	levels := []string{"HIGH", "MEDIUM", "LOW", "SAFE", "UNKNOWN"}
	rows := make([][]string, 0, len(levels))
	for _, level := range levels {
		if count := report.Media[level]; count > 0 {
			rows = append(rows, []string{level, strconv.Itoa(count)})
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Verdict", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeMediaChart(md, report)
}

// writeMediaChart writes a mermaid pie chart for media verdicts.
func (w *MarkdownWriter) writeMediaChart(md *markdown.Markdown, report *model.ScanReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Media Verdict Distribution"),
		piechart.WithShowData(true),
	)

	for _, level := range []string{"HIGH", "MEDIUM", "LOW", "SAFE", "UNKNOWN"} {
		if count := report.Media[level]; count > 0 {
			chart.LabelAndIntValue(level, uint64(count))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by MarketGuard*")
}

// orDash substitutes a dash for an empty table cell.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
