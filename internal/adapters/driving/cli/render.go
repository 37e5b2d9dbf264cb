package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// Palette used for console output.
var (
	colourPrimary   = lipgloss.Color("#7C3AED")
	colourSecondary = lipgloss.Color("#06B6D4")
	colourMuted     = lipgloss.Color("#6C7086")
	colourSuccess   = lipgloss.Color("#A6E3A1")
	colourWarning   = lipgloss.Color("#F9E2AF")
	colourError     = lipgloss.Color("#F38BA8")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary)
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colourSecondary)
	mutedStyle   = lipgloss.NewStyle().Foreground(colourMuted)
	successStyle = lipgloss.NewStyle().Foreground(colourSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colourWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colourError)
)

// confidenceStyle picks the colour of a confidence badge.
func confidenceStyle(c domain.Confidence) lipgloss.Style {
	switch c {
	case domain.ConfidenceHigh:
		return successStyle
	case domain.ConfidenceMedium:
		return warningStyle
	case domain.ConfidenceLow:
		return errorStyle
	default:
		return mutedStyle
	}
}

// renderReport writes a report for reading on a terminal.
func renderReport(w io.Writer, report *domain.IntelligenceReport, path string) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s (v%d)", report.CompanyName, report.Version)))
	meta := fmt.Sprintf("generated %s", humanize.Time(report.GeneratedAt))
	if report.Model != "" {
		meta += " by " + report.Model
	}
	if path != "" {
		meta += ", saved to " + path
	}
	fmt.Fprintln(w, mutedStyle.Render(meta))

	for _, sec := range report.OrderedSections() {
		fmt.Fprintln(w)
		badge := confidenceStyle(sec.Confidence).Render("[" + string(sec.Confidence) + "]")
		fmt.Fprintf(w, "%s %s\n", headingStyle.Render(sec.Category), badge)
		fmt.Fprintf(w, "  %s\n", sec.Summary)
		for _, f := range sec.Findings {
			fmt.Fprintf(w, "  - %s\n", f)
		}
		if len(sec.Citations) > 0 {
			fmt.Fprintln(w, mutedStyle.Render("  cites: "+strings.Join(sec.Citations, ", ")))
		}
	}

	if len(report.SourceCitations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headingStyle.Render("Sources"))
		for _, src := range report.SourceCitations {
			fmt.Fprintf(w, "  %s\n", src)
		}
	}
}

// renderIngestTallies writes the per-company outcome of an ingestion run.
func renderIngestTallies(w io.Writer, summary *domain.IngestSummary) {
	for _, t := range summary.Ordered() {
		status := successStyle.Render("ok")
		if t.Failed > 0 {
			status = warningStyle.Render(fmt.Sprintf("%d failed", t.Failed))
		}
		fmt.Fprintf(w, "%-30s %s records, %s chunks, %s\n",
			t.CompanyID, humanize.Comma(int64(t.Succeeded)), humanize.Comma(int64(t.Chunks)), status)
		for _, msg := range t.Errors {
			fmt.Fprintln(w, mutedStyle.Render("  "+msg))
		}
	}
	ok, failed := summary.Totals()
	fmt.Fprintf(w, "Indexed %s records, %s failed.\n", humanize.Comma(int64(ok)), humanize.Comma(int64(failed)))
}

// renderAnalysisTally writes the per-company outcome of an analysis run.
func renderAnalysisTally(w io.Writer, outcomes []domain.AnalysisOutcome) {
	var ok, failed int
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(w, "%-30s %s %v\n", o.CompanyID, errorStyle.Render("failed"), o.Err)
			continue
		}
		ok++
		fmt.Fprintf(w, "%-30s %s v%d %s\n", o.CompanyID, successStyle.Render("ok"), o.Report.Version, mutedStyle.Render(o.Path))
	}
	fmt.Fprintf(w, "Analysed %d companies, %d failed.\n", ok, failed)
}

// formatTime renders a timestamp relative to now, or "-" when unset.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
