// Package report provides the intelligence report view for the TUI.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
)

// ErrNoReportService indicates that no report service was provided.
var ErrNoReportService = errors.New("report service not available")

// reserved is the number of lines taken by the header and footer.
const reserved = 6

// View shows the latest report of a company in a scrollable viewport.
type View struct {
	styles        *styles.Styles
	keymap        *keymap.KeyMap
	reportService driving.ReportService
	ctx           context.Context
	viewport      viewport.Model

	company domain.Company
	report  *domain.IntelligenceReport
	width   int
	height  int
	err     error
	loading bool
}

// NewView creates a new report view.
func NewView(s *styles.Styles, reportService driving.ReportService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:        s,
		keymap:        keymap.DefaultKeyMap(),
		reportService: reportService,
		ctx:           context.Background(),
		viewport:      viewport.New(80, 24-reserved),
		width:         80,
		height:        24,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init implements the view lifecycle; loading starts from SetCompany.
func (v *View) Init() tea.Cmd {
	return nil
}

// SetCompany switches the view to a company and loads its latest report.
func (v *View) SetCompany(company domain.Company) tea.Cmd {
	v.company = company
	v.report = nil
	v.err = nil
	v.loading = true
	v.viewport.SetContent("")
	v.viewport.GotoTop()
	return v.loadReport(company.ID)
}

// loadReport returns a command that loads the latest report.
func (v *View) loadReport(companyID string) tea.Cmd {
	return func() tea.Msg {
		if v.reportService == nil {
			return messages.ReportLoaded{CompanyID: companyID, Err: ErrNoReportService}
		}
		report, err := v.reportService.Latest(v.ctx, companyID)
		return messages.ReportLoaded{CompanyID: companyID, Report: report, Err: err}
	}
}

// Update handles messages for the report view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.ReportLoaded:
		// A reply for a company the user already navigated away from.
		if msg.CompanyID != v.company.ID {
			return v, nil
		}
		v.loading = false
		v.err = msg.Err
		v.report = msg.Report
		v.refresh()
		return v, nil

	case tea.KeyMsg:
		k := msg.String()
		switch {
		case keymap.Matches(k, v.keymap.Back):
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewCompanies}
			}
		case keymap.Matches(k, v.keymap.Search):
			company := v.company
			return v, func() tea.Msg {
				return messages.SearchCompany{Company: company}
			}
		case keymap.Matches(k, v.keymap.Reload):
			return v, v.SetCompany(v.company)
		}
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// refresh re-renders the report into the viewport.
func (v *View) refresh() {
	if v.report == nil {
		v.viewport.SetContent("")
		return
	}
	v.viewport.SetContent(v.render(v.report))
}

// render formats the report sections for the current width.
func (v *View) render(r *domain.IntelligenceReport) string {
	wrap := v.styles.Normal.Width(max(v.width-4, 20))
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", v.styles.Muted.Render(fmt.Sprintf(
		"Version %d, generated %s (%s)", r.Version, humanize.Time(r.GeneratedAt),
		r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))))
	if r.Model != "" {
		fmt.Fprintf(&b, "%s\n", v.styles.Muted.Render(fmt.Sprintf("Model %s, schema %s", r.Model, r.SchemaVersion)))
	}

	for _, id := range r.SectionOrder {
		section, ok := r.Sections[id]
		if !ok {
			continue
		}
		b.WriteString("\n")
		b.WriteString(v.styles.Section.Render(id))
		b.WriteString("  ")
		b.WriteString(v.styles.Confidence(section.Confidence).Render(string(section.Confidence)))
		b.WriteString("\n")

		if section.NoEvidence {
			b.WriteString(v.styles.Muted.Render(section.Summary))
			b.WriteString("\n")
			continue
		}
		b.WriteString(wrap.Render(section.Summary))
		b.WriteString("\n")
		for _, finding := range section.Findings {
			b.WriteString(wrap.Render("  - " + finding))
			b.WriteString("\n")
		}
		if len(section.Citations) > 0 {
			b.WriteString(v.styles.Citation.Render("cites " + strings.Join(section.Citations, ", ")))
			b.WriteString("\n")
		}
	}

	if len(r.SourceCitations) > 0 {
		b.WriteString("\n")
		b.WriteString(v.styles.Subtitle.Render("Sources"))
		b.WriteString("\n")
		for _, url := range r.SourceCitations {
			b.WriteString(v.styles.Muted.Render("  " + url))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// View renders the report view.
func (v *View) View() string {
	var b strings.Builder

	title := v.company.Name
	if title == "" {
		title = v.company.ID
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading report..."))
	case errors.Is(v.err, domain.ErrNotFound):
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf(
			"No report yet. Run 'signalkb analyze %s'.", v.company.ID)))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	default:
		b.WriteString(v.viewport.View())
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render(fmt.Sprintf("%s  %3.0f%%",
		keymap.Hints(v.keymap.ReportHelp()...), v.viewport.ScrollPercent()*100)))
	return b.String()
}

// SetDimensions sets the view dimensions and re-wraps the report.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(height-reserved, 1)
	v.refresh()
}

// Company returns the company being shown.
func (v *View) Company() domain.Company {
	return v.company
}

// Report returns the loaded report, or nil.
func (v *View) Report() *domain.IntelligenceReport {
	return v.report
}

// Offset returns the scroll offset of the viewport.
func (v *View) Offset() int {
	return v.viewport.YOffset
}

// Loading reports whether the report is being loaded.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
