// Package companies provides the company registry view for the TUI.
package companies

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
)

// ErrNoCompanyService indicates that no company service was provided.
var ErrNoCompanyService = errors.New("company service not available")

// View lists the registered companies.
type View struct {
	styles         *styles.Styles
	keymap         *keymap.KeyMap
	companyService driving.CompanyService
	ctx            context.Context

	companies []domain.Company
	selected  int
	width     int
	height    int
	err       error
	loading   bool
}

// NewView creates a new companies view.
func NewView(s *styles.Styles, companyService driving.CompanyService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:         s,
		keymap:         keymap.DefaultKeyMap(),
		companyService: companyService,
		ctx:            context.Background(),
		width:          80,
		height:         24,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the company registry.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.loadCompanies()
}

// loadCompanies returns a command that lists the registry.
func (v *View) loadCompanies() tea.Cmd {
	return func() tea.Msg {
		if v.companyService == nil {
			return messages.CompaniesLoaded{Err: ErrNoCompanyService}
		}
		companies, err := v.companyService.List(v.ctx)
		return messages.CompaniesLoaded{Companies: companies, Err: err}
	}
}

// Update handles messages for the companies view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.CompaniesLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.companies = msg.Companies
		if v.selected >= len(v.companies) {
			v.selected = max(len(v.companies)-1, 0)
		}
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
		}
	case keymap.Matches(k, v.keymap.Down):
		if v.selected < len(v.companies)-1 {
			v.selected++
		}
	case keymap.Matches(k, v.keymap.Select):
		if company, ok := v.SelectedCompany(); ok {
			return v, func() tea.Msg {
				return messages.CompanySelected{Company: company}
			}
		}
	case keymap.Matches(k, v.keymap.Search):
		if company, ok := v.SelectedCompany(); ok {
			return v, func() tea.Msg {
				return messages.SearchCompany{Company: company}
			}
		}
	case keymap.Matches(k, v.keymap.Reload):
		return v, v.Init()
	case keymap.Matches(k, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	return v, nil
}

// View renders the companies view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Companies"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading companies..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	case len(v.companies) == 0:
		b.WriteString(v.styles.Muted.Render("No companies registered. Run 'signalkb find-urls import <csv>'."))
	default:
		b.WriteString(v.renderList())
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%d companies", len(v.companies))))
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render(keymap.Hints(v.keymap.CompaniesHelp()...)))
	return b.String()
}

// renderList renders the visible window of companies around the selection.
func (v *View) renderList() string {
	visible := max(v.height-8, 1)
	start := 0
	if v.selected >= visible {
		start = v.selected - visible + 1
	}
	end := min(start+visible, len(v.companies))

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(v.renderCompany(i, &v.companies[i]))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// renderCompany renders a single company line: name, id and website.
func (v *View) renderCompany(index int, company *domain.Company) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	name := list.Truncate(company.Name, 32)
	website := company.WebsiteURL
	if website == "" {
		website = "-"
	}
	website = list.Truncate(website, max(v.width-len(company.ID)-42, 10))

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%-32s  %s  %s", indicator, name, company.ID, website))
	}
	return v.styles.Normal.Render(fmt.Sprintf("%s%-32s  ", indicator, name)) +
		v.styles.Subtitle.Render(company.ID) + "  " +
		v.styles.Muted.Render(website)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Companies returns the loaded companies.
func (v *View) Companies() []domain.Company {
	return v.companies
}

// SelectedIndex returns the highlighted company index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedCompany returns the highlighted company.
func (v *View) SelectedCompany() (domain.Company, bool) {
	if v.selected < 0 || v.selected >= len(v.companies) {
		return domain.Company{}, false
	}
	return v.companies[v.selected], true
}

// Loading reports whether the registry is being loaded.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
