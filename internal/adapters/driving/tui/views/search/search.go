// Package search provides the knowledge base search view for the TUI.
package search

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
)

// DefaultLimit is the number of chunks a search returns.
const DefaultLimit = 10

// View searches one company's knowledge base: a query input, the ranked
// chunks and a status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.ResultList
	statusbar *status.Bar

	searchService driving.SearchService
	ctx           context.Context
	company       domain.Company

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = typing a query, false = navigating results
	expanded   bool
}

// NewView creates a new search view.
func NewView(s *styles.Styles, km *keymap.KeyMap, searchService driving.SearchService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewQueryInput(s),
		list:          list.NewResultList(s),
		statusbar:     status.NewBar(s, km),
		searchService: searchService,
		ctx:           context.Background(),
		width:         80,
		height:        24,
		focusInput:    true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// SetCompany scopes the view to a company and clears the previous search.
func (v *View) SetCompany(company domain.Company) {
	v.company = company
	name := company.Name
	if name == "" {
		name = company.ID
	}
	v.input.SetLabel("Search " + name)
	v.statusbar.SetCompany(name)
	v.Reset()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	if v.focusInput {
		v.input, cmd = v.input.Update(msg)
	}
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		if v.expanded {
			v.expanded = false
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewCompanies}
		}
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			query := strings.TrimSpace(v.input.Value())
			if query == "" {
				return v, nil
			}
			v.statusbar.SetState(status.StateSearching)
			v.focusInput = false
			v.input.Blur()
			return v, v.performSearch(query)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch msg.String() {
	case "up", "k":
		v.list.MoveUp()
	case "down", "j":
		v.list.MoveDown()
	case "enter":
		v.expanded = !v.expanded && v.list.SelectedResult() != nil
	case "n":
		v.focusInput = true
		v.expanded = false
		v.input.SetValue("")
		v.statusbar.SetHints(nil)
		return v, v.input.Focus()
	}
	return v, nil
}

// performSearch runs the query against the company's knowledge base.
func (v *View) performSearch(query string) tea.Cmd {
	companyID := v.company.ID
	return func() tea.Msg {
		if v.searchService == nil {
			return messages.SearchCompleted{CompanyID: companyID, Query: query, Err: ErrNoSearchService}
		}
		results, err := v.searchService.Search(v.ctx, companyID, query, domain.SearchOptions{K: DefaultLimit})
		return messages.SearchCompleted{CompanyID: companyID, Query: query, Results: results, Err: err}
	}
}

// handleSearchCompleted processes search results.
func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	if msg.CompanyID != v.company.ID {
		return
	}
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.expanded = false
	v.list.SetResults(msg.Results)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetResultCount(len(msg.Results))
	v.statusbar.SetHints(v.keymap.ResultsHelp())
	v.focusInput = false
	v.input.Blur()
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)
	sections = append(sections, v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.expanded {
		sections = append(sections, v.renderExpanded())
	} else {
		sections = append(sections, v.list.View())
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderExpanded shows the full text of the selected chunk.
func (v *View) renderExpanded() string {
	r := v.list.SelectedResult()
	if r == nil {
		return ""
	}
	header := v.styles.Source(r.SourceType).Render(string(r.SourceType)) + " " + v.styles.Subtitle.Render(r.SourceURL)
	body := v.styles.Normal.Width(max(v.width-4, 20)).Render(r.Text)
	footer := v.styles.Citation.Render(r.ChunkID)
	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", footer)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-8) // input, status bar and spacing
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view has been sized.
func (v *View) Ready() bool {
	return v.ready
}

// Company returns the company being searched.
func (v *View) Company() domain.Company {
	return v.company
}

// Query returns the current search query.
func (v *View) Query() string {
	return v.input.Value()
}

// Results returns the current search results.
func (v *View) Results() []domain.RetrievalResult {
	return v.list.Results()
}

// SelectedIndex returns the index of the selected result.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Expanded reports whether the selected chunk is shown in full.
func (v *View) Expanded() bool {
	return v.expanded
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Reset returns the view to an empty query.
func (v *View) Reset() {
	v.focusInput = true
	v.expanded = false
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetResults(nil)
	v.err = nil
	v.statusbar.Clear()
	v.statusbar.SetHints(nil)
}
