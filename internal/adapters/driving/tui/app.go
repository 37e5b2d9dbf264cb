package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/views/companies"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/views/report"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	menuView      *menu.View
	companiesView *companies.View
	reportView    *report.View
	searchView    *search.View

	// company is the company last opened from the list.
	company *domain.Company

	currentView messages.ViewType
	err         error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keymap:        km,
		menuView:      menu.NewView(s),
		companiesView: companies.NewView(s, ports.Companies),
		reportView:    report.NewView(s, ports.Reports),
		searchView:    search.NewView(s, km, ports.Search),
		currentView:   messages.ViewMenu,
	}, nil
}

// WithContext sets the context service calls run under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.companiesView.WithContext(ctx)
	a.reportView.WithContext(ctx)
	a.searchView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("signalkb"),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message router
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a, a.routeKey(msg)

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewCompanies:
			return a, a.companiesView.Init()
		case messages.ViewSearch:
			return a, a.searchView.Init()
		case messages.ViewMenu, messages.ViewReport, messages.ViewHelp:
		}
		return a, nil

	case messages.CompanySelected:
		a.company = &msg.Company
		a.currentView = messages.ViewReport
		return a, a.reportView.SetCompany(msg.Company)

	case messages.SearchCompany:
		a.company = &msg.Company
		a.currentView = messages.ViewSearch
		a.searchView.SetCompany(msg.Company)
		return a, a.searchView.Init()

	case messages.CompaniesLoaded:
		a.companiesView, cmd = a.companiesView.Update(msg)
		return a, cmd

	case messages.ReportLoaded:
		a.reportView, cmd = a.reportView.Update(msg)
		return a, cmd

	case messages.SearchCompleted:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		if a.currentView == messages.ViewSearch {
			a.searchView, cmd = a.searchView.Update(msg)
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

// routeKey sends a key press to the active view.
func (a *App) routeKey(msg tea.KeyMsg) tea.Cmd {
	if a.currentView == messages.ViewHelp {
		if msg.Type == tea.KeyEsc {
			a.currentView = messages.ViewMenu
		}
		return nil
	}
	return a.forward(msg)
}

// forward sends a message to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewCompanies:
		a.companiesView, cmd = a.companiesView.Update(msg)
	case messages.ViewReport:
		a.reportView, cmd = a.reportView.Update(msg)
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
	case messages.ViewHelp:
	}
	return cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewCompanies:
		return a.companiesView.View()
	case messages.ViewReport:
		return a.reportView.View()
	case messages.ViewSearch:
		return a.searchView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	case messages.ViewMenu:
	}
	return a.menuView.View()
}

var helpGroups = []string{"Move", "Companies and search", "General"}

// viewHelp lists the key bindings, grouped as in KeyMap.FullHelp.
func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help") + "\n")
	for i, group := range a.keymap.FullHelp() {
		if i < len(helpGroups) {
			b.WriteString("\n" + a.styles.Subtitle.Render(helpGroups[i]) + "\n")
		}
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "  %-8s %s\n", h.Key, h.Desc)
		}
	}
	b.WriteString("\nIn search results, enter shows the full chunk and esc closes it.\n\n")
	b.WriteString(a.styles.Help.Render("[esc] back to menu"))
	return b.String()
}

// Run starts the TUI and blocks until the user quits or the context ends.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.companiesView.SetDimensions(width, height)
	a.reportView.SetDimensions(width, height)
	a.searchView.SetDimensions(width, height)
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Company returns the company last opened, or nil.
func (a *App) Company() *domain.Company {
	return a.company
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}
