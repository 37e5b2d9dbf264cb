// Package menu is the start screen of the terminal browser.
package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/signalkb/internal/adapters/driving/tui/styles"
)

// Item is one entry of the menu. Shortcut selects it directly.
type Item struct {
	Shortcut    string
	Label       string
	Description string
	View        messages.ViewType
	Quit        bool
}

var defaultItems = []Item{
	{Shortcut: "c", Label: "Companies", Description: "browse companies and their latest reports", View: messages.ViewCompanies},
	{Shortcut: "?", Label: "Help", Description: "key bindings", View: messages.ViewHelp},
	{Shortcut: "q", Label: "Quit", Quit: true},
}

// View lists the menu items.
type View struct {
	styles   *styles.Styles
	items    []Item
	selected int
	width    int
	height   int
	ready    bool
}

// NewView creates the menu.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	items := make([]Item, len(defaultItems))
	copy(items, defaultItems)
	return &View{styles: s, items: items, width: 80, height: 24}
}

// Init implements the view contract; the menu loads nothing.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update moves the cursor or activates an item.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "up", "k":
			v.selected = max(v.selected-1, 0)
		case "down", "j":
			v.selected = min(v.selected+1, len(v.items)-1)
		case "enter":
			return v, v.activate(v.items[v.selected])
		default:
			for i, item := range v.items {
				if item.Shortcut == key {
					v.selected = i
					return v, v.activate(item)
				}
			}
		}
	}
	return v, nil
}

func (v *View) activate(item Item) tea.Cmd {
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg { return messages.ViewChanged{View: item.View} }
}

// View renders the title and the items.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("signalkb") + "\n")
	b.WriteString(v.styles.Muted.Render("Company knowledge bases and intelligence reports") + "\n\n")

	for i, item := range v.items {
		cursor, label := "  ", v.styles.Normal.Render(item.Label)
		if i == v.selected {
			cursor, label = "> ", v.styles.Subtitle.Render(item.Label)
		}
		fmt.Fprintf(&b, "%s[%s] %s", cursor, item.Shortcut, label)
		if item.Description != "" {
			b.WriteString("  " + v.styles.Muted.Render(item.Description))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + v.styles.Help.Render("[j/k] move  [enter] open  [q] quit"))
	return b.String()
}

// SetDimensions records the terminal size.
func (v *View) SetDimensions(width, height int) {
	v.width, v.height = width, height
	v.ready = true
}

// Items returns the menu items.
func (v *View) Items() []Item {
	return v.items
}

// Selected returns the cursor position.
func (v *View) Selected() int {
	return v.selected
}
