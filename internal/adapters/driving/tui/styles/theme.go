// Package styles holds the palette and lipgloss styles of the terminal browser.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// Theme is a colour palette. Confidence levels and source types each map to
// one of its colours.
type Theme struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Accent     lipgloss.Color
	Background lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme returns the dark palette used when nothing else is configured.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#E0AF68"), // amber
		Secondary:  lipgloss.Color("#7DCFFF"), // sky
		Accent:     lipgloss.Color("#BB9AF7"), // lavender
		Background: lipgloss.Color("#1A1B26"),
		Foreground: lipgloss.Color("#C0CAF5"),
		Muted:      lipgloss.Color("#565F89"),
		Border:     lipgloss.Color("#3B4261"),
		Success:    lipgloss.Color("#9ECE6A"),
		Warning:    lipgloss.Color("#FF9E64"),
		Error:      lipgloss.Color("#F7768E"),
	}
}

// Styles are the rendered styles derived from a Theme.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Help     lipgloss.Style

	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Border     lipgloss.Style

	// Section headings and citation lists of a report.
	Section  lipgloss.Style
	Citation lipgloss.Style

	confidence map[domain.Confidence]lipgloss.Style
	sources    map[domain.SourceType]lipgloss.Color
}

// NewStyles derives styles from theme, or from DefaultTheme when nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	rounded := lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(theme.Border)

	return &Styles{
		theme: theme,

		Title:    fg(theme.Primary).Bold(true),
		Subtitle: fg(theme.Secondary).Bold(true),
		Normal:   fg(theme.Foreground),
		Muted:    fg(theme.Muted),
		Selected: fg(theme.Background).Background(theme.Primary).Bold(true),
		Help:     fg(theme.Muted).Italic(true),

		Error:   fg(theme.Error).Bold(true),
		Success: fg(theme.Success),
		Warning: fg(theme.Warning),

		InputField: rounded.Padding(0, 1),
		StatusBar:  fg(theme.Foreground).Background(theme.Border).Padding(0, 1),
		Border:     rounded,

		Section:  fg(theme.Secondary).Bold(true).Underline(true),
		Citation: fg(theme.Muted).Italic(true),

		confidence: map[domain.Confidence]lipgloss.Style{
			domain.ConfidenceHigh:   fg(theme.Success).Bold(true),
			domain.ConfidenceMedium: fg(theme.Accent),
			domain.ConfidenceLow:    fg(theme.Warning),
		},
		sources: map[domain.SourceType]lipgloss.Color{
			domain.SourceLinkedIn: theme.Secondary,
			domain.SourceWebsite:  theme.Primary,
			domain.SourceNews:     theme.Accent,
			domain.SourceAppStore: theme.Success,
			domain.SourceJobBoard: theme.Warning,
		},
	}
}

// DefaultStyles returns styles for DefaultTheme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were derived from.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Confidence styles a report section's confidence level. "none" and unknown
// levels render muted.
func (s *Styles) Confidence(c domain.Confidence) lipgloss.Style {
	if st, ok := s.confidence[c]; ok {
		return st
	}
	return s.Muted
}

// Source styles the badge of a search hit's source type.
func (s *Styles) Source(t domain.SourceType) lipgloss.Style {
	bg, ok := s.sources[t]
	if !ok {
		bg = s.theme.Muted
	}
	return lipgloss.NewStyle().Foreground(s.theme.Background).Background(bg).Padding(0, 1)
}
