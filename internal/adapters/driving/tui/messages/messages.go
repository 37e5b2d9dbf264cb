// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewCompanies lists the registered companies.
	ViewCompanies
	// ViewReport shows the latest report of a company.
	ViewReport
	// ViewSearch searches the knowledge base of a company.
	ViewSearch
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewCompanies:
		return "companies"
	case ViewReport:
		return "report"
	case ViewSearch:
		return "search"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// CompaniesLoaded carries the company registry.
type CompaniesLoaded struct {
	Companies []domain.Company
	Err       error
}

// CompanySelected opens the latest report of a company.
type CompanySelected struct {
	Company domain.Company
}

// SearchCompany opens the search view scoped to a company.
type SearchCompany struct {
	Company domain.Company
}

// ReportLoaded carries the latest report of a company.
type ReportLoaded struct {
	CompanyID string
	Report    *domain.IntelligenceReport
	Err       error
}

// SearchCompleted carries search results back to the model.
type SearchCompleted struct {
	CompanyID string
	Query     string
	Results   []domain.RetrievalResult
	Err       error
}
