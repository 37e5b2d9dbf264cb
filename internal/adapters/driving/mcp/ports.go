package mcp

import (
	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides company-scoped semantic search.
	Search driving.SearchService

	// Companies reads the company registry.
	Companies driving.CompanyService

	// Analysis produces reports. Optional; analyze_company fails without it.
	Analysis driving.AnalysisService

	// Reports reads persisted reports. Optional.
	Reports driving.ReportService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Companies == nil {
		return ErrMissingCompanyService
	}
	return nil
}
