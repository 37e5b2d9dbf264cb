// Package tui provides an interactive terminal browser for company knowledge
// bases and their intelligence reports. It is a driving adapter alongside
// the CLI and the MCP server.
package tui

import (
	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI needs.
type Ports struct {
	// Companies lists the company registry.
	Companies driving.CompanyService

	// Reports loads stored intelligence reports.
	Reports driving.ReportService

	// Search queries a company knowledge base. Optional: without an
	// embedding provider the search view reports it is unavailable.
	Search driving.SearchService
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Companies == nil {
		return ErrMissingCompanyService
	}
	if p.Reports == nil {
		return ErrMissingReportService
	}
	return nil
}
