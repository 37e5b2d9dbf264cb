// Package mcp provides an MCP (Model Context Protocol) server adapter for signalkb.
// It lets AI assistants search company knowledge bases and read intelligence reports.
package mcp

import "errors"

var (
	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrMissingCompanyService is returned when the company service is not provided.
	ErrMissingCompanyService = errors.New("mcp: company service is required")

	// ErrAnalysisUnavailable is returned by analyze_company when no LLM is configured.
	ErrAnalysisUnavailable = errors.New("mcp: analysis is not configured")
)
