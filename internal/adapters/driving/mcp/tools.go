package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
)

// defaultSearchK is the number of results returned when none is requested.
const defaultSearchK = 10

// SearchInput is the input schema for the search_company tool.
type SearchInput struct {
	Company     string   `json:"company" jsonschema:"company id or registry name"`
	Query       string   `json:"query" jsonschema:"what to look for in the company's knowledge base"`
	K           int      `json:"k,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	SourceTypes []string `json:"source_types,omitempty" jsonschema:"restrict to sources: linkedin, website, news, app_store, job_board"`
}

// SearchOutput is the output schema for the search_company tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ChunkID    string  `json:"chunk_id"`
	RecordID   string  `json:"record_id"`
	Score      float64 `json:"score"`
	SourceType string  `json:"source_type"`
	SourceURL  string  `json:"source_url"`
	Text       string  `json:"text"`
}

// CompanyInput identifies a company.
type CompanyInput struct {
	Company string `json:"company" jsonschema:"company id or registry name"`
}

// AnalyzeInput is the input schema for the analyze_company tool.
type AnalyzeInput struct {
	Company   string `json:"company" jsonschema:"company id or registry name"`
	Overwrite bool   `json:"overwrite,omitempty" jsonschema:"replace the latest report instead of writing a new version"`
}

// ReportOutput is an intelligence report as returned by the report tools.
type ReportOutput struct {
	ID              string          `json:"id"`
	CompanyID       string          `json:"company_id"`
	CompanyName     string          `json:"company_name"`
	Version         int             `json:"version"`
	GeneratedAt     string          `json:"generated_at"`
	SchemaVersion   string          `json:"schema_version"`
	Path            string          `json:"path,omitempty"`
	Sections        []SectionOutput `json:"sections"`
	SourceCitations []string        `json:"source_citations"`
}

// SectionOutput is one category section of a report.
type SectionOutput struct {
	Category   string   `json:"category"`
	Summary    string   `json:"summary"`
	Findings   []string `json:"findings"`
	Confidence string   `json:"confidence"`
	Citations  []string `json:"citations"`
	NoEvidence bool     `json:"no_evidence,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_company",
		Description: "Semantic search over the scraped knowledge base of one company",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_company",
		Description: "Generate a new intelligence report for a company from its knowledge base",
	}, s.handleAnalyze)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "latest_report",
		Description: "Return the newest stored intelligence report of a company",
	}, s.handleLatestReport)
}

// handleSearch handles the search_company tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	k := input.K
	if k <= 0 {
		k = defaultSearchK
	}

	opts := domain.SearchOptions{K: k}
	for _, st := range input.SourceTypes {
		source := domain.SourceType(st)
		if !source.IsValid() {
			return nil, SearchOutput{}, fmt.Errorf("unknown source type %q", st)
		}
		opts.SourceTypes = append(opts.SourceTypes, source)
	}

	results, err := s.ports.Search.Search(ctx, input.Company, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		output.Results[i] = SearchResultOutput{
			ChunkID:    r.ChunkID,
			RecordID:   r.RecordID,
			Score:      r.Score,
			SourceType: string(r.SourceType),
			SourceURL:  r.SourceURL,
			Text:       r.Text,
		}
	}

	return nil, output, nil
}

// handleAnalyze handles the analyze_company tool invocation.
func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeInput,
) (*mcp.CallToolResult, ReportOutput, error) {
	if s.ports.Analysis == nil {
		return nil, ReportOutput{}, ErrAnalysisUnavailable
	}

	outcome, err := s.ports.Analysis.Analyze(ctx, input.Company, driving.AnalyzeOptions{Overwrite: input.Overwrite})
	if err != nil {
		return nil, ReportOutput{}, err
	}
	return nil, toReportOutput(outcome.Report, outcome.Path), nil
}

// handleLatestReport handles the latest_report tool invocation.
func (s *Server) handleLatestReport(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CompanyInput,
) (*mcp.CallToolResult, ReportOutput, error) {
	if s.ports.Reports == nil {
		return nil, ReportOutput{}, fmt.Errorf("%w: reports are not configured", domain.ErrNotFound)
	}

	report, err := s.ports.Reports.Latest(ctx, input.Company)
	if err != nil {
		return nil, ReportOutput{}, err
	}
	return nil, toReportOutput(report, ""), nil
}

func toReportOutput(report *domain.IntelligenceReport, path string) ReportOutput {
	if report == nil {
		return ReportOutput{}
	}
	out := ReportOutput{
		ID:              report.ID,
		CompanyID:       report.CompanyID,
		CompanyName:     report.CompanyName,
		Version:         report.Version,
		GeneratedAt:     report.GeneratedAt.UTC().Format(time.RFC3339),
		SchemaVersion:   report.SchemaVersion,
		Path:            path,
		SourceCitations: report.SourceCitations,
	}
	for _, sec := range report.OrderedSections() {
		out.Sections = append(out.Sections, SectionOutput{
			Category:   sec.Category,
			Summary:    sec.Summary,
			Findings:   sec.Findings,
			Confidence: string(sec.Confidence),
			Citations:  sec.Citations,
			NoEvidence: sec.NoEvidence,
		})
	}
	return out
}
