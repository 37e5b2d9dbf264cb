package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for signalkb resources.
	uriScheme = "signalkb://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "companies",
		Name:        "companies",
		Description: "Companies in the registry",
		MIMEType:    "application/json",
	}, s.handleCompaniesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "companies/{companyId}/report",
		Name:        "company-report",
		Description: "Newest intelligence report of a company",
		MIMEType:    "application/json",
	}, s.handleReportResource)
}

// handleCompaniesResource returns the company registry.
func (s *Server) handleCompaniesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	companies, err := s.ports.Companies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}

	type companyInfo struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		WebsiteURL  string `json:"website_url,omitempty"`
		LinkedInURL string `json:"linkedin_url,omitempty"`
		ReportURI   string `json:"report_uri"`
	}

	infos := make([]companyInfo, len(companies))
	for i, c := range companies {
		infos[i] = companyInfo{
			ID:          c.ID,
			Name:        c.Name,
			WebsiteURL:  c.WebsiteURL,
			LinkedInURL: c.LinkedInURL,
			ReportURI:   uriScheme + "companies/" + c.ID + "/report",
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling companies: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleReportResource returns the newest report of a company.
func (s *Server) handleReportResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Reports == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	companyID := extractCompanyID(req.Params.URI)
	if companyID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	report, err := s.ports.Reports.Latest(ctx, companyID)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnknownCompany) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("loading report: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling report: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractCompanyID extracts the company ID from a URI like signalkb://companies/{companyId}/report.
func extractCompanyID(uri string) string {
	const prefix = uriScheme + "companies/"
	const suffix = "/report"

	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return ""
	}

	id := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
