package mcp

import (
	"context"
	"io"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.RetrievalResult
	err     error

	company string
	query   string
	opts    domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	company, query string,
	opts domain.SearchOptions,
) ([]domain.RetrievalResult, error) {
	m.company, m.query, m.opts = company, query, opts
	return m.results, m.err
}

// mockCompanyService is a mock implementation of driving.CompanyService.
type mockCompanyService struct {
	companies []domain.Company
	err       error
}

func (m *mockCompanyService) Import(_ context.Context, _ io.Reader) (int, error) {
	return 0, m.err
}

func (m *mockCompanyService) Add(_ context.Context, c domain.Company) (*domain.Company, error) {
	return &c, m.err
}

func (m *mockCompanyService) Get(_ context.Context, id string) (*domain.Company, error) {
	return m.Resolve(context.Background(), id)
}

func (m *mockCompanyService) List(_ context.Context) ([]domain.Company, error) {
	return m.companies, m.err
}

func (m *mockCompanyService) Resolve(_ context.Context, ref string) (*domain.Company, error) {
	for i := range m.companies {
		if m.companies[i].ID == ref {
			return &m.companies[i], nil
		}
	}
	return nil, domain.ErrUnknownCompany
}

// mockAnalysisService is a mock implementation of driving.AnalysisService.
type mockAnalysisService struct {
	outcome *domain.AnalysisOutcome
	err     error
	opts    driving.AnalyzeOptions
}

func (m *mockAnalysisService) Analyze(
	_ context.Context, _ string, opts driving.AnalyzeOptions,
) (*domain.AnalysisOutcome, error) {
	m.opts = opts
	return m.outcome, m.err
}

func (m *mockAnalysisService) AnalyzeAll(_ context.Context, _ driving.AnalyzeOptions) ([]domain.AnalysisOutcome, error) {
	return nil, m.err
}

// mockReportService is a mock implementation of driving.ReportService.
type mockReportService struct {
	report *domain.IntelligenceReport
	err    error
}

func (m *mockReportService) Latest(_ context.Context, _ string) (*domain.IntelligenceReport, error) {
	return m.report, m.err
}

func (m *mockReportService) List(_ context.Context) ([]domain.ReportInfo, error) {
	return nil, m.err
}

func (m *mockReportService) Summarise(_ context.Context) ([]domain.ReportSummaryRow, error) {
	return nil, m.err
}
