package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
)

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	pingErr     error

	embeddingProvider domain.AIProvider
	llmProvider       domain.AIProvider
	model             string
	apiKey            string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.embeddingProvider, m.model, m.apiKey = p, model, apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.llmProvider, m.model, m.apiKey = p, model, apiKey
	return nil
}

func (m *mockSettingsService) Validate() error                 { return m.validateErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error  { return m.pingErr }
func (m *mockSettingsService) ValidateLLMConfig() error        { return m.pingErr }

// mockCompanyService implements driving.CompanyService for testing.
type mockCompanyService struct {
	companies []domain.Company
	imported  string
	added     domain.Company
	err       error
}

func (m *mockCompanyService) Import(_ context.Context, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.imported = string(data)
	return strings.Count(strings.TrimSpace(m.imported), "\n"), m.err
}

func (m *mockCompanyService) Add(_ context.Context, c domain.Company) (*domain.Company, error) {
	if m.err != nil {
		return nil, m.err
	}
	c.ID = domain.CompanyIDFromName(c.Name)
	m.added = c
	return &c, nil
}

func (m *mockCompanyService) Get(ctx context.Context, id string) (*domain.Company, error) {
	return m.Resolve(ctx, id)
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

// mockIngestService implements driving.IngestService for testing.
type mockIngestService struct {
	payloads []domain.RawPayload
	stats    map[string]int
	removed  string
	err      error
}

func (m *mockIngestService) Ingest(_ context.Context, payloads []domain.RawPayload) (*domain.IngestSummary, error) {
	m.payloads = append(m.payloads, payloads...)
	summary := domain.NewIngestSummary()
	for _, p := range payloads {
		t := summary.Tally(p.CompanyID)
		t.Succeeded++
		t.Chunks += 2
	}
	return summary, m.err
}

func (m *mockIngestService) RemoveRecord(_ context.Context, recordID string) error {
	m.removed = recordID
	return m.err
}

func (m *mockIngestService) Stats(_ context.Context) (map[string]int, error) {
	return m.stats, m.err
}

// mockAnalysisService implements driving.AnalysisService for testing.
type mockAnalysisService struct {
	outcome  *domain.AnalysisOutcome
	outcomes []domain.AnalysisOutcome
	err      error

	ref  string
	opts driving.AnalyzeOptions
}

func (m *mockAnalysisService) Analyze(
	_ context.Context, ref string, opts driving.AnalyzeOptions,
) (*domain.AnalysisOutcome, error) {
	m.ref, m.opts = ref, opts
	return m.outcome, m.err
}

func (m *mockAnalysisService) AnalyzeAll(_ context.Context, opts driving.AnalyzeOptions) ([]domain.AnalysisOutcome, error) {
	m.opts = opts
	return m.outcomes, m.err
}

// mockReportService implements driving.ReportService for testing.
type mockReportService struct {
	report *domain.IntelligenceReport
	infos  []domain.ReportInfo
	rows   []domain.ReportSummaryRow
	err    error
}

func (m *mockReportService) Latest(_ context.Context, _ string) (*domain.IntelligenceReport, error) {
	return m.report, m.err
}

func (m *mockReportService) List(_ context.Context) ([]domain.ReportInfo, error) {
	return m.infos, m.err
}

func (m *mockReportService) Summarise(_ context.Context) ([]domain.ReportSummaryRow, error) {
	return m.rows, m.err
}

// mockSearchService implements driving.SearchService for testing.
type mockSearchService struct {
	results []domain.RetrievalResult
	err     error

	company string
	query   string
	opts    domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context, company, query string, opts domain.SearchOptions,
) ([]domain.RetrievalResult, error) {
	m.company, m.query, m.opts = company, query, opts
	return m.results, m.err
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	settings  *mockSettingsService
	companies *mockCompanyService
	ingest    *mockIngestService
	analysis  *mockAnalysisService
	reports   *mockReportService
	search    *mockSearchService
}

// setupTestServices installs fresh mocks and returns a cleanup function
// restoring the previous services.
func setupTestServices() (*testServices, func()) {
	old := Services{
		Settings: settingsService,
		Company:  companyService,
		Ingest:   ingestService,
		Analysis: analysisService,
		Report:   reportService,
		Search:   searchService,
	}

	ts := &testServices{
		settings: &mockSettingsService{settings: domain.DefaultAppSettings()},
		companies: &mockCompanyService{companies: []domain.Company{
			{ID: "acme", Name: "Acme", WebsiteURL: "https://acme.example"},
		}},
		ingest:   &mockIngestService{},
		analysis: &mockAnalysisService{},
		reports:  &mockReportService{},
		search:   &mockSearchService{},
	}
	SetServices(Services{
		Settings: ts.settings,
		Company:  ts.companies,
		Ingest:   ts.ingest,
		Analysis: ts.analysis,
		Report:   ts.reports,
		Search:   ts.search,
	})

	return ts, func() { SetServices(old) }
}

// resetFlags restores flag variables, which outlive a single Execute.
func resetFlags() {
	verbose = false
	companiesJSON, companyWebsite, companyLinkedInURL = false, "", ""
	analyzeAll, analyzeJSON, analyzeOverwrite = false, false, false
	reportJSON = false
	versionShort = false
	searchLimit, searchSources, searchJSON = 10, nil, false
	for _, c := range rootCmd.Commands() {
		if strings.HasPrefix(c.Name(), "scrape-") {
			_ = c.Flags().Set("watch", "")
		}
	}
}

// execute runs the root command and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func sampleReport() *domain.IntelligenceReport {
	return &domain.IntelligenceReport{
		ID:            "rep-1",
		CompanyID:     "acme",
		CompanyName:   "Acme",
		Version:       2,
		GeneratedAt:   time.Now().Add(-2 * time.Hour),
		SchemaVersion: "1.0",
		Model:         "llama3.2",
		SectionOrder:  []string{"strategy", "hiring"},
		Sections: map[string]domain.ReportSection{
			"strategy": {Category: "strategy", Summary: domain.NoEvidenceSummary, Findings: []string{},
				Confidence: domain.ConfidenceNone, Citations: []string{}, NoEvidence: true},
			"hiring": {Category: "hiring", Summary: "Acme is hiring credit analysts.",
				Findings: []string{"Senior credit analyst opening"}, Confidence: domain.ConfidenceMedium,
				Citations: []string{"chunk-3"}},
		},
		SourceCitations: []string{"https://jobs.example/1"},
	}
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "signalkb", rootCmd.Use)
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{
		"find-urls", "companies", "scrape-linkedin", "scrape-website", "scrape-news",
		"scrape-app-store", "scrape-job-board", "analyze", "report", "search",
		"index", "settings", "mcp", "tui", "version",
	} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootCmd_VerboseFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	if assert.NotNil(t, flag) {
		assert.Equal(t, "v", flag.Shorthand)
	}
}

func TestCommands_RequireServices(t *testing.T) {
	old := Services{
		Settings: settingsService, Company: companyService, Ingest: ingestService,
		Analysis: analysisService, Report: reportService, Search: searchService,
	}
	SetServices(Services{})
	defer SetServices(old)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"companies", "list"}, "company service not configured"},
		{[]string{"scrape-news", "x.jsonl"}, "ingest service not configured"},
		{[]string{"analyze", "acme"}, "analysis service not configured"},
		{[]string{"report", "list"}, "report service not configured"},
		{[]string{"search", "acme", "hiring"}, "search service not configured"},
		{[]string{"index", "stats"}, "ingest service not configured"},
		{[]string{"settings", "show"}, "settings service not configured"},
		{[]string{"tui"}, "company service not configured"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}
}

// newTestCmd returns a bare command writing to buf, for helpers that take a command.
func newTestCmd(buf *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetContext(context.Background())
	return cmd
}
