package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/signalkb/internal/adapters/driven/storage/reports"
	"github.com/custodia-labs/signalkb/internal/core/domain"
)

func sampleReport(company domain.Company, summary string) *domain.IntelligenceReport {
	return &domain.IntelligenceReport{
		ID:            "r-" + company.ID,
		CompanyID:     company.ID,
		CompanyName:   company.Name,
		GeneratedAt:   generatedAt,
		SchemaVersion: "1.0",
		SectionOrder:  []string{"strategy", "hiring"},
		Sections: map[string]domain.ReportSection{
			"strategy": {Category: "strategy", Summary: summary, Findings: []string{"Kenya launch"},
				Confidence: domain.ConfidenceHigh, Citations: []string{"c1"}},
			"hiring": {Category: "hiring", Summary: domain.NoEvidenceSummary, Findings: []string{},
				Confidence: domain.ConfidenceNone, Citations: []string{}, NoEvidence: true},
		},
		SourceCitations: []string{"https://news.example/1"},
	}
}

func newReportFixture(t *testing.T) (*ReportService, *reports.Store) {
	t.Helper()
	f := newFixture(t)
	store, err := reports.NewStore(t.TempDir())
	require.NoError(t, err)
	return NewReportService(NewCompanyService(f.companies), store), store
}

func TestReportService_Latest(t *testing.T) {
	svc, store := newReportFixture(t)
	ctx := context.Background()

	_, err := svc.Latest(ctx, "acme")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Save(ctx, acmeCompany, sampleReport(acmeCompany, "first"), false)
	require.NoError(t, err)
	_, err = store.Save(ctx, acmeCompany, sampleReport(acmeCompany, "second"), false)
	require.NoError(t, err)

	latest, err := svc.Latest(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, "second", latest.Sections["strategy"].Summary)

	_, err = svc.Latest(ctx, "hooli")
	assert.ErrorIs(t, err, domain.ErrUnknownCompany)
}

func TestReportService_Summarise(t *testing.T) {
	svc, store := newReportFixture(t)
	ctx := context.Background()

	_, err := store.Save(ctx, acmeCompany, sampleReport(acmeCompany, "old"), false)
	require.NoError(t, err)
	_, err = store.Save(ctx, acmeCompany, sampleReport(acmeCompany, "new"), false)
	require.NoError(t, err)
	_, err = store.Save(ctx, globexCompany, sampleReport(globexCompany, "globex"), false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "broken_analysis_v0001.json"), []byte("{"), 0600))

	infos, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 3)

	rows, err := svc.Summarise(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	acme := rows[0]
	assert.Equal(t, "acme", acme.CompanyID)
	assert.Equal(t, 2, acme.Version)
	assert.Equal(t, "new", acme.Columns["strategy_summary"])
	assert.Equal(t, "high", acme.Columns["strategy_confidence"])
	assert.Equal(t, `["Kenya launch"]`, acme.Columns["strategy_findings"])
	assert.Equal(t, "[]", acme.Columns["hiring_findings"])
	assert.Equal(t, `["https://news.example/1"]`, acme.Columns["source_citations"])

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{
		"company_name", "company_id", "version", "generated_at",
		"hiring_confidence", "hiring_findings", "hiring_summary", "source_citations",
		"strategy_confidence", "strategy_findings", "strategy_summary",
	}, records[0])
	assert.Equal(t, "Acme", records[1][0])
	assert.Equal(t, "2", records[1][2])
	assert.Equal(t, generatedAt.UTC().Format(time.RFC3339), records[1][3])
	assert.Equal(t, "Globex Corporation LLC", records[2][0])
}

func TestWriteSummaryCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaryCSV(&buf, nil))
	assert.Equal(t, "company_name,company_id,version,generated_at\n", buf.String())
}
