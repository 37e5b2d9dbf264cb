package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
	"github.com/custodia-labs/signalkb/internal/logger"
)

// Ensure ReportService implements the interface.
var _ driving.ReportService = (*ReportService)(nil)

// ReportService reads persisted reports.
type ReportService struct {
	companies driving.CompanyService
	store     driven.ReportStore
}

// NewReportService creates a new report service.
func NewReportService(companies driving.CompanyService, store driven.ReportStore) *ReportService {
	return &ReportService{companies: companies, store: store}
}

// Latest returns the newest report of a company.
func (s *ReportService) Latest(ctx context.Context, companyRef string) (*domain.IntelligenceReport, error) {
	company, err := s.companies.Resolve(ctx, companyRef)
	if err != nil {
		return nil, err
	}
	return s.store.Latest(ctx, *company)
}

// List describes all stored reports.
func (s *ReportService) List(ctx context.Context) ([]domain.ReportInfo, error) {
	return s.store.List(ctx)
}

// Summarise flattens the newest report of every company into one row each.
// Reports that cannot be loaded are skipped.
func (s *ReportService) Summarise(ctx context.Context) ([]domain.ReportSummaryRow, error) {
	infos, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	// List is ordered by version, so the last entry per company wins.
	latest := make(map[string]domain.ReportInfo)
	var order []string
	for _, info := range infos {
		if _, ok := latest[info.CompanyID]; !ok {
			order = append(order, info.CompanyID)
		}
		latest[info.CompanyID] = info
	}

	rows := make([]domain.ReportSummaryRow, 0, len(order))
	for _, id := range order {
		report, err := s.store.Load(ctx, latest[id].Path)
		if err != nil {
			logger.Warn("Skipping report of %s: %v", id, err)
			continue
		}
		rows = append(rows, flattenReport(report))
	}
	return rows, nil
}

func flattenReport(report *domain.IntelligenceReport) domain.ReportSummaryRow {
	row := domain.ReportSummaryRow{
		CompanyID:   report.CompanyID,
		CompanyName: report.CompanyName,
		Version:     report.Version,
		GeneratedAt: report.GeneratedAt,
		Columns:     make(map[string]string),
	}
	for _, section := range report.OrderedSections() {
		row.Columns[section.Category+"_summary"] = section.Summary
		row.Columns[section.Category+"_confidence"] = string(section.Confidence)
		row.Columns[section.Category+"_findings"] = jsonCell(section.Findings)
	}
	row.Columns["source_citations"] = jsonCell(report.SourceCitations)
	return row
}

// jsonCell keeps a list in a single spreadsheet cell.
func jsonCell(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// WriteSummaryCSV writes summary rows with the company columns first and the
// report columns in sorted order.
func WriteSummaryCSV(w io.Writer, rows []domain.ReportSummaryRow) error {
	keySet := make(map[string]bool)
	for _, r := range rows {
		for k := range r.Columns {
			keySet[k] = true
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cw := csv.NewWriter(w)
	header := append([]string{"company_name", "company_id", "version", "generated_at"}, keys...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		record := []string{r.CompanyName, r.CompanyID, strconv.Itoa(r.Version), r.GeneratedAt.UTC().Format(time.RFC3339)}
		for _, k := range keys {
			record = append(record, r.Columns[k])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write %s: %w", r.CompanyID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
