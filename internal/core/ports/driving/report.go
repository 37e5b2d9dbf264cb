package driving

import (
	"context"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// ReportService reads persisted reports.
type ReportService interface {
	// Latest returns the newest report of a company.
	Latest(ctx context.Context, companyRef string) (*domain.IntelligenceReport, error)

	// List describes all stored reports.
	List(ctx context.Context) ([]domain.ReportInfo, error)

	// Summarise flattens the newest report of every company into rows.
	Summarise(ctx context.Context) ([]domain.ReportSummaryRow, error)
}
