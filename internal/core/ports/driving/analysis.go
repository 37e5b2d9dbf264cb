package driving

import (
	"context"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// AnalyzeOptions configures an analysis run.
type AnalyzeOptions struct {
	// Overwrite replaces the latest report instead of writing a new version.
	Overwrite bool
}

// AnalysisService produces intelligence reports.
type AnalysisService interface {
	// Analyze plans retrieval, generates and persists a report for one
	// company. Failures are *domain.StageError values naming the stage.
	Analyze(ctx context.Context, companyRef string, opts AnalyzeOptions) (*domain.AnalysisOutcome, error)

	// AnalyzeAll analyses every company with indexed content.
	AnalyzeAll(ctx context.Context, opts AnalyzeOptions) ([]domain.AnalysisOutcome, error)
}
