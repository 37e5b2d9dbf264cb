package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
	"github.com/custodia-labs/signalkb/internal/logger"
)

// Ensure AnalysisService implements the interface.
var _ driving.AnalysisService = (*AnalysisService)(nil)

// AnalysisService runs the read path: plan retrieval, generate, persist.
type AnalysisService struct {
	companies   driving.CompanyService
	index       driven.VectorIndex
	planner     *Planner
	generator   *ReportGenerator
	reports     driven.ReportStore
	catalog     driven.CategoryCatalog
	concurrency int
}

// NewAnalysisService creates a new analysis service. A nil catalog uses the
// default signal categories.
func NewAnalysisService(
	companies driving.CompanyService,
	index driven.VectorIndex,
	planner *Planner,
	generator *ReportGenerator,
	reports driven.ReportStore,
	catalog driven.CategoryCatalog,
	concurrency int,
) *AnalysisService {
	if concurrency <= 0 {
		concurrency = DefaultIngestConcurrency
	}
	return &AnalysisService{
		companies:   companies,
		index:       index,
		planner:     planner,
		generator:   generator,
		reports:     reports,
		catalog:     catalog,
		concurrency: concurrency,
	}
}

// Analyze produces and persists a report for one company. Failures are
// *domain.StageError values naming the company and the failing stage.
// On a validation failure the returned outcome still carries the
// best-effort report for inspection; it is not persisted.
func (s *AnalysisService) Analyze(
	ctx context.Context,
	companyRef string,
	opts driving.AnalyzeOptions,
) (*domain.AnalysisOutcome, error) {
	company, err := s.companies.Resolve(ctx, companyRef)
	if err != nil {
		return nil, &domain.StageError{CompanyID: companyRef, Stage: domain.StageRetrieval, Err: err}
	}
	outcome := &domain.AnalysisOutcome{CompanyID: company.ID}

	categories, err := s.categories()
	if err != nil {
		return nil, &domain.StageError{CompanyID: company.ID, Stage: domain.StageRetrieval, Err: err}
	}

	bundle, err := s.planner.Plan(ctx, *company, categories)
	if err != nil {
		return nil, &domain.StageError{CompanyID: company.ID, Stage: domain.StageRetrieval, Err: err}
	}

	report, err := s.generator.Generate(ctx, bundle, s.generator.Schema(categories))
	if err != nil {
		var verr *domain.SchemaValidationError
		if errors.As(err, &verr) {
			outcome.Report = verr.BestEffort
			outcome.Err = &domain.StageError{CompanyID: company.ID, Stage: domain.StageValidation, Err: err}
			return outcome, outcome.Err
		}
		return nil, &domain.StageError{CompanyID: company.ID, Stage: domain.StageGeneration, Err: err}
	}

	path, err := s.reports.Save(ctx, *company, report, opts.Overwrite)
	if err != nil {
		return nil, &domain.StageError{CompanyID: company.ID, Stage: domain.StagePersist, Err: err}
	}

	logger.Info("Report v%d for %s written to %s", report.Version, company.ID, path)
	outcome.Report = report
	outcome.Path = path
	return outcome, nil
}

// AnalyzeAll analyses every company with indexed content, several at a time.
// Per-company failures are reported in the outcomes, not as an error.
func (s *AnalysisService) AnalyzeAll(ctx context.Context, opts driving.AnalyzeOptions) ([]domain.AnalysisOutcome, error) {
	ids, err := s.index.Companies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexed companies: %w", err)
	}

	outcomes := make([]domain.AnalysisOutcome, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			outcome, err := s.Analyze(gctx, id, opts)
			if outcome != nil {
				outcomes[i] = *outcome
			} else {
				outcomes[i] = domain.AnalysisOutcome{CompanyID: id}
			}
			outcomes[i].Err = err
			if err != nil {
				logger.Warn("Analysis failed: %v", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (s *AnalysisService) categories() ([]domain.SignalCategory, error) {
	if s.catalog == nil {
		return domain.DefaultSignalCategories(), nil
	}
	categories, err := s.catalog.Categories()
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return categories, nil
}
