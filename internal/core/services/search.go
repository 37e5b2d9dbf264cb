package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
	"github.com/custodia-labs/signalkb/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultSearchK is the number of results returned when none is requested.
const DefaultSearchK = 10

// SearchService provides ad-hoc semantic search over one company's knowledge base.
type SearchService struct {
	companies driving.CompanyService
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
}

// NewSearchService creates a new search service.
func NewSearchService(
	companies driving.CompanyService,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
) *SearchService {
	if _, ok := embedder.(*GuardedEmbedder); !ok && embedder != nil {
		embedder = NewGuardedEmbedder(embedder)
	}
	return &SearchService{
		companies: companies,
		embedder:  embedder,
		index:     index,
	}
}

// Search embeds the query and searches the knowledge base of one company.
// An empty query returns no results.
func (s *SearchService) Search(
	ctx context.Context,
	companyRef, query string,
	opts domain.SearchOptions,
) ([]domain.RetrievalResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Company: %q, query: %q", companyRef, query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.RetrievalResult{}, nil
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	company, err := s.companies.Resolve(ctx, companyRef)
	if err != nil {
		return nil, err
	}

	if opts.K <= 0 {
		opts.K = DefaultSearchK
	}
	logger.Debug("K: %d, sources: %v, min score: %.2f", opts.K, opts.SourceTypes, opts.MinScore)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.index.Search(ctx, vec, company.ID, opts)
	if err != nil {
		logger.Warn("Search failed: %v", err)
		return nil, fmt.Errorf("search %s: %w", company.ID, err)
	}

	logger.Info("Final results: %d", len(results))
	return results, nil
}
