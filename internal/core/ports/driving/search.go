package driving

import (
	"context"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// SearchService provides ad-hoc, company-scoped semantic search.
type SearchService interface {
	// Search embeds the query and searches the knowledge base of one company.
	// companyRef may be a company id or registry name.
	Search(ctx context.Context, companyRef, query string, opts domain.SearchOptions) ([]domain.RetrievalResult, error)
}
