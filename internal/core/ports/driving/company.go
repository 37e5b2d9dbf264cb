package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// CompanyService manages the company registry.
type CompanyService interface {
	// Import loads companies from a URL-discovery CSV and returns how many were saved.
	Import(ctx context.Context, r io.Reader) (int, error)

	// Add registers a single company.
	Add(ctx context.Context, company domain.Company) (*domain.Company, error)

	// Get retrieves a company by id.
	Get(ctx context.Context, id string) (*domain.Company, error)

	// List returns all registered companies.
	List(ctx context.Context) ([]domain.Company, error)

	// Resolve finds a company by id or by (cleaned) name.
	Resolve(ctx context.Context, ref string) (*domain.Company, error)
}
