package driven

import (
	"context"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// VectorIndex is the company-partitioned similarity index.
//
// Every read is scoped to one company. Upserts are atomic per call and
// replace all earlier entries of the records they contain.
type VectorIndex interface {
	// Upsert stores entries. Existing entries of every record present in
	// the batch are removed first; the batch becomes visible in one step.
	Upsert(ctx context.Context, entries []domain.IndexedEntry) error

	// RemoveRecord deletes every entry of a record.
	RemoveRecord(ctx context.Context, companyID, recordID string) error

	// Search returns the company's entries most similar to the query vector,
	// by descending score with ties broken by ascending chunk id. An empty
	// index yields an empty result, not an error.
	Search(ctx context.Context, query []float32, companyID string, opts domain.SearchOptions) ([]domain.RetrievalResult, error)

	// Count returns the number of entries indexed for a company.
	Count(ctx context.Context, companyID string) (int, error)

	// Companies returns the ids of companies with indexed entries.
	Companies(ctx context.Context) ([]string, error)

	// Persist flushes the index to durable storage. A failed persist leaves
	// the previously persisted state intact.
	Persist(ctx context.Context) error

	// Load replaces the in-memory state with the persisted one.
	Load(ctx context.Context) error

	// Dimensions returns the vector size, or zero before the first entry.
	Dimensions() int

	// Close releases resources.
	Close() error
}
