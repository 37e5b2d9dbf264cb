package driving

import (
	"context"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// IngestService builds the knowledge base from scraped payloads.
type IngestService interface {
	// Ingest normalises, chunks, embeds and indexes payloads, replacing
	// earlier entries of re-scraped records. Per-payload failures are
	// tallied, not returned; an error means the index could not be persisted.
	Ingest(ctx context.Context, payloads []domain.RawPayload) (*domain.IngestSummary, error)

	// RemoveRecord deletes a record and its indexed chunks.
	RemoveRecord(ctx context.Context, recordID string) error

	// Stats returns the number of indexed chunks per company.
	Stats(ctx context.Context) (map[string]int, error)
}
