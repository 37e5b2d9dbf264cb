package driven

import (
	"context"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// Normaliser extracts text records from one payload variant.
// Each normaliser handles specific payload kinds (e.g., PDF, HTML).
type Normaliser interface {
	// SupportedKinds returns the payload kinds this normaliser handles.
	SupportedKinds() []domain.PayloadKind

	// Priority returns the selection priority (higher = preferred).
	// Source-specific normalisers should return 90-100.
	// Generic normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise extracts records from a payload. Most payloads yield one
	// record; paged documents yield one record per page. Records carry
	// RawText, SourceURL and Title; identity and company fields are set by
	// the caller.
	Normalise(ctx context.Context, payload *domain.RawPayload) ([]domain.Record, error)
}

// Chunker splits a record into bounded, overlapping chunks.
type Chunker interface {
	// Chunk splits the record. Text no longer than the chunk size yields one chunk.
	Chunk(record domain.Record) ([]domain.Chunk, error)
}
