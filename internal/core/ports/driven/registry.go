package driven

import (
	"context"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for a payload.
// It maintains a priority-ordered list of normalisers and dispatches
// based on payload kind.
type NormaliserRegistry interface {
	// Normalise extracts records using the best matching normaliser.
	Normalise(ctx context.Context, payload *domain.RawPayload) ([]domain.Record, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedKinds returns all payload kinds that can be normalised.
	SupportedKinds() []domain.PayloadKind
}
