package plaintext

import (
	"context"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text payloads such as LinkedIn posts and news articles.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedKinds returns the payload kinds this normaliser handles.
func (n *Normaliser) SupportedKinds() []domain.PayloadKind {
	return []domain.PayloadKind{domain.PayloadText}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise converts a text payload to a single record.
func (n *Normaliser) Normalise(_ context.Context, payload *domain.RawPayload) ([]domain.Record, error) {
	if payload == nil {
		return nil, domain.ErrInvalidInput
	}

	title := payload.Title
	if title == "" {
		title = normalisers.TitleFromURL(payload.SourceURL)
	}

	return []domain.Record{{
		SourceURL: payload.SourceURL,
		Title:     title,
		RawText:   normalisers.CleanText(payload.Text),
	}}, nil
}
