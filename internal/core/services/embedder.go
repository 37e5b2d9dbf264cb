package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
)

// Ensure GuardedEmbedder implements the interface.
var _ driven.EmbeddingService = (*GuardedEmbedder)(nil)

// GuardedEmbedder wraps an embedding adapter and enforces its contract:
// no empty input, one vector per input, every vector of the model's size.
type GuardedEmbedder struct {
	inner driven.EmbeddingService
}

// NewGuardedEmbedder wraps an embedding adapter.
func NewGuardedEmbedder(inner driven.EmbeddingService) *GuardedEmbedder {
	return &GuardedEmbedder{inner: inner}
}

// Embed generates a vector embedding for the given text.
func (g *GuardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrEmbedding)
	}
	vec, err := g.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := g.checkVector(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (g *GuardedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: empty text at index %d", domain.ErrEmbedding, i)
		}
	}

	vecs, err := g.inner.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: %d vectors for %d texts", domain.ErrEmbedding, len(vecs), len(texts))
	}
	for i, v := range vecs {
		if err := g.checkVector(v); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
	}
	return vecs, nil
}

func (g *GuardedEmbedder) checkVector(vec []float32) error {
	want := g.inner.Dimensions()
	if want > 0 && len(vec) != want {
		return fmt.Errorf("%w: got %d dimensions, model %s has %d",
			domain.ErrEmbedding, len(vec), g.inner.ModelName(), want)
	}
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrEmbedding)
	}
	return nil
}

// Dimensions returns the embedding vector size.
func (g *GuardedEmbedder) Dimensions() int {
	return g.inner.Dimensions()
}

// ModelName returns the name of the wrapped model.
func (g *GuardedEmbedder) ModelName() string {
	return g.inner.ModelName()
}

// Ping checks the wrapped adapter.
func (g *GuardedEmbedder) Ping(ctx context.Context) error {
	return g.inner.Ping(ctx)
}

// Close releases the wrapped adapter.
func (g *GuardedEmbedder) Close() error {
	return g.inner.Close()
}
