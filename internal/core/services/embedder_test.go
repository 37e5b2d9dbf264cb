package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/signalkb/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// brokenEmbedder returns vectors that violate the adapter contract.
type brokenEmbedder struct {
	dims      int
	vectorLen int
	dropLast  bool
	calls     int
}

func (b *brokenEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	b.calls++
	return make([]float32, b.vectorLen), nil
}

func (b *brokenEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	b.calls++
	n := len(texts)
	if b.dropLast {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, b.vectorLen)
	}
	return out, nil
}

func (b *brokenEmbedder) Dimensions() int              { return b.dims }
func (b *brokenEmbedder) ModelName() string            { return "broken" }
func (b *brokenEmbedder) Ping(_ context.Context) error { return nil }
func (b *brokenEmbedder) Close() error                 { return nil }

func TestGuardedEmbedder_RejectsEmptyText(t *testing.T) {
	inner := &brokenEmbedder{dims: 4, vectorLen: 4}
	g := NewGuardedEmbedder(inner)

	_, err := g.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrEmbedding)

	_, err = g.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, domain.ErrEmbedding)

	assert.Zero(t, inner.calls, "invalid input must not reach the model")
}

func TestGuardedEmbedder_ChecksOutput(t *testing.T) {
	tests := []struct {
		name  string
		inner *brokenEmbedder
	}{
		{name: "wrong dimensions", inner: &brokenEmbedder{dims: 4, vectorLen: 3}},
		{name: "missing vectors", inner: &brokenEmbedder{dims: 4, vectorLen: 4, dropLast: true}},
		{name: "empty vectors", inner: &brokenEmbedder{dims: 0, vectorLen: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuardedEmbedder(tt.inner)
			_, err := g.EmbedBatch(context.Background(), []string{"a", "b"})
			assert.ErrorIs(t, err, domain.ErrEmbedding)
		})
	}
}

func TestGuardedEmbedder_BatchMatchesSingle(t *testing.T) {
	g := NewGuardedEmbedder(hashing.NewEmbeddingService(64))
	ctx := context.Background()
	texts := []string{"Acme is hiring engineers", "Acme launches a savings product", "Acme is hiring engineers"}

	batch, err := g.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))

	for i, text := range texts {
		single, err := g.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
	assert.Equal(t, batch[0], batch[2])
	assert.Equal(t, 64, g.Dimensions())
	assert.Equal(t, hashing.DefaultModel, g.ModelName())
}

func TestGuardedEmbedder_EmptyBatch(t *testing.T) {
	inner := &brokenEmbedder{dims: 4, vectorLen: 4}
	vecs, err := NewGuardedEmbedder(inner).EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Zero(t, inner.calls)
}
