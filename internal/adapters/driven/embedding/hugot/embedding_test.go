package hugot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

type fakeRunner struct {
	dims    int
	calls   [][]string
	closed  bool
	failErr error
}

func (f *fakeRunner) run(texts []string) ([][]float32, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.calls = append(f.calls, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dims)
		v[0] = float32(len(t))
		out[i] = v
	}
	return out, nil
}

func (f *fakeRunner) close() error {
	f.closed = true
	return nil
}

func newFake(cfg Config, r *fakeRunner) (*EmbeddingService, *int) {
	loads := 0
	s := newEmbeddingService(cfg, func(Config) (runner, error) {
		loads++
		return r, nil
	})
	return s, &loads
}

func TestDefaults(t *testing.T) {
	s := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, DefaultDimensions, s.Dimensions())
}

func TestEmbedBatch_LoadsOnceAndBatches(t *testing.T) {
	r := &fakeRunner{dims: 4}
	s, loads := newFake(Config{Dimensions: 4, BatchSize: 2}, r)

	vectors, err := s.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)

	_, err = s.Embed(context.Background(), "dddd")
	require.NoError(t, err)

	assert.Equal(t, 1, *loads)
	assert.Len(t, r.calls, 3)
	require.Len(t, vectors, 3)
	assert.Equal(t, float32(3), vectors[2][0])
}

func TestEmbedBatch_DimensionMismatch(t *testing.T) {
	s, _ := newFake(Config{Dimensions: 768}, &fakeRunner{dims: 384})

	_, err := s.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbedBatch_EmptyText(t *testing.T) {
	s, loads := newFake(Config{}, &fakeRunner{dims: DefaultDimensions})

	_, err := s.EmbedBatch(context.Background(), []string{"ok", "  "})
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Zero(t, *loads)
}

func TestEmbed_LoadFailure(t *testing.T) {
	s := newEmbeddingService(Config{}, func(Config) (runner, error) {
		return nil, errors.New("no network")
	})

	err := s.Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbed_RunFailure(t *testing.T) {
	s, _ := newFake(Config{}, &fakeRunner{failErr: errors.New("onnx")})

	_, err := s.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestClose(t *testing.T) {
	r := &fakeRunner{dims: DefaultDimensions}
	s, _ := newFake(Config{}, r)

	require.NoError(t, s.Close())
	assert.False(t, r.closed)

	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
	assert.True(t, r.closed)
}
