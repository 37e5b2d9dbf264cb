package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

func TestEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)

		var req embedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)

		out := make([][]float64, len(req.Input))
		for i := range req.Input {
			out[i] = []float64{float64(i), 0.5}
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: out})
	}))
	defer srv.Close()

	s := NewEmbeddingService(Config{BaseURL: srv.URL, Dimensions: 2})

	vectors, err := s.EmbedBatch(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 0.5}, {1, 0.5}}, vectors)
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float64{{1}}})
	}))
	defer srv.Close()

	s := NewEmbeddingService(Config{BaseURL: srv.URL})

	_, err := s.EmbedBatch(context.Background(), []string{"x", "y"})
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestEmbed_ModelMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(embedResponse{Error: `model "nomic-embed-text" not found`})
	}))
	defer srv.Close()

	s := NewEmbeddingService(Config{BaseURL: srv.URL})

	_, err := s.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbed_Empty(t *testing.T) {
	s := NewEmbeddingService(Config{})
	_, err := s.Embed(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestDefaults(t *testing.T) {
	s := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, DefaultDimensions, s.Dimensions())
}
