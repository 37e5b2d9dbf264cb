// Package hugot provides an in-process embedding service backed by hugot
// feature-extraction pipelines running ONNX transformer models.
package hugot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel        = "ProsusAI/finbert"
	DefaultDimensions   = 768
	DefaultOnnxFilePath = "onnx/model.onnx"
	DefaultBatchSize    = 32
)

// Config holds configuration for the hugot embedding service.
type Config struct {
	// Model is the Hugging Face model name.
	Model string

	// ModelDir is where models are downloaded and cached.
	ModelDir string

	// OnnxFilePath is the ONNX file inside the model repository.
	OnnxFilePath string

	// Dimensions is the expected vector size.
	Dimensions int

	// BatchSize caps the number of texts per pipeline run.
	BatchSize int
}

// runner runs a loaded feature-extraction pipeline.
type runner interface {
	run(texts []string) ([][]float32, error)
	close() error
}

// loader prepares a runner for a model directory.
type loader func(cfg Config) (runner, error)

// EmbeddingService embeds text in process. The model is downloaded and the
// session created on first use.
type EmbeddingService struct {
	cfg  Config
	load loader

	mu     sync.Mutex
	runner runner
}

// NewEmbeddingService creates a hugot embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	return newEmbeddingService(cfg, loadPipeline)
}

func newEmbeddingService(cfg Config, load loader) *EmbeddingService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.OnnxFilePath == "" {
		cfg.OnnxFilePath = DefaultOnnxFilePath
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.ModelDir == "" {
		cfg.ModelDir = "./models"
	}
	return &EmbeddingService{cfg: cfg, load: load}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch runs the pipeline over texts in batches. Pipeline runs are
// serialised; mean pooling is per input so batching never mixes texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: input %d is empty", domain.ErrEmbedding, i)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+s.cfg.BatchSize, len(texts))

		vectors, err := s.runner.run(texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: hugot: %v", domain.ErrEmbedding, err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("%w: hugot returned %d embeddings for %d inputs", domain.ErrEmbedding, len(vectors), end-start)
		}
		for _, v := range vectors {
			if len(v) != s.cfg.Dimensions {
				return nil, fmt.Errorf("%w: model %s produced %d dimensions, expected %d",
					domain.ErrDimensionMismatch, s.cfg.Model, len(v), s.cfg.Dimensions)
			}
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (s *EmbeddingService) ensureLoaded() error {
	if s.runner != nil {
		return nil
	}
	logger.Info("loading embedding model %s", s.cfg.Model)
	r, err := s.load(s.cfg)
	if err != nil {
		return fmt.Errorf("%w: hugot: %v", domain.ErrEmbeddingUnavailable, err)
	}
	s.runner = r
	return nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.cfg.Dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.cfg.Model
}

// Ping loads the model, downloading it when missing.
func (s *EmbeddingService) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoaded()
}

// Close destroys the hugot session.
func (s *EmbeddingService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runner == nil {
		return nil
	}
	err := s.runner.close()
	s.runner = nil
	return err
}

// modelPath returns the cache directory of a model, downloading it when missing.
func modelPath(cfg Config) (string, error) {
	path := filepath.Join(cfg.ModelDir, strings.ReplaceAll(cfg.Model, "/", "_"))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat model directory: %w", err)
	}

	if err := os.MkdirAll(cfg.ModelDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}
	logger.Info("downloading embedding model %s to %s", cfg.Model, cfg.ModelDir)

	downloadOptions := hugot.NewDownloadOptions()
	downloadOptions.OnnxFilePath = cfg.OnnxFilePath
	downloaded, err := hugot.DownloadModel(cfg.Model, cfg.ModelDir, downloadOptions)
	if err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	return downloaded, nil
}

// sessionRunner owns a hugot session and its feature-extraction pipeline.
type sessionRunner struct {
	session *hugot.Session
	embed   func(texts []string) ([][]float32, error)
}

func (r *sessionRunner) run(texts []string) ([][]float32, error) {
	return r.embed(texts)
}

func (r *sessionRunner) close() error {
	return r.session.Destroy()
}

func loadPipeline(cfg Config) (runner, error) {
	path, err := modelPath(cfg)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: path,
		Name:      "signalkb-embedder",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedding pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	return &sessionRunner{session: session, embed: func(texts []string) ([][]float32, error) {
		result, err := pipeline.RunPipeline(texts)
		if err != nil {
			return nil, err
		}
		return result.Embeddings, nil
	}}, nil
}
