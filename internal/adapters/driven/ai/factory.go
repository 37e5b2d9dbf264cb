// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	hashingembed "github.com/custodia-labs/signalkb/internal/adapters/driven/embedding/hashing"
	hugotembed "github.com/custodia-labs/signalkb/internal/adapters/driven/embedding/hugot"
	ollamaembed "github.com/custodia-labs/signalkb/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/signalkb/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/signalkb/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/signalkb/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/signalkb/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbeddingService creates an embedding service and validates
// connectivity. In-process providers are not pinged; hugot loads its model on
// first use.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings, dataDir string) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: no embedding provider configured. Run 'signalkb settings embedding' to fix",
			domain.ErrEmbeddingUnavailable)
	}

	svc, err := CreateEmbeddingService(settings, dataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'signalkb settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	if settings.Provider == domain.AIProviderHugot || settings.Provider == domain.AIProviderHashing {
		return svc, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'signalkb settings embedding' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns nil without error when no provider is configured.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'signalkb settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'signalkb settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// CreateEmbeddingService creates the embedding service selected by settings.
// Remote providers are throttled when RequestsPerMinute is set.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, dataDir string) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("embedding provider is not configured")
	}

	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}

	var svc driven.EmbeddingService
	switch settings.Provider {
	case domain.AIProviderHugot:
		modelDir := settings.ModelDir
		if modelDir == "" {
			modelDir = filepath.Join(dataDir, "models")
		}
		return hugotembed.NewEmbeddingService(hugotembed.Config{
			Model:      settings.Model,
			ModelDir:   modelDir,
			Dimensions: dimensions,
		}), nil

	case domain.AIProviderHashing:
		return hashingembed.NewEmbeddingService(dimensions), nil

	case domain.AIProviderOllama:
		svc = ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		})

	case domain.AIProviderOpenAI:
		var err error
		svc, err = openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		})
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}

	return ThrottleEmbedding(svc, settings.RequestsPerMinute), nil
}

// CreateLLMService creates the LLM service selected by settings, throttled
// when RequestsPerMinute is set.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("LLM provider is not configured")
	}

	var svc driven.LLMService
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOpenAI:
		s, err := openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		svc = s

	case domain.AIProviderAnthropic:
		s, err := anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		svc = s

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}

	return ThrottleLLM(svc, settings.RequestsPerMinute), nil
}
