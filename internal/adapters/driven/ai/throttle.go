package ai

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
)

// newLimiter spreads requestsPerMinute evenly with a burst of one.
func newLimiter(requestsPerMinute int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

// ThrottleEmbedding wraps svc so that each request waits for a rate token.
// A non-positive rate returns svc unchanged.
func ThrottleEmbedding(svc driven.EmbeddingService, requestsPerMinute int) driven.EmbeddingService {
	if requestsPerMinute <= 0 {
		return svc
	}
	return &throttledEmbedding{EmbeddingService: svc, limiter: newLimiter(requestsPerMinute)}
}

type throttledEmbedding struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

func (t *throttledEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.EmbeddingService.Embed(ctx, text)
}

func (t *throttledEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.EmbeddingService.EmbedBatch(ctx, texts)
}

// ThrottleLLM wraps svc so that each chat call waits for a rate token.
// A non-positive rate returns svc unchanged.
func ThrottleLLM(svc driven.LLMService, requestsPerMinute int) driven.LLMService {
	if requestsPerMinute <= 0 {
		return svc
	}
	return &throttledLLM{LLMService: svc, limiter: newLimiter(requestsPerMinute)}
}

type throttledLLM struct {
	driven.LLMService
	limiter *rate.Limiter
}

func (t *throttledLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return t.LLMService.Chat(ctx, messages, opts)
}
