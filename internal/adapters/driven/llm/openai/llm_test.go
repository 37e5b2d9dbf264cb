package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
)

func TestChat_JSONMode(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	reply, err := s.Chat(context.Background(), []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "sys"},
		{Role: driven.RoleUser, Content: "hi"},
	}, driven.ChatOptions{JSON: true, MaxTokens: 100})
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, reply)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	assert.Equal(t, DefaultLLMModel, got.Model)
	assert.Len(t, got.Messages, 2)
}

func TestChat_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
	}))
	defer srv.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = s.Chat(context.Background(), nil, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "bad key")
}

func TestChat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = s.Chat(context.Background(), nil, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.Error(t, err)
}
