package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestMaskDSN(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "(not set)"},
		{"postgres://kb:secret@db:5432/signalkb?sslmode=disable", "postgres://kb:****@db:5432/signalkb?sslmode=disable"},
		{"postgres://kb@db/signalkb", "postgres://kb@db/signalkb"},
		{"host=db user=kb", "host=db user=kb"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskDSN(tt.input))
		})
	}
}

func TestSettingsShow(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.settings.LLM = domain.LLMSettings{
		Provider:          domain.AIProviderOpenAI,
		Model:             "gpt-4o-mini",
		APIKey:            "sk-1234567890abcdef",
		RequestsPerMinute: 60,
	}
	ts.settings.settings.Index = domain.IndexSettings{
		Backend: domain.IndexBackendPgvector,
		DSN:     "postgres://kb:secret@db/signalkb",
	}

	out, _, err := execute(t, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "Model: ProsusAI/finbert")
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.Contains(t, out, "Context budget: 12000 chars")
	assert.Contains(t, out, "Backend: pgvector")
	assert.Contains(t, out, "postgres://kb:****@db/signalkb")
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsShow_Invalid(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.validateErr = errors.New("LLM provider not configured")

	out, _, err := execute(t, "settings")
	require.NoError(t, err)
	assert.Contains(t, out, "Warning: LLM provider not configured")
	assert.Contains(t, out, "signalkb settings llm")
}

func TestSettingsLLM(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetIn(strings.NewReader("2\n\nsk-test-key-123456\n"))
	out, _, err := execute(t, "settings", "llm")
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOpenAI, ts.settings.llmProvider)
	assert.Equal(t, "gpt-4o-mini", ts.settings.model)
	assert.Equal(t, "sk-test-key-123456", ts.settings.apiKey)
	assert.Contains(t, out, "Validating configuration... OK")
}

func TestSettingsEmbedding_ValidationFails(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.pingErr = errors.New("connection refused")

	rootCmd.SetIn(strings.NewReader("2\nmxbai-embed-large\n"))
	out, _, err := execute(t, "settings", "embedding")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding configuration validation failed")
	assert.Equal(t, domain.AIProviderOllama, ts.settings.embeddingProvider)
	assert.Equal(t, "mxbai-embed-large", ts.settings.model)
	assert.Empty(t, ts.settings.apiKey)
	assert.Contains(t, out, "FAILED: connection refused")
}

func TestSettingsLLM_RequiresAPIKey(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetIn(strings.NewReader("3\n\n\n"))
	_, _, err := execute(t, "settings", "llm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}
