package services

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedDims        = "embedding.dimensions"
	keyEmbedModelDir    = "embedding.model_dir"
	keyEmbedRPM         = "embedding.requests_per_minute"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyChunkSize        = "chunking.size"
	keyChunkOverlap     = "chunking.overlap"
	keyTopK             = "retrieval.top_k"
	keyContextBudget    = "retrieval.context_budget"
	keyNearDupe         = "retrieval.near_duplicate_threshold"
	keyMinScore         = "retrieval.min_score"
	keyConcurrency      = "retrieval.concurrency"
	keyMinExcerpt       = "retrieval.min_excerpt_chars"
	keyCategoriesFile   = "retrieval.categories_file"
	keySchemaVersion    = "generation.schema_version"
	keyMaxRetries       = "generation.max_retries"
	keyTimeoutSeconds   = "generation.timeout_seconds"
	keyTemperature      = "generation.temperature"
	keyMaxTokens        = "generation.max_tokens"
	keyGenerationRPM    = "generation.requests_per_minute"
	keyIndexBackend     = "index.backend"
	keyIndexDSN         = "index.dsn"
	keyReportsDir       = "reports.dir"
	keyReportsOverwrite = "reports.overwrite"
)

// Environment fallbacks for secrets that are usually kept out of config.toml.
const (
	envOpenAIKey    = "OPENAI_API_KEY"
	envAnthropicKey = "ANTHROPIC_API_KEY"
	envPostgresDSN  = "SIGNALKB_PG_DSN"
)

const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// WithEnv replaces the environment lookup. Tests use it to avoid leaking the
// host environment into settings.
func (s *SettingsService) WithEnv(getenv func(string) string) *SettingsService {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	s.getenv = getenv
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.getInt(keyEmbedDims, d.Embedding.Dimensions),
			ModelDir:          s.getString(keyEmbedModelDir, d.Embedding.ModelDir),
			RequestsPerMinute: s.getInt(keyEmbedRPM, d.Embedding.RequestsPerMinute),
		},
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:             s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL),
			APIKey:            s.configStore.GetString(keyLLMAPIKey),
			RequestsPerMinute: s.getInt(keyGenerationRPM, d.LLM.RequestsPerMinute),
		},
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(keyChunkSize, d.Chunking.Size),
			Overlap: s.getInt(keyChunkOverlap, d.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:                   s.getInt(keyTopK, d.Retrieval.TopK),
			ContextBudget:          s.getInt(keyContextBudget, d.Retrieval.ContextBudget),
			NearDuplicateThreshold: s.getFloat(keyNearDupe, d.Retrieval.NearDuplicateThreshold),
			MinScore:               s.getFloat(keyMinScore, d.Retrieval.MinScore),
			Concurrency:            s.getInt(keyConcurrency, d.Retrieval.Concurrency),
			MinExcerptChars:        s.getInt(keyMinExcerpt, d.Retrieval.MinExcerptChars),
			CategoriesFile:         s.getString(keyCategoriesFile, d.Retrieval.CategoriesFile),
		},
		Generation: domain.GenerationSettings{
			SchemaVersion: s.getString(keySchemaVersion, d.Generation.SchemaVersion),
			MaxRetries:    s.getInt(keyMaxRetries, d.Generation.MaxRetries),
			Timeout:       time.Duration(s.getInt(keyTimeoutSeconds, int(d.Generation.Timeout/time.Second))) * time.Second,
			Temperature:   s.getFloat(keyTemperature, d.Generation.Temperature),
			MaxTokens:     s.getInt(keyMaxTokens, d.Generation.MaxTokens),
		},
		Index: domain.IndexSettings{
			Backend: s.getBackend(d.Index.Backend),
			DSN:     s.configStore.GetString(keyIndexDSN),
		},
		Reports: domain.ReportSettings{
			Dir:       s.getString(keyReportsDir, d.Reports.Dir),
			Overwrite: s.getBool(keyReportsOverwrite, d.Reports.Overwrite),
		},
	}

	if settings.Embedding.APIKey == "" && settings.Embedding.Provider == domain.AIProviderOpenAI {
		settings.Embedding.APIKey = s.getenv(envOpenAIKey)
	}
	if settings.LLM.APIKey == "" {
		switch settings.LLM.Provider {
		case domain.AIProviderOpenAI:
			settings.LLM.APIKey = s.getenv(envOpenAIKey)
		case domain.AIProviderAnthropic:
			settings.LLM.APIKey = s.getenv(envAnthropicKey)
		}
	}
	if settings.Index.DSN == "" {
		settings.Index.DSN = s.getenv(envPostgresDSN)
	}

	return settings, nil
}

// Save persists application settings.
// API keys and the DSN are only written when set and when they differ from
// the environment, so secrets supplied by the environment never end up in
// the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		label string
		value any
	}{
		{keyEmbedProvider, "embedding provider", settings.Embedding.Provider.String()},
		{keyEmbedModel, "embedding model", settings.Embedding.Model},
		{keyEmbedBaseURL, "embedding base_url", settings.Embedding.BaseURL},
		{keyEmbedDims, "embedding dimensions", settings.Embedding.Dimensions},
		{keyEmbedModelDir, "embedding model_dir", settings.Embedding.ModelDir},
		{keyEmbedRPM, "embedding requests_per_minute", settings.Embedding.RequestsPerMinute},
		{keyLLMProvider, "llm provider", settings.LLM.Provider.String()},
		{keyLLMModel, "llm model", settings.LLM.Model},
		{keyLLMBaseURL, "llm base_url", settings.LLM.BaseURL},
		{keyGenerationRPM, "generation requests_per_minute", settings.LLM.RequestsPerMinute},
		{keyChunkSize, "chunk size", settings.Chunking.Size},
		{keyChunkOverlap, "chunk overlap", settings.Chunking.Overlap},
		{keyTopK, "top_k", settings.Retrieval.TopK},
		{keyContextBudget, "context budget", settings.Retrieval.ContextBudget},
		{keyNearDupe, "near duplicate threshold", settings.Retrieval.NearDuplicateThreshold},
		{keyMinScore, "min score", settings.Retrieval.MinScore},
		{keyConcurrency, "concurrency", settings.Retrieval.Concurrency},
		{keyMinExcerpt, "min excerpt chars", settings.Retrieval.MinExcerptChars},
		{keyCategoriesFile, "categories file", settings.Retrieval.CategoriesFile},
		{keySchemaVersion, "schema version", settings.Generation.SchemaVersion},
		{keyMaxRetries, "max retries", settings.Generation.MaxRetries},
		{keyTimeoutSeconds, "generation timeout", int(settings.Generation.Timeout / time.Second)},
		{keyTemperature, "temperature", settings.Generation.Temperature},
		{keyMaxTokens, "max tokens", settings.Generation.MaxTokens},
		{keyIndexBackend, "index backend", string(settings.Index.Backend)},
		{keyReportsDir, "reports dir", settings.Reports.Dir},
		{keyReportsOverwrite, "reports overwrite", settings.Reports.Overwrite},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.label, err)
		}
	}

	secrets := []struct {
		key   string
		label string
		value string
		env   string
	}{
		{keyEmbedAPIKey, "embedding api_key", settings.Embedding.APIKey, s.envKeyFor(settings.Embedding.Provider)},
		{keyLLMAPIKey, "llm api_key", settings.LLM.APIKey, s.envKeyFor(settings.LLM.Provider)},
		{keyIndexDSN, "index dsn", settings.Index.DSN, s.getenv(envPostgresDSN)},
	}
	for _, v := range secrets {
		if v.value == "" || v.value == v.env {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.label, err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.envKeyFor(provider) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	if provider == domain.AIProviderOllama {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	// A new model invalidates any explicit vector size.
	settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if !slices.Contains(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("provider %s does not support generation", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.envKeyFor(provider) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider == domain.AIProviderOllama {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that the current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider)
	}
	if settings.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive, got %d", domain.ErrInvalidInput, settings.Chunking.Size)
	}
	if settings.Chunking.Overlap < 0 || settings.Chunking.Overlap >= settings.Chunking.Size {
		return fmt.Errorf("%w: chunking.overlap must be in [0, %d), got %d",
			domain.ErrInvalidInput, settings.Chunking.Size, settings.Chunking.Overlap)
	}
	if settings.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive, got %d", domain.ErrInvalidInput, settings.Retrieval.TopK)
	}
	if settings.Retrieval.ContextBudget <= 0 {
		return fmt.Errorf("%w: retrieval.context_budget must be positive, got %d",
			domain.ErrInvalidInput, settings.Retrieval.ContextBudget)
	}
	if t := settings.Retrieval.NearDuplicateThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("%w: retrieval.near_duplicate_threshold must be in (0, 1], got %g", domain.ErrInvalidInput, t)
	}
	if settings.Retrieval.Concurrency <= 0 {
		return fmt.Errorf("%w: retrieval.concurrency must be positive, got %d",
			domain.ErrInvalidInput, settings.Retrieval.Concurrency)
	}
	if settings.Generation.MaxRetries < 0 {
		return fmt.Errorf("%w: generation.max_retries must not be negative", domain.ErrInvalidInput)
	}
	if !settings.Index.Backend.IsValid() {
		return fmt.Errorf("%w: unknown index backend %q", domain.ErrInvalidInput, settings.Index.Backend)
	}
	if settings.Index.Backend == domain.IndexBackendPgvector && settings.Index.DSN == "" {
		return fmt.Errorf("%w: index.dsn or %s required for the pgvector backend", domain.ErrInvalidInput, envPostgresDSN)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func (s *SettingsService) envKeyFor(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv(envOpenAIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(envAnthropicKey)
	default:
		return ""
	}
}

// Helper methods for reading config with defaults. A key that is present
// wins over the default even when its value is zero.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.IndexBackend) domain.IndexBackend {
	val := s.configStore.GetString(keyIndexBackend)
	if val == "" {
		return defaultVal
	}
	// Unknown backends pass through so Validate can report them.
	return domain.IndexBackend(val)
}
