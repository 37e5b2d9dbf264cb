package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies a service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderHugot runs an ONNX model in process.
	AIProviderHugot AIProvider = "hugot"

	// AIProviderHashing is the offline feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderHugot, AIProviderHashing:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHugot || p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderHugot:
		return "Hugot ONNX (in process)"
	case AIProviderHashing:
		return "Feature hashing (offline)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size. Zero uses the model's known size.
	Dimensions int

	// ModelDir is where local models are downloaded (for Hugot).
	ModelDir string

	// RequestsPerMinute throttles remote calls. Zero disables throttling.
	RequestsPerMinute int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generation backend configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// RequestsPerMinute throttles calls. Zero disables throttling.
	RequestsPerMinute int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	switch l.Provider {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
	default:
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings controls how records are split.
type ChunkingSettings struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the number of characters shared by adjacent chunks.
	Overlap int
}

// RetrievalSettings controls the multi-query retrieval planner.
type RetrievalSettings struct {
	// TopK is the number of results fetched per query.
	TopK int

	// ContextBudget is the maximum number of characters handed to generation.
	ContextBudget int

	// NearDuplicateThreshold is the shingle similarity above which two results
	// count as the same evidence.
	NearDuplicateThreshold float64

	// MinScore drops results below this similarity.
	MinScore float64

	// Concurrency bounds the number of searches in flight.
	Concurrency int

	// MinExcerptChars is the smallest truncated excerpt worth admitting.
	MinExcerptChars int

	// CategoriesFile optionally points at a YAML catalog of signal categories.
	CategoriesFile string
}

// GenerationSettings controls report generation.
type GenerationSettings struct {
	// SchemaVersion is stamped on every report.
	SchemaVersion string

	// MaxRetries is the number of corrective retries after a failed validation.
	MaxRetries int

	// Timeout bounds a single backend call.
	Timeout time.Duration

	// Temperature is passed to the backend.
	Temperature float64

	// MaxTokens bounds the generated output.
	MaxTokens int
}

// IndexBackend selects the vector index implementation.
type IndexBackend string

// Available index backends.
const (
	// IndexBackendFlat keeps vectors in memory and snapshots them to disk.
	IndexBackendFlat IndexBackend = "flat"

	// IndexBackendPgvector stores vectors in PostgreSQL with pgvector.
	IndexBackendPgvector IndexBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b IndexBackend) IsValid() bool {
	return b == IndexBackendFlat || b == IndexBackendPgvector
}

// IndexSettings holds vector index configuration.
type IndexSettings struct {
	// Backend selects the implementation.
	Backend IndexBackend

	// DSN is the PostgreSQL connection string (for pgvector).
	DSN string
}

// ReportSettings controls where reports are written.
type ReportSettings struct {
	// Dir is the report output directory.
	Dir string

	// Overwrite replaces the latest report instead of writing a new version.
	Overwrite bool
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding  EmbeddingSettings
	LLM        LLMSettings
	Chunking   ChunkingSettings
	Retrieval  RetrievalSettings
	Generation GenerationSettings
	Index      IndexSettings
	Reports    ReportSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The LLM is left unconfigured; embeddings default to the in-process
// financial-text model.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderHugot,
			Model:    "ProsusAI/finbert",
		},
		LLM: LLMSettings{
			RequestsPerMinute: 60,
		},
		Chunking: ChunkingSettings{
			Size:    1000,
			Overlap: 100,
		},
		Retrieval: RetrievalSettings{
			TopK:                   6,
			ContextBudget:          12000,
			NearDuplicateThreshold: 0.9,
			MinScore:               0.05,
			Concurrency:            4,
			MinExcerptChars:        200,
		},
		Generation: GenerationSettings{
			SchemaVersion: "1.0",
			MaxRetries:    2,
			Timeout:       120 * time.Second,
			Temperature:   0,
			MaxTokens:     4096,
		},
		Index: IndexSettings{
			Backend: IndexBackendFlat,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderHugot,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderHashing,
	}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderHugot:   "ProsusAI/finbert",
		AIProviderOllama:  "nomic-embed-text",
		AIProviderOpenAI:  "text-embedding-3-small",
		AIProviderHashing: "hashing-v1",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// In-process models
		"ProsusAI/finbert":                       768,
		"sentence-transformers/all-MiniLM-L6-v2": 384,
		"hashing-v1":                             512,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
