package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown payload kind or source type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Report generation is disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Ingestion and retrieval are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Pipeline Errors.

	// ErrValidation indicates a scraped payload could not be turned into a record.
	ErrValidation = errors.New("validation error")

	// ErrUnknownCompany indicates a company identifier missing from the registry.
	ErrUnknownCompany = errors.New("unknown company")

	// ErrChunking indicates record text with an encoding that cannot be split.
	ErrChunking = errors.New("chunking error")

	// ErrEmbedding indicates invalid input to, or output from, the embedding model.
	ErrEmbedding = errors.New("embedding error")

	// ErrDimensionMismatch indicates a vector whose size differs from the index.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrIndexIO indicates a vector index persistence read or write failure.
	ErrIndexIO = errors.New("index i/o error")

	// ErrEmptyKnowledgeBase indicates a company with no indexed content.
	ErrEmptyKnowledgeBase = errors.New("empty knowledge base")

	// ErrGeneration indicates the generation backend failed or timed out.
	// Callers may retry.
	ErrGeneration = errors.New("generation error")

	// ErrSchemaValidation indicates generated output that failed validation
	// after all retries.
	ErrSchemaValidation = errors.New("schema validation error")
)

// Stage names a step of the analysis pipeline.
type Stage string

// Analysis stages reported on failure.
const (
	StageRetrieval  Stage = "retrieval"
	StageGeneration Stage = "generation"
	StageValidation Stage = "validation"
	StagePersist    Stage = "persist"
)

// StageError reports which company failed and in which stage.
type StageError struct {
	CompanyID string
	Stage     Stage
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("company %s: %s stage failed: %v", e.CompanyID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// SchemaValidationError carries the best-effort output of a generation run
// whose output never passed validation, so an operator can inspect it.
type SchemaValidationError struct {
	// CompanyID is the analysed company.
	CompanyID string

	// Attempts is the number of generation calls made.
	Attempts int

	// Problems lists the validation failures of the last attempt.
	Problems []string

	// Raw is the last raw backend output.
	Raw string

	// BestEffort is the report assembled from the last output, when it parsed.
	BestEffort *IntelligenceReport
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%s: company %s after %d attempts: %s",
		ErrSchemaValidation, e.CompanyID, e.Attempts, strings.Join(e.Problems, "; "))
}

func (e *SchemaValidationError) Unwrap() error {
	return ErrSchemaValidation
}
