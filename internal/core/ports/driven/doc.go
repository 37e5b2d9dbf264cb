// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Normaliser: Extracts text records from one payload variant
//   - Chunker: Splits records into overlapping chunks
//   - EmbeddingService: Maps text to fixed-dimension vectors
//   - VectorIndex: Company-partitioned similarity index
//   - CompanyStore: Company registry persistence
//   - RecordStore: Record and chunk persistence
//   - ReportStore: Versioned report persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Generation backend. Without it, analysis is disabled.
//   - PromptStore: Prompt templates. Without it, built-in prompts are used.
//   - CategoryCatalog: Signal category extensions.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
