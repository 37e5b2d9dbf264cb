// Package domain defines the core business entities for signalkb.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Company: An entry of the company registry
//   - RawPayload: Scraped content handed over by a scraper
//   - Record: A normalised text record belonging to one company
//   - Chunk: A bounded segment of a record, the unit of retrieval
//   - ContextBundle: The budgeted evidence handed to generation
//   - IntelligenceReport: The validated analysis of one company
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
