// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The write path (RecordNormaliser, IngestService) turns scraped payloads
// into indexed chunks. The read path (Planner, ReportGenerator,
// AnalysisService) turns a company's knowledge base into a validated report.
package services
