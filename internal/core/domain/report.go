package domain

import (
	"encoding/json"
	"time"
)

// NoEvidenceSummary is the summary of a section whose category had no evidence.
const NoEvidenceSummary = "no evidence found"

// Confidence grades how well a section is supported by evidence.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// IsValid returns true if the confidence level is recognised.
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceNone:
		return true
	default:
		return false
	}
}

// ReportSection holds the findings for one signal category.
type ReportSection struct {
	Category   string     `json:"category"`
	Summary    string     `json:"summary"`
	Findings   []string   `json:"findings"`
	Confidence Confidence `json:"confidence"`

	// Citations are chunk ids from the context bundle.
	Citations []string `json:"citations"`

	// NoEvidence marks a category for which retrieval found nothing.
	NoEvidence bool `json:"no_evidence"`
}

// IntelligenceReport is the validated analysis of one company.
// Immutable once persisted; each analysis run produces a new version.
type IntelligenceReport struct {
	ID            string    `json:"id"`
	CompanyID     string    `json:"company_id"`
	CompanyName   string    `json:"company_name"`
	GeneratedAt   time.Time `json:"generated_at"`
	SchemaVersion string    `json:"schema_version"`

	// Version increases with every persisted report of the company.
	Version int `json:"version"`

	// Model names the generation backend model.
	Model string `json:"model,omitempty"`

	// SectionOrder lists category ids in report order.
	SectionOrder []string                 `json:"section_order"`
	Sections     map[string]ReportSection `json:"sections"`

	// SourceCitations lists the unique source URLs behind the cited chunks.
	SourceCitations []string `json:"source_citations"`
}

// OrderedSections returns the sections in report order.
func (r *IntelligenceReport) OrderedSections() []ReportSection {
	out := make([]ReportSection, 0, len(r.SectionOrder))
	for _, id := range r.SectionOrder {
		if s, ok := r.Sections[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ReportSchema describes the structured output the generation backend must return.
type ReportSchema struct {
	Version    string
	Categories []SignalCategory
}

type schemaSection struct {
	Description string   `json:"description"`
	Summary     string   `json:"summary"`
	Findings    []string `json:"findings"`
	Confidence  string   `json:"confidence"`
	Citations   []string `json:"citations"`
}

// Describe renders the schema as an annotated JSON example.
func (s ReportSchema) Describe() string {
	sections := make(map[string]schemaSection, len(s.Categories))
	for _, c := range s.Categories {
		sections[c.ID] = schemaSection{
			Description: c.Description,
			Summary:     "string: two to four sentences",
			Findings:    []string{"string: one concrete finding"},
			Confidence:  "one of: high, medium, low, none",
			Citations:   []string{"chunk_id of supporting evidence"},
		}
	}
	doc := map[string]any{
		"schema_version": s.Version,
		"sections":       sections,
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

// ReportInfo describes a persisted report without loading it.
type ReportInfo struct {
	CompanyID   string
	Version     int
	Path        string
	GeneratedAt time.Time
}

// ReportSummaryRow is a report flattened into one row for cross-company review.
type ReportSummaryRow struct {
	CompanyID   string
	CompanyName string
	Version     int
	GeneratedAt time.Time

	// Columns maps "<category>_summary" and "<category>_confidence" to values.
	Columns map[string]string
}
