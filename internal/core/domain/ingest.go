package domain

import "sort"

// IngestTally counts ingestion outcomes for one company.
type IngestTally struct {
	CompanyID string

	// Succeeded is the number of records indexed.
	Succeeded int

	// Failed is the number of payloads or records rejected.
	Failed int

	// Chunks is the number of chunks indexed.
	Chunks int

	// Errors holds one message per failure.
	Errors []string
}

// UnreadableKey tallies payloads that could not be decoded at all.
const UnreadableKey = "(unreadable)"

// IngestSummary aggregates the tallies of one ingestion run.
type IngestSummary struct {
	Tallies map[string]*IngestTally
}

// NewIngestSummary creates an empty summary.
func NewIngestSummary() *IngestSummary {
	return &IngestSummary{Tallies: make(map[string]*IngestTally)}
}

// Tally returns the tally of a company, creating it on first use.
func (s *IngestSummary) Tally(companyID string) *IngestTally {
	t, ok := s.Tallies[companyID]
	if !ok {
		t = &IngestTally{CompanyID: companyID}
		s.Tallies[companyID] = t
	}
	return t
}

// Reject counts a payload that was dropped before ingestion.
func (s *IngestSummary) Reject(msg string) {
	t := s.Tally(UnreadableKey)
	t.Failed++
	t.Errors = append(t.Errors, msg)
}

// Ordered returns tallies sorted by company id.
func (s *IngestSummary) Ordered() []*IngestTally {
	out := make([]*IngestTally, 0, len(s.Tallies))
	for _, t := range s.Tallies {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompanyID < out[j].CompanyID })
	return out
}

// Totals sums succeeded and failed counts across companies.
func (s *IngestSummary) Totals() (succeeded, failed int) {
	for _, t := range s.Tallies {
		succeeded += t.Succeeded
		failed += t.Failed
	}
	return succeeded, failed
}

// AnalysisOutcome is the result of analysing one company.
type AnalysisOutcome struct {
	CompanyID string
	Report    *IntelligenceReport
	Path      string
	Err       error
}
