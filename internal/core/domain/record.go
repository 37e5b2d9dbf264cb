package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SourceType identifies the kind of scraper that produced a payload.
type SourceType string

// Supported source types.
const (
	// SourceLinkedIn covers company about pages, posts and job listings on LinkedIn.
	SourceLinkedIn SourceType = "linkedin"

	// SourceWebsite covers pages of the company's own website.
	SourceWebsite SourceType = "website"

	// SourceNews covers articles from credible news outlets.
	SourceNews SourceType = "news"

	// SourceAppStore covers app-store listings published by the company.
	SourceAppStore SourceType = "app_store"

	// SourceJobBoard covers postings on external job boards.
	SourceJobBoard SourceType = "job_board"
)

// IsValid returns true if the source type is recognised.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceLinkedIn, SourceWebsite, SourceNews, SourceAppStore, SourceJobBoard:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s SourceType) String() string {
	return string(s)
}

// Description returns a human-readable description of the source type.
func (s SourceType) Description() string {
	switch s {
	case SourceLinkedIn:
		return "LinkedIn"
	case SourceWebsite:
		return "Company website"
	case SourceNews:
		return "News"
	case SourceAppStore:
		return "App store"
	case SourceJobBoard:
		return "Job board"
	default:
		return unknownDescription
	}
}

// AllSourceTypes returns every supported source type.
func AllSourceTypes() []SourceType {
	return []SourceType{SourceLinkedIn, SourceWebsite, SourceNews, SourceAppStore, SourceJobBoard}
}

// PayloadKind tags the variant of a raw payload. It selects the normaliser.
type PayloadKind string

// Payload variants.
const (
	// PayloadText carries plain text in RawPayload.Text.
	PayloadText PayloadKind = "text"

	// PayloadHTML carries an HTML document in RawPayload.Text.
	PayloadHTML PayloadKind = "html"

	// PayloadPDF carries PDF bytes in RawPayload.Data.
	PayloadPDF PayloadKind = "pdf"

	// PayloadAppListing carries app details in RawPayload.Fields.
	PayloadAppListing PayloadKind = "app_listing"

	// PayloadJobPosting carries a job title and description in RawPayload.Fields.
	PayloadJobPosting PayloadKind = "job_posting"
)

// IsValid returns true if the payload kind is recognised.
func (k PayloadKind) IsValid() bool {
	switch k {
	case PayloadText, PayloadHTML, PayloadPDF, PayloadAppListing, PayloadJobPosting:
		return true
	default:
		return false
	}
}

// RawPayload is scraped content as handed over by a scraper.
// Scrapers write one JSON object per line; only the fields relevant to Kind are set.
type RawPayload struct {
	// Kind selects how the content is extracted.
	Kind PayloadKind `json:"kind"`

	// SourceType identifies the producing scraper.
	SourceType SourceType `json:"source_type"`

	// SourceURL is where the content was fetched from.
	SourceURL string `json:"source_url"`

	// CompanyID references the company registry. CompanyName is used when empty.
	CompanyID string `json:"company_id,omitempty"`

	// CompanyName is the registry name of the company.
	CompanyName string `json:"company_name,omitempty"`

	// CapturedAt is when the content was fetched.
	CapturedAt time.Time `json:"captured_at"`

	// Title is an optional human-readable title.
	Title string `json:"title,omitempty"`

	// Text holds text and HTML payloads.
	Text string `json:"text,omitempty"`

	// Data holds binary payloads (base64 in JSON).
	Data []byte `json:"data,omitempty"`

	// Fields holds structured payloads.
	Fields map[string]any `json:"fields,omitempty"`
}

// Record is a normalised text record. It is immutable once created and is
// superseded, not mutated, when the same source URL is scraped again.
type Record struct {
	// ID is derived from company, source type and source URL.
	ID string

	// CompanyID references the company registry.
	CompanyID string

	// SourceType identifies the producing scraper.
	SourceType SourceType

	// SourceURL is the provenance of the text. PDF pages carry a #page=N fragment.
	SourceURL string

	// Title is an optional human-readable title.
	Title string

	// RawText is the extracted text. Never empty.
	RawText string

	// CapturedAt is when the content was fetched.
	CapturedAt time.Time
}

// RecordID returns the deterministic identifier of a record.
func RecordID(companyID string, sourceType SourceType, sourceURL string) string {
	sum := sha256.Sum256([]byte(companyID + "|" + string(sourceType) + "|" + sourceURL))
	return hex.EncodeToString(sum[:16])
}

// pageFragment marks the records a multi-page document is split into.
const pageFragment = "#page="

// DocumentURL returns the URL of the document a record belongs to. Page
// records such as "report.pdf#page=3" map to "report.pdf"; any other URL is
// returned unchanged.
func DocumentURL(sourceURL string) string {
	i := strings.LastIndex(sourceURL, pageFragment)
	if i < 0 {
		return sourceURL
	}
	if _, err := strconv.Atoi(sourceURL[i+len(pageFragment):]); err != nil {
		return sourceURL
	}
	return sourceURL[:i]
}

// CharRange is a half-open range of rune offsets into a record's text.
type CharRange struct {
	Start int
	End   int
}

// Len returns the number of runes covered.
func (r CharRange) Len() int {
	return r.End - r.Start
}

// Chunk is a bounded segment of a record, the unit of embedding and retrieval.
type Chunk struct {
	// ID is "<record id>:<sequence>".
	ID string

	// RecordID is a back-reference to the parent record.
	RecordID string

	// CompanyID is denormalised from the record for filtering.
	CompanyID string

	// SourceType is denormalised from the record for provenance.
	SourceType SourceType

	// SourceURL is denormalised from the record for provenance.
	SourceURL string

	// Text is the chunk content.
	Text string

	// Sequence is the zero-based position within the record.
	Sequence int

	// Range locates Text within the record's RawText.
	Range CharRange
}

// ChunkID returns the identifier of the chunk at sequence within a record.
func ChunkID(recordID string, sequence int) string {
	return fmt.Sprintf("%s:%04d", recordID, sequence)
}

// IndexedEntry is a chunk and its vector as stored in the vector index.
type IndexedEntry struct {
	ChunkID    string
	RecordID   string
	CompanyID  string
	SourceType SourceType
	SourceURL  string
	Text       string
	Vector     []float32
}

// NewIndexedEntry pairs a chunk with its embedding.
func NewIndexedEntry(chunk Chunk, vector []float32) IndexedEntry {
	return IndexedEntry{
		ChunkID:    chunk.ID,
		RecordID:   chunk.RecordID,
		CompanyID:  chunk.CompanyID,
		SourceType: chunk.SourceType,
		SourceURL:  chunk.SourceURL,
		Text:       chunk.Text,
		Vector:     vector,
	}
}

// RetrievalResult is a single similarity-search hit. Not persisted.
type RetrievalResult struct {
	ChunkID    string
	RecordID   string
	Score      float64
	Text       string
	SourceType SourceType
	SourceURL  string
}

// SearchOptions configures a company-scoped similarity search.
type SearchOptions struct {
	// K is the maximum number of results.
	K int

	// SourceTypes restricts results to these source types. Empty means all.
	SourceTypes []SourceType

	// MinScore drops results scoring below this similarity. Zero keeps all.
	MinScore float64
}

// AllowsSource reports whether a source type passes the filter.
func (o SearchOptions) AllowsSource(s SourceType) bool {
	if len(o.SourceTypes) == 0 {
		return true
	}
	for _, allowed := range o.SourceTypes {
		if allowed == s {
			return true
		}
	}
	return false
}
