package domain

import (
	"sort"
	"strings"
)

// CompanyPlaceholder is replaced by the company name when rendering queries.
const CompanyPlaceholder = "{company}"

// SignalCategory is one analytic dimension a report is structured around.
// Each category owns the canonical queries that surface its evidence.
type SignalCategory struct {
	// ID is the stable key of the category in reports.
	ID string `yaml:"id" json:"id"`

	// Name is the display name.
	Name string `yaml:"name" json:"name"`

	// Description tells the generation backend what the section should cover.
	Description string `yaml:"description" json:"description"`

	// Queries are the canonical retrieval phrasings. May contain {company}.
	Queries []string `yaml:"queries" json:"queries"`

	// SourceTypes restricts retrieval to these sources. Empty means all.
	SourceTypes []SourceType `yaml:"source_types,omitempty" json:"source_types,omitempty"`
}

// RenderQueries returns the category queries with the company name filled in.
func (c SignalCategory) RenderQueries(companyName string) []string {
	out := make([]string, 0, len(c.Queries))
	for _, q := range c.Queries {
		q = strings.TrimSpace(strings.ReplaceAll(q, CompanyPlaceholder, companyName))
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}

// DefaultSignalCategories returns the built-in categories in report order.
func DefaultSignalCategories() []SignalCategory {
	return []SignalCategory{
		{
			ID:          "strategy",
			Name:        "Strategy",
			Description: "Strategic focus, target segments, market expansion and M&A activity.",
			Queries: []string{
				"{company} strategy and strategic priorities",
				"{company} market expansion into new regions or segments",
				"{company} acquisition, merger or investment",
			},
		},
		{
			ID:          "technology_adoption",
			Name:        "Technology Adoption",
			Description: "Stage of digital adoption, use of cloud, AI, mobile-first channels and core platforms.",
			Queries: []string{
				"{company} digital transformation",
				"{company} artificial intelligence, machine learning and automation",
				"{company} mobile app and online banking platform",
				"{company} cloud migration and core banking system",
			},
		},
		{
			ID:          "financial_inclusion",
			Name:        "Financial Inclusion",
			Description: "Initiatives that widen access to finance for SMEs, underbanked or underserved customers.",
			Queries: []string{
				"{company} financing for small and medium enterprises",
				"{company} access to finance for underbanked customers",
				"{company} microfinance, low-income or unbanked segments",
				"{company} islamic finance products for individuals",
			},
		},
		{
			ID:          "hiring_patterns",
			Name:        "Hiring Patterns",
			Description: "Open roles, technical hiring, headcount growth and the teams being built.",
			Queries: []string{
				"{company} is hiring job openings",
				"{company} software engineer, data scientist and technical roles",
				"{company} headcount growth and team expansion",
			},
			SourceTypes: []SourceType{SourceJobBoard, SourceLinkedIn, SourceNews},
		},
		{
			ID:          "offerings",
			Name:        "Financial Offerings",
			Description: "Financial products and services offered and the core value proposition.",
			Queries: []string{
				"{company} products and services",
				"{company} loans, financing and credit facilities",
				"{company} launches new product",
			},
		},
		{
			ID:          "partnerships",
			Name:        "Partnerships & Events",
			Description: "Collaborations, alliances, sponsorships and industry events the company took part in.",
			Queries: []string{
				"{company} partners with or announces partnership",
				"{company} memorandum of understanding or collaboration agreement",
				"{company} at conference, summit or fintech event",
			},
		},
		{
			ID:          "decision_makers",
			Name:        "Decision Makers",
			Description: "Key people and their roles such as CEO, CTO, Chief Strategy Officer or Head of AI.",
			Queries: []string{
				"{company} chief executive officer CEO",
				"{company} appoints head of technology, CTO or chief digital officer",
				"{company} board of directors and leadership team",
			},
		},
		{
			ID:          "competitors",
			Name:        "Competitive Landscape",
			Description: "Competitors named alongside the company and how it positions against them.",
			Queries: []string{
				"{company} competitors and rivals",
				"{company} compared with other banks and fintechs",
			},
			SourceTypes: []SourceType{SourceNews, SourceWebsite},
		},
	}
}

// ContextItem is one piece of evidence admitted into a context bundle.
type ContextItem struct {
	// Category is the signal category the item was retrieved for.
	Category string `json:"category"`

	ChunkID    string     `json:"chunk_id"`
	Score      float64    `json:"score"`
	Text       string     `json:"text"`
	SourceType SourceType `json:"source_type"`
	SourceURL  string     `json:"source_url"`

	// Truncated is set when Text was cut to fit the budget.
	Truncated bool `json:"truncated,omitempty"`
}

// CategoryEvidence groups the admitted items of one category.
type CategoryEvidence struct {
	Category SignalCategory `json:"category"`

	// NoEvidence marks a category for which retrieval found nothing.
	NoEvidence bool `json:"no_evidence"`

	// Candidates is the number of unique results before budgeting.
	Candidates int `json:"candidates"`

	Items []ContextItem `json:"items"`

	// Shared holds the ids of chunks this category retrieved that were
	// admitted under another category. They are not charged twice.
	Shared []string `json:"shared,omitempty"`
}

// Excluded reports whether the category had evidence but the context budget
// left none of it in the bundle.
func (e CategoryEvidence) Excluded() bool {
	return !e.NoEvidence && len(e.Items) == 0 && len(e.Shared) == 0
}

// ContextBundle is the deduplicated, budget-bounded evidence for one analysis run.
type ContextBundle struct {
	CompanyID   string             `json:"company_id"`
	CompanyName string             `json:"company_name"`
	Categories  []CategoryEvidence `json:"categories"`
	TotalChars  int                `json:"total_chars"`
	Budget      int                `json:"budget"`
}

// Items returns every admitted item in category order.
func (b *ContextBundle) Items() []ContextItem {
	var items []ContextItem
	for _, c := range b.Categories {
		items = append(items, c.Items...)
	}
	return items
}

// Lookup finds an admitted item by chunk id.
func (b *ContextBundle) Lookup(chunkID string) (ContextItem, bool) {
	for _, c := range b.Categories {
		for _, item := range c.Items {
			if item.ChunkID == chunkID {
				return item, true
			}
		}
	}
	return ContextItem{}, false
}

// ChunkIDs returns the sorted ids of all admitted items.
func (b *ContextBundle) ChunkIDs() []string {
	items := b.Items()
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ChunkID
	}
	sort.Strings(ids)
	return ids
}

// Evidence returns the evidence of a category by id.
func (b *ContextBundle) Evidence(categoryID string) (CategoryEvidence, bool) {
	for _, c := range b.Categories {
		if c.Category.ID == categoryID {
			return c, true
		}
	}
	return CategoryEvidence{}, false
}
