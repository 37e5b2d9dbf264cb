package domain

import (
	"regexp"
	"strings"
	"time"
)

// Company is an entry of the company registry produced by URL discovery.
// Scraped payloads may only reference registered companies.
type Company struct {
	// ID is the stable identifier derived from the cleaned name.
	ID string

	// Name is the display name as it appeared in the registry.
	Name string

	// WebsiteURL is the verified company homepage.
	WebsiteURL string

	// LinkedInURL is the verified LinkedIn company page.
	LinkedInURL string

	// CreatedAt is when the company was registered.
	CreatedAt time.Time
}

var (
	legalSuffixPattern = regexp.MustCompile(
		`(?i)\s*\b(P\.J\.S\.C|PJSC|P\.S\.C|PSC|L\.L\.C|LLC|FZ-LLC|FZCO|FZE|FZ|F\.Z|DMCC|P\.L\.C|PLC|Limited|Ltd)\b.*`)
	// Inc, Corp and Co are stripped only at the end of a name.
	trailingSuffixPattern = regexp.MustCompile(`(?i)[\s,]+(Inc|Corp|Co)\.?$`)
	nameNoisePattern      = regexp.MustCompile(`[.&"']`)
	slugPattern           = regexp.MustCompile(`[^a-z0-9]+`)
)

// CleanCompanyName strips legal-entity suffixes and punctuation noise so the
// name matches how a company refers to itself in scraped content.
func CleanCompanyName(name string) string {
	cleaned := legalSuffixPattern.ReplaceAllString(name, "")
	cleaned = trailingSuffixPattern.ReplaceAllString(strings.TrimSpace(cleaned), "")
	cleaned = nameNoisePattern.ReplaceAllString(cleaned, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return strings.TrimSpace(name)
	}
	return cleaned
}

// CompanyIDFromName derives the registry identifier for a company name.
// "Acme Finance PJSC" becomes "acme-finance".
func CompanyIDFromName(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(CleanCompanyName(name)), "-")
	return strings.Trim(slug, "-")
}

// FileStem returns a filesystem-safe stem for per-company output files.
// "Acme Finance PJSC" becomes "acme_finance".
func (c Company) FileStem() string {
	stem := slugPattern.ReplaceAllString(strings.ToLower(CleanCompanyName(c.Name)), "_")
	stem = strings.Trim(stem, "_")
	if stem == "" {
		return c.ID
	}
	return stem
}
