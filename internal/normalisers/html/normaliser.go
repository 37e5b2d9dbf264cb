package html

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Elements removed before text extraction.
const chromeSelector = "script, style, noscript, svg, iframe, template, nav, footer, header, aside, form, " +
	"[hidden], [aria-hidden='true'], [style*='display:none'], [style*='display: none']"

// Elements followed by a line break so paragraph structure survives.
const blockSelector = "p, div, section, article, main, h1, h2, h3, h4, h5, h6, li, tr, blockquote, pre, table, br, hr"

// Normaliser handles HTML payloads.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedKinds returns the payload kinds this normaliser handles.
func (n *Normaliser) SupportedKinds() []domain.PayloadKind {
	return []domain.PayloadKind{domain.PayloadHTML}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic normaliser, higher than plaintext
}

// Normalise converts an HTML page to a single record of readable text.
func (n *Normaliser) Normalise(_ context.Context, payload *domain.RawPayload) ([]domain.Record, error) {
	if payload == nil {
		return nil, domain.ErrInvalidInput
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload.Text))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := payload.Title
	if title == "" {
		title = extractTitle(doc, payload.SourceURL)
	}

	return []domain.Record{{
		SourceURL: payload.SourceURL,
		Title:     title,
		RawText:   extractText(doc),
	}}, nil
}

// extractTitle reads <title>, then the first <h1>, then falls back to the URL.
func extractTitle(doc *goquery.Document, sourceURL string) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return normalisers.TitleFromURL(sourceURL)
}

// extractText removes page chrome and returns the body text with block
// elements separated by blank lines.
func extractText(doc *goquery.Document) string {
	doc.Find("head").Remove()
	doc.Find(chromeSelector).Remove()

	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n\n")
	})

	body := doc.Find("body")
	if body.Length() == 0 {
		return normalisers.CleanText(doc.Text())
	}
	return normalisers.CleanText(body.Text())
}
