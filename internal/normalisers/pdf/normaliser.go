package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// PageExtractor returns the plain text of every page, in page order.
type PageExtractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
}

// Normaliser handles PDF payloads.
type Normaliser struct {
	extractor PageExtractor
}

// New creates a PDF normaliser backed by the pure-Go PDF reader.
func New() *Normaliser {
	return &Normaliser{extractor: readerExtractor{}}
}

// NewWithExtractor creates a PDF normaliser with a custom page extractor.
func NewWithExtractor(extractor PageExtractor) *Normaliser {
	return &Normaliser{extractor: extractor}
}

// SupportedKinds returns the payload kinds this normaliser handles.
func (n *Normaliser) SupportedKinds() []domain.PayloadKind {
	return []domain.PayloadKind{domain.PayloadPDF}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts one record per non-empty page.
func (n *Normaliser) Normalise(ctx context.Context, payload *domain.RawPayload) ([]domain.Record, error) {
	if payload == nil {
		return nil, domain.ErrInvalidInput
	}
	if len(payload.Data) == 0 {
		return nil, fmt.Errorf("pdf payload has no data: %w", domain.ErrValidation)
	}

	pages, err := n.extractor.ExtractPages(ctx, payload.Data)
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	baseTitle := payload.Title
	if baseTitle == "" {
		baseTitle = normalisers.TitleFromURL(payload.SourceURL)
	}

	var records []domain.Record
	for i, page := range pages {
		text := normalisers.CleanText(page)
		if text == "" {
			continue
		}
		pageNum := i + 1
		records = append(records, domain.Record{
			SourceURL: PageURL(payload.SourceURL, pageNum),
			Title:     fmt.Sprintf("%s (page %d)", baseTitle, pageNum),
			RawText:   text,
		})
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("pdf has no extractable text: %w", domain.ErrValidation)
	}
	return records, nil
}

// PageURL appends a page fragment to a document URL, replacing any existing fragment.
func PageURL(sourceURL string, page int) string {
	if i := strings.Index(sourceURL, "#"); i >= 0 {
		sourceURL = sourceURL[:i]
	}
	return fmt.Sprintf("%s#page=%d", sourceURL, page)
}

// readerExtractor reads pages with github.com/ledongthuc/pdf.
type readerExtractor struct{}

func (readerExtractor) ExtractPages(ctx context.Context, data []byte) (pages []string, err error) {
	// The reader panics on some corrupt streams.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("panic during pdf extraction: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := r.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
