package pdf

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

// mockExtractor is a test double for PageExtractor.
type mockExtractor struct {
	pages []string
	err   error
}

func (m *mockExtractor) ExtractPages(_ context.Context, _ []byte) ([]string, error) {
	return m.pages, m.err
}

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, readerExtractor{}, normaliser.extractor)
}

func TestSupportedKinds(t *testing.T) {
	assert.Equal(t, []domain.PayloadKind{domain.PayloadPDF}, New().SupportedKinds())
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_NilPayload(t *testing.T) {
	records, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, records)
}

func TestNormalise_NoData(t *testing.T) {
	_, err := New().Normalise(context.Background(), &domain.RawPayload{Kind: domain.PayloadPDF})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNormalise_OneRecordPerPage(t *testing.T) {
	n := NewWithExtractor(&mockExtractor{pages: []string{
		"Annual report 2024\nRevenue grew 20%.",
		"   ",
		"Our digital strategy focuses on mobile.",
	}})
	payload := &domain.RawPayload{
		Kind:      domain.PayloadPDF,
		SourceURL: "https://acme.example/reports/annual-report-2024.pdf",
		Data:      []byte("%PDF-1.7"),
	}

	records, err := n.Normalise(context.Background(), payload)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "https://acme.example/reports/annual-report-2024.pdf#page=1", records[0].SourceURL)
	assert.Equal(t, "https://acme.example/reports/annual-report-2024.pdf#page=3", records[1].SourceURL)
	assert.Equal(t, "annual report 2024 (page 3)", records[1].Title)
	assert.Equal(t, "Our digital strategy focuses on mobile.", records[1].RawText)
}

func TestNormalise_AllPagesEmpty(t *testing.T) {
	n := NewWithExtractor(&mockExtractor{pages: []string{"", " \n "}})

	_, err := n.Normalise(context.Background(), &domain.RawPayload{Data: []byte("x")})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNormalise_ExtractorError(t *testing.T) {
	n := NewWithExtractor(&mockExtractor{err: errors.New("corrupt xref")})

	_, err := n.Normalise(context.Background(), &domain.RawPayload{Data: []byte("x")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt xref")
}

func TestReaderExtractor_InvalidPDF(t *testing.T) {
	_, err := readerExtractor{}.ExtractPages(context.Background(), []byte("not a pdf"))
	assert.Error(t, err)
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "https://x.example/a.pdf#page=4", PageURL("https://x.example/a.pdf", 4))
	assert.Equal(t, "https://x.example/a.pdf#page=2", PageURL("https://x.example/a.pdf#page=9", 2))
}
