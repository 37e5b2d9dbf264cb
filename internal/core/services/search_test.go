package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

func TestSearchService_Search(t *testing.T) {
	f := newFixture(t)
	f.ingest(t,
		textPayload("acme", domain.SourceJobBoard, "https://jobs.example/1", "Acme is hiring a senior credit analyst in Dubai."),
		textPayload("acme", domain.SourceNews, "https://news.example/1", "Acme launches a savings app for freelancers."),
		textPayload("globex-corporation", domain.SourceNews, "https://news.example/2", "Globex is hiring a senior credit analyst too."),
	)
	svc := NewSearchService(NewCompanyService(f.companies), f.embedder, f.index)
	ctx := context.Background()

	results, err := svc.Search(ctx, "Acme", "senior credit analyst", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2, "results never cross company partitions")
	assert.Equal(t, "https://jobs.example/1", results[0].SourceURL)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)

	filtered, err := svc.Search(ctx, "acme", "senior credit analyst",
		domain.SearchOptions{K: 5, SourceTypes: []domain.SourceType{domain.SourceNews}})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, domain.SourceNews, filtered[0].SourceType)

	limited, err := svc.Search(ctx, "acme", "credit", domain.SearchOptions{K: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSearchService_EmptyQuery(t *testing.T) {
	f := newFixture(t)
	svc := NewSearchService(NewCompanyService(f.companies), f.embedder, f.index)

	results, err := svc.Search(context.Background(), "hooli", "   ", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchService_UnknownCompany(t *testing.T) {
	f := newFixture(t)
	svc := NewSearchService(NewCompanyService(f.companies), f.embedder, f.index)

	_, err := svc.Search(context.Background(), "hooli", "anything", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrUnknownCompany)
}

func TestSearchService_EmptyKnowledgeBase(t *testing.T) {
	f := newFixture(t)
	svc := NewSearchService(NewCompanyService(f.companies), f.embedder, f.index)

	results, err := svc.Search(context.Background(), "globex-corporation", "anything", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}
