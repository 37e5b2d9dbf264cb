package appstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

func TestSupportedKinds(t *testing.T) {
	assert.Equal(t, []domain.PayloadKind{domain.PayloadAppListing}, New().SupportedKinds())
	assert.Equal(t, 90, New().Priority())
}

func TestNormalise_NilPayload(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_GooglePlayListing(t *testing.T) {
	payload := &domain.RawPayload{
		Kind:      domain.PayloadAppListing,
		SourceURL: "https://play.google.com/store/apps/details?id=com.acme",
		Fields: map[string]any{
			"store":       "Google Play Store",
			"title":       "Acme Mobile",
			"developer":   "Acme Finance",
			"description": "Open an account in minutes.",
			"score":       4.5,
			"reviews":     float64(12345),
			"updated":     "2024-05-01T10:00:00Z",
		},
	}

	records, err := New().Normalise(context.Background(), payload)

	require.NoError(t, err)
	require.Len(t, records, 1)
	text := records[0].RawText
	assert.Equal(t, "Acme Mobile", records[0].Title)
	assert.Contains(t, text, "Google Play Store App Information")
	assert.Contains(t, text, "App Name: Acme Mobile")
	assert.Contains(t, text, "Rating: 4.5")
	assert.Contains(t, text, "Reviews: 12,345")
	assert.Contains(t, text, "Last Updated: 2024-05-01")
	assert.NotContains(t, text, "Installs")
}

func TestNormalise_AppleKeys(t *testing.T) {
	payload := &domain.RawPayload{
		Fields: map[string]any{
			"trackName":   "Acme iOS",
			"artistName":  "Acme Finance PJSC",
			"releaseDate": "2021-01-15T08:00:00Z",
		},
	}

	records, err := New().Normalise(context.Background(), payload)

	require.NoError(t, err)
	assert.Contains(t, records[0].RawText, "App Store App Information")
	assert.Contains(t, records[0].RawText, "Developer: Acme Finance PJSC")
	assert.Contains(t, records[0].RawText, "Release Date: 2021-01-15")
}

func TestNormalise_NoFieldsYieldsEmptyText(t *testing.T) {
	records, err := New().Normalise(context.Background(), &domain.RawPayload{Fields: map[string]any{}})

	require.NoError(t, err)
	assert.Empty(t, records[0].RawText)
}
