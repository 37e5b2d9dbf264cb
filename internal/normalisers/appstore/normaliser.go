// Package appstore provides a Normaliser for app-store listings scraped
// from the Apple App Store and Google Play.
package appstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// field maps a display label to the keys the two stores use for it.
type field struct {
	label string
	keys  []string
}

// Listing fields in display order. Google Play keys come first, then Apple's.
var listingFields = []field{
	{"App Name", []string{"title", "trackName"}},
	{"Developer", []string{"developer", "artistName"}},
	{"Description", []string{"description"}},
	{"Genre", []string{"genre", "primaryGenreName"}},
	{"Rating", []string{"score", "averageUserRating"}},
	{"Reviews", []string{"reviews", "userRatingCount"}},
	{"Installs", []string{"installs"}},
	{"Last Updated", []string{"updated", "currentVersionReleaseDate"}},
	{"Release Date", []string{"released", "releaseDate"}},
	{"Content Rating", []string{"contentRating", "trackContentRating"}},
}

// Normaliser renders structured app details as labelled text.
type Normaliser struct{}

// New creates a new app listing normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedKinds returns the payload kinds this normaliser handles.
func (n *Normaliser) SupportedKinds() []domain.PayloadKind {
	return []domain.PayloadKind{domain.PayloadAppListing}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 90
}

// Normalise converts an app listing into one record.
func (n *Normaliser) Normalise(_ context.Context, payload *domain.RawPayload) ([]domain.Record, error) {
	if payload == nil {
		return nil, domain.ErrInvalidInput
	}

	store := normalisers.StringField(payload.Fields, "store")
	if store == "" {
		store = "App Store"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s App Information\n", store)
	for _, f := range listingFields {
		value := formatValue(payload.Fields, f)
		if value == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f.label, value)
	}

	title := payload.Title
	if title == "" {
		title = normalisers.StringField(payload.Fields, "title", "trackName")
	}

	text := ""
	if b.Len() > len(store)+len(" App Information\n") {
		text = normalisers.CleanText(b.String())
	}

	return []domain.Record{{
		SourceURL: payload.SourceURL,
		Title:     title,
		RawText:   text,
	}}, nil
}

func formatValue(fields map[string]any, f field) string {
	for _, k := range f.keys {
		if v, ok := fields[k].(float64); ok && v != 0 {
			return humanize.Commaf(v)
		}
	}
	value := normalisers.StringField(fields, f.keys...)
	if strings.Contains(f.label, "Date") || f.label == "Last Updated" {
		if i := strings.Index(value, "T"); i > 0 {
			value = value[:i]
		}
	}
	return value
}
