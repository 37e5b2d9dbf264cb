// Package jobposting provides a Normaliser for job postings scraped from
// LinkedIn and external job boards.
package jobposting

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser renders a job title, location and description as one record.
type Normaliser struct{}

// New creates a new job posting normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedKinds returns the payload kinds this normaliser handles.
func (n *Normaliser) SupportedKinds() []domain.PayloadKind {
	return []domain.PayloadKind{domain.PayloadJobPosting}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 90
}

// Normalise converts a job posting into one record.
func (n *Normaliser) Normalise(_ context.Context, payload *domain.RawPayload) ([]domain.Record, error) {
	if payload == nil {
		return nil, domain.ErrInvalidInput
	}

	title := normalisers.StringField(payload.Fields, "title", "job_title")
	if title == "" {
		title = payload.Title
	}
	description := normalisers.StringField(payload.Fields, "description", "job_description")
	if description == "" {
		description = payload.Text
	}

	text := ""
	if strings.TrimSpace(description) != "" {
		var b strings.Builder
		if title != "" {
			fmt.Fprintf(&b, "Job Title: %s\n", title)
		}
		if location := normalisers.StringField(payload.Fields, "location"); location != "" {
			fmt.Fprintf(&b, "Location: %s\n", location)
		}
		if posted := normalisers.StringField(payload.Fields, "posted", "posted_at"); posted != "" {
			fmt.Fprintf(&b, "Posted: %s\n", posted)
		}
		fmt.Fprintf(&b, "\nJob Description:\n%s", description)
		text = normalisers.CleanText(b.String())
	}

	return []domain.Record{{
		SourceURL: payload.SourceURL,
		Title:     title,
		RawText:   text,
	}}, nil
}
