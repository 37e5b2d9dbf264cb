package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
)

// RecordNormaliser turns raw scraped payloads into validated records.
// Extraction is delegated to the normaliser registry; this type enforces the
// metadata contract and assigns record identity.
type RecordNormaliser struct {
	registry  driven.NormaliserRegistry
	companies driven.CompanyStore
}

// NewRecordNormaliser creates a normaliser backed by a registry of extractors.
func NewRecordNormaliser(registry driven.NormaliserRegistry, companies driven.CompanyStore) *RecordNormaliser {
	return &RecordNormaliser{
		registry:  registry,
		companies: companies,
	}
}

// Normalise validates a payload and extracts its records. PDF payloads yield
// one record per non-empty page. All failures wrap domain.ErrValidation.
func (n *RecordNormaliser) Normalise(ctx context.Context, payload *domain.RawPayload) ([]domain.Record, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", domain.ErrValidation)
	}
	if !payload.SourceType.IsValid() {
		return nil, fmt.Errorf("%w: source type %q", domain.ErrValidation, payload.SourceType)
	}
	if strings.TrimSpace(payload.SourceURL) == "" {
		return nil, fmt.Errorf("%w: missing source_url", domain.ErrValidation)
	}
	if payload.CapturedAt.IsZero() {
		return nil, fmt.Errorf("%w: missing captured_at for %s", domain.ErrValidation, payload.SourceURL)
	}

	companyID, err := n.companyID(ctx, payload)
	if err != nil {
		return nil, err
	}

	extracted, err := n.registry.Normalise(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: extract %s: %w", domain.ErrValidation, payload.SourceURL, err)
	}

	records := make([]domain.Record, 0, len(extracted))
	for _, r := range extracted {
		if strings.TrimSpace(r.RawText) == "" {
			continue
		}
		if r.SourceURL == "" {
			r.SourceURL = payload.SourceURL
		}
		if r.Title == "" {
			r.Title = payload.Title
		}
		r.CompanyID = companyID
		r.SourceType = payload.SourceType
		r.CapturedAt = payload.CapturedAt.UTC()
		r.ID = domain.RecordID(companyID, r.SourceType, r.SourceURL)
		records = append(records, r)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no text extracted from %s", domain.ErrValidation, payload.SourceURL)
	}
	return records, nil
}

// CompanyOf returns the registry id a payload refers to without validating it.
func CompanyOf(payload domain.RawPayload) string {
	if payload.CompanyID != "" {
		return payload.CompanyID
	}
	return domain.CompanyIDFromName(payload.CompanyName)
}

func (n *RecordNormaliser) companyID(ctx context.Context, payload *domain.RawPayload) (string, error) {
	id := CompanyOf(*payload)
	if id == "" {
		return "", fmt.Errorf("%w: %w: payload names no company", domain.ErrValidation, domain.ErrUnknownCompany)
	}
	if _, err := n.companies.Get(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("%w: %w: %s", domain.ErrValidation, domain.ErrUnknownCompany, id)
		}
		return "", fmt.Errorf("lookup company %s: %w", id, err)
	}
	return id, nil
}
