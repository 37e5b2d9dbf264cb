package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
	"github.com/custodia-labs/signalkb/internal/logger"
)

// Ensure CompanyService implements the interface.
var _ driving.CompanyService = (*CompanyService)(nil)

// Registry CSV header aliases, compared after lower-casing and replacing
// underscores with spaces.
var (
	nameColumns     = []string{"company name", "cleaned name", "name", "company"}
	websiteColumns  = []string{"website", "website url", "url"}
	linkedInColumns = []string{"linkedin url", "linkedin"}
)

// CompanyService manages the company registry.
type CompanyService struct {
	store driven.CompanyStore
}

// NewCompanyService creates a new company service.
func NewCompanyService(store driven.CompanyStore) *CompanyService {
	return &CompanyService{store: store}
}

// Import loads companies from a URL-discovery CSV. Rows without a name are
// skipped; existing companies are updated.
func (s *CompanyService) Import(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w: empty registry file", domain.ErrInvalidInput)
		}
		return 0, fmt.Errorf("read header: %w", err)
	}

	nameCol := findColumn(header, nameColumns)
	if nameCol < 0 {
		return 0, fmt.Errorf("%w: registry has no company name column", domain.ErrInvalidInput)
	}
	websiteCol := findColumn(header, websiteColumns)
	linkedInCol := findColumn(header, linkedInColumns)

	imported := 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read line %d: %w", line, err)
		}

		name := cell(row, nameCol)
		if name == "" {
			logger.Debug("Registry line %d has no company name, skipping", line)
			continue
		}
		company := domain.Company{
			ID:          domain.CompanyIDFromName(name),
			Name:        name,
			WebsiteURL:  cell(row, websiteCol),
			LinkedInURL: cell(row, linkedInCol),
		}
		if company.ID == "" {
			logger.Warn("Registry line %d: cannot derive an id from %q", line, name)
			continue
		}
		if err := s.store.Save(ctx, company); err != nil {
			return imported, fmt.Errorf("save %s: %w", company.ID, err)
		}
		imported++
	}

	logger.Info("Imported %d companies", imported)
	return imported, nil
}

// Add registers a single company. The id is derived from the name when empty.
func (s *CompanyService) Add(ctx context.Context, company domain.Company) (*domain.Company, error) {
	company.Name = strings.TrimSpace(company.Name)
	if company.Name == "" {
		return nil, fmt.Errorf("%w: company name is required", domain.ErrInvalidInput)
	}
	if company.ID == "" {
		company.ID = domain.CompanyIDFromName(company.Name)
	}
	if company.ID == "" {
		return nil, fmt.Errorf("%w: cannot derive an id from %q", domain.ErrInvalidInput, company.Name)
	}
	if err := s.store.Save(ctx, company); err != nil {
		return nil, fmt.Errorf("save company: %w", err)
	}
	return s.store.Get(ctx, company.ID)
}

// Get retrieves a company by id.
func (s *CompanyService) Get(ctx context.Context, id string) (*domain.Company, error) {
	return s.store.Get(ctx, id)
}

// List returns all registered companies.
func (s *CompanyService) List(ctx context.Context) ([]domain.Company, error) {
	return s.store.List(ctx)
}

// Resolve finds a company by id, then by the id derived from a name, then
// by a case-insensitive match on the cleaned name. An unmatched reference
// wraps domain.ErrUnknownCompany.
func (s *CompanyService) Resolve(ctx context.Context, ref string) (*domain.Company, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty company reference", domain.ErrUnknownCompany)
	}

	for _, id := range []string{ref, domain.CompanyIDFromName(ref)} {
		if id == "" {
			continue
		}
		c, err := s.store.Get(ctx, id)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	companies, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(domain.CleanCompanyName(ref))
	for i := range companies {
		if strings.ToLower(domain.CleanCompanyName(companies[i].Name)) == want {
			return &companies[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCompany, ref)
}

func findColumn(header []string, aliases []string) int {
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(h, "_", " ")))
		for _, a := range aliases {
			if h == a {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
