package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
)

// Ensure CompanyStore implements the interface.
var _ driven.CompanyStore = (*CompanyStore)(nil)

// CompanyStore is an in-memory implementation of driven.CompanyStore.
type CompanyStore struct {
	mu        sync.RWMutex
	companies map[string]domain.Company
}

// NewCompanyStore creates a new in-memory company store.
func NewCompanyStore() *CompanyStore {
	return &CompanyStore{
		companies: make(map[string]domain.Company),
	}
}

// Save stores or updates a company. The original registration time is kept.
func (s *CompanyStore) Save(_ context.Context, company domain.Company) error {
	if company.ID == "" {
		return fmt.Errorf("%w: company id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.companies[company.ID]; ok {
		company.CreatedAt = existing.CreatedAt
	} else if company.CreatedAt.IsZero() {
		company.CreatedAt = time.Now()
	}
	s.companies[company.ID] = company
	return nil
}

// Get retrieves a company by id.
func (s *CompanyStore) Get(_ context.Context, id string) (*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// List returns all companies ordered by id.
func (s *CompanyStore) List(_ context.Context) ([]domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Company, 0, len(s.companies))
	for _, c := range s.companies {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Delete removes a company.
func (s *CompanyStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.companies, id)
	return nil
}
