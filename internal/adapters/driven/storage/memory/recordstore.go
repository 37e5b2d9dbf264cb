package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of driven.RecordStore.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]domain.Record
	chunks  map[string][]domain.Chunk
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[string]domain.Record),
		chunks:  make(map[string][]domain.Chunk),
	}
}

// SaveRecord stores a record and replaces its chunks.
func (s *RecordStore) SaveRecord(_ context.Context, record domain.Record, chunks []domain.Chunk) error {
	if record.ID == "" {
		return fmt.Errorf("%w: record id is required", domain.ErrInvalidInput)
	}
	for _, c := range chunks {
		if c.RecordID != record.ID {
			return fmt.Errorf("%w: chunk %s does not belong to record %s", domain.ErrInvalidInput, c.ID, record.ID)
		}
	}
	copied := make([]domain.Chunk, len(chunks))
	copy(copied, chunks)
	sort.Slice(copied, func(i, j int) bool { return copied[i].Sequence < copied[j].Sequence })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	s.chunks[record.ID] = copied
	return nil
}

// GetRecord retrieves a record by id.
func (s *RecordStore) GetRecord(_ context.Context, id string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

// ListRecords returns the records of a company ordered by capture time.
func (s *RecordStore) ListRecords(_ context.Context, companyID string) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Record
	for _, r := range s.records {
		if r.CompanyID == companyID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CapturedAt.Equal(result[j].CapturedAt) {
			return result[i].CapturedAt.Before(result[j].CapturedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// GetChunks returns the chunks of a record ordered by sequence.
func (s *RecordStore) GetChunks(_ context.Context, recordID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := s.chunks[recordID]
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	return out, nil
}

// DeleteRecord removes a record and its chunks.
func (s *RecordStore) DeleteRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	delete(s.chunks, id)
	return nil
}
