package normalisers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches payloads to the highest-priority normaliser for their kind.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates a registry holding the given normalisers.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.normalisers = append(r.normalisers, normaliser)
	sort.SliceStable(r.normalisers, func(i, j int) bool {
		return r.normalisers[i].Priority() > r.normalisers[j].Priority()
	})
}

// SupportedKinds returns all payload kinds that can be normalised.
func (r *Registry) SupportedKinds() []domain.PayloadKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[domain.PayloadKind]bool)
	var kinds []domain.PayloadKind
	for _, n := range r.normalisers {
		for _, k := range n.SupportedKinds() {
			if !seen[k] {
				seen[k] = true
				kinds = append(kinds, k)
			}
		}
	}
	return kinds
}

// Normalise extracts records using the best matching normaliser.
func (r *Registry) Normalise(ctx context.Context, payload *domain.RawPayload) ([]domain.Record, error) {
	if payload == nil {
		return nil, domain.ErrInvalidInput
	}

	n := r.lookup(payload.Kind)
	if n == nil {
		return nil, fmt.Errorf("payload kind %q: %w", payload.Kind, domain.ErrUnsupportedType)
	}
	return n.Normalise(ctx, payload)
}

func (r *Registry) lookup(kind domain.PayloadKind) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, n := range r.normalisers {
		for _, k := range n.SupportedKinds() {
			if k == kind {
				return n
			}
		}
	}
	return nil
}
