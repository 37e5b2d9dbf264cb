package flat

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultK is the number of results returned when SearchOptions.K is unset.
const DefaultK = 10

// partition is the immutable entry set of one company.
type partition struct {
	entries []domain.IndexedEntry
	norms   []float64
}

func newPartition(entries []domain.IndexedEntry) *partition {
	p := &partition{entries: entries, norms: make([]float64, len(entries))}
	for i, e := range entries {
		p.norms[i] = norm(e.Vector)
	}
	return p
}

// Index is an exact cosine-similarity index held in memory.
type Index struct {
	path  string
	model string

	mu         sync.RWMutex
	dimensions int
	partitions map[string]*partition

	writersMu sync.Mutex
	writers   map[string]*sync.Mutex

	persistMu sync.Mutex
}

// Option configures an Index.
type Option func(*Index)

// WithModel records the embedding model that produced the vectors.
// Load rejects snapshots built with a different model.
func WithModel(name string) Option {
	return func(idx *Index) {
		idx.model = name
	}
}

// WithDimensions fixes the vector size up front instead of taking it from
// the first upsert.
func WithDimensions(n int) Option {
	return func(idx *Index) {
		if n > 0 {
			idx.dimensions = n
		}
	}
}

// New creates an empty index that persists to path.
func New(path string, opts ...Option) *Index {
	idx := &Index{
		path:       path,
		partitions: make(map[string]*partition),
		writers:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Path returns the snapshot location.
func (idx *Index) Path() string {
	return idx.path
}

// Model returns the embedding model name the index was built for.
func (idx *Index) Model() string {
	return idx.model
}

// Dimensions returns the vector size, or zero before the first entry.
func (idx *Index) Dimensions() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimensions
}

// Upsert stores entries, replacing every earlier entry of the records in
// the batch. Each company partition is swapped in one step.
func (idx *Index) Upsert(ctx context.Context, entries []domain.IndexedEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := idx.claimDimensions(entries); err != nil {
		return err
	}

	byCompany := make(map[string][]domain.IndexedEntry)
	for _, e := range entries {
		if e.CompanyID == "" || e.ChunkID == "" {
			return fmt.Errorf("%w: entry requires company and chunk ids", domain.ErrInvalidInput)
		}
		byCompany[e.CompanyID] = append(byCompany[e.CompanyID], e)
	}

	companies := make([]string, 0, len(byCompany))
	for c := range byCompany {
		companies = append(companies, c)
	}
	sort.Strings(companies)

	for _, company := range companies {
		idx.replace(company, byCompany[company])
	}
	return nil
}

// claimDimensions checks every vector against the index size, fixing the
// size on the first upsert.
func (idx *Index) claimDimensions(entries []domain.IndexedEntry) error {
	want := len(entries[0].Vector)
	if want == 0 {
		return fmt.Errorf("%w: empty vector for chunk %s", domain.ErrDimensionMismatch, entries[0].ChunkID)
	}
	for _, e := range entries[1:] {
		if len(e.Vector) != want {
			return fmt.Errorf("%w: chunk %s has %d dimensions, batch has %d",
				domain.ErrDimensionMismatch, e.ChunkID, len(e.Vector), want)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.dimensions == 0 {
		idx.dimensions = want
		return nil
	}
	if idx.dimensions != want {
		return fmt.Errorf("%w: index has %d dimensions, got %d",
			domain.ErrDimensionMismatch, idx.dimensions, want)
	}
	return nil
}

// replace builds the next partition of a company off to the side and
// publishes it.
func (idx *Index) replace(company string, batch []domain.IndexedEntry) {
	w := idx.writer(company)
	w.Lock()
	defer w.Unlock()

	replaced := make(map[string]bool)
	for _, e := range batch {
		replaced[e.RecordID] = true
	}

	idx.mu.RLock()
	current := idx.partitions[company]
	idx.mu.RUnlock()

	var next []domain.IndexedEntry
	if current != nil {
		next = make([]domain.IndexedEntry, 0, len(current.entries)+len(batch))
		for _, e := range current.entries {
			if !replaced[e.RecordID] {
				next = append(next, e)
			}
		}
	}

	// Later duplicates of a chunk id within the batch win.
	position := make(map[string]int, len(batch))
	for _, e := range batch {
		e.Vector = append([]float32(nil), e.Vector...)
		if i, ok := position[e.ChunkID]; ok {
			next[i] = e
			continue
		}
		position[e.ChunkID] = len(next)
		next = append(next, e)
	}

	p := newPartition(next)
	idx.mu.Lock()
	idx.partitions[company] = p
	idx.mu.Unlock()
}

func (idx *Index) writer(company string) *sync.Mutex {
	idx.writersMu.Lock()
	defer idx.writersMu.Unlock()
	w, ok := idx.writers[company]
	if !ok {
		w = &sync.Mutex{}
		idx.writers[company] = w
	}
	return w
}

// RemoveRecord deletes every entry of a record.
func (idx *Index) RemoveRecord(ctx context.Context, companyID, recordID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w := idx.writer(companyID)
	w.Lock()
	defer w.Unlock()

	idx.mu.RLock()
	current := idx.partitions[companyID]
	idx.mu.RUnlock()
	if current == nil {
		return nil
	}

	next := make([]domain.IndexedEntry, 0, len(current.entries))
	for _, e := range current.entries {
		if e.RecordID != recordID {
			next = append(next, e)
		}
	}
	if len(next) == len(current.entries) {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if len(next) == 0 {
		delete(idx.partitions, companyID)
		return nil
	}
	idx.partitions[companyID] = newPartition(next)
	return nil
}

// Search scores every entry of the company against the query.
func (idx *Index) Search(
	ctx context.Context, query []float32, companyID string, opts domain.SearchOptions,
) ([]domain.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx.mu.RLock()
	p := idx.partitions[companyID]
	dims := idx.dimensions
	idx.mu.RUnlock()

	if p == nil || len(p.entries) == 0 {
		return []domain.RetrievalResult{}, nil
	}
	if len(query) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), dims)
	}

	k := opts.K
	if k <= 0 {
		k = DefaultK
	}

	qnorm := norm(query)
	results := make([]domain.RetrievalResult, 0, len(p.entries))
	for i, e := range p.entries {
		if !opts.AllowsSource(e.SourceType) {
			continue
		}
		score := cosine(query, qnorm, e.Vector, p.norms[i])
		if opts.MinScore > 0 && score < opts.MinScore {
			continue
		}
		results = append(results, domain.RetrievalResult{
			ChunkID:    e.ChunkID,
			RecordID:   e.RecordID,
			Score:      score,
			Text:       e.Text,
			SourceType: e.SourceType,
			SourceURL:  e.SourceURL,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count returns the number of entries indexed for a company.
func (idx *Index) Count(_ context.Context, companyID string) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if p := idx.partitions[companyID]; p != nil {
		return len(p.entries), nil
	}
	return 0, nil
}

// Companies returns the ids of companies with indexed entries, sorted.
func (idx *Index) Companies(_ context.Context) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, 0, len(idx.partitions))
	for c, p := range idx.partitions {
		if len(p.entries) > 0 {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Close releases resources. The in-memory state is not persisted.
func (idx *Index) Close() error {
	return nil
}

// snapshot returns the current partitions. Partitions are immutable, so
// the map copy is enough.
func (idx *Index) snapshot() (map[string]*partition, int) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[string]*partition, len(idx.partitions))
	for c, p := range idx.partitions {
		out[c] = p
	}
	return out, idx.dimensions
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, anorm float64, b []float32, bnorm float64) float64 {
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (anorm * bnorm)
}
