package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/core/ports/driving"
	"github.com/custodia-labs/signalkb/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// noCompanyKey tallies payloads that name no company at all.
const noCompanyKey = "(none)"

// DefaultIngestConcurrency is the number of companies ingested in parallel.
const DefaultIngestConcurrency = 4

// IngestService runs the write path: normalise, chunk, embed, store, index.
type IngestService struct {
	normaliser  *RecordNormaliser
	chunker     driven.Chunker
	embedder    driven.EmbeddingService
	records     driven.RecordStore
	index       driven.VectorIndex
	concurrency int
}

// NewIngestService creates a new ingest service. The embedder is wrapped in
// a GuardedEmbedder.
func NewIngestService(
	normaliser *RecordNormaliser,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	records driven.RecordStore,
	index driven.VectorIndex,
	concurrency int,
) *IngestService {
	if concurrency <= 0 {
		concurrency = DefaultIngestConcurrency
	}
	if _, ok := embedder.(*GuardedEmbedder); !ok && embedder != nil {
		embedder = NewGuardedEmbedder(embedder)
	}
	return &IngestService{
		normaliser:  normaliser,
		chunker:     chunker,
		embedder:    embedder,
		records:     records,
		index:       index,
		concurrency: concurrency,
	}
}

// Ingest builds the knowledge base from payloads. Companies are processed in
// parallel, the payloads of one company in order. Failures of single payloads
// are tallied and do not stop the run; the returned error reports a failed
// index flush or cancellation.
func (s *IngestService) Ingest(ctx context.Context, payloads []domain.RawPayload) (*domain.IngestSummary, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	summary := domain.NewIngestSummary()
	groups := make(map[string][]domain.RawPayload)
	var order []string
	for _, p := range payloads {
		key := CompanyOf(p)
		if key == "" {
			key = noCompanyKey
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
			summary.Tally(key)
		}
		groups[key] = append(groups[key], p)
	}

	logger.Section("Ingestion")
	logger.Debug("%d payloads for %d companies", len(payloads), len(order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, key := range order {
		tally := summary.Tally(key)
		batch := groups[key]
		g.Go(func() error {
			return s.ingestCompany(gctx, batch, tally)
		})
	}
	waitErr := g.Wait()

	// Entries already upserted are flushed even after cancellation so the
	// durable index matches the record store.
	if err := s.index.Persist(context.WithoutCancel(ctx)); err != nil {
		return summary, fmt.Errorf("persist index: %w", err)
	}
	if waitErr != nil {
		return summary, waitErr
	}

	ok, failed := summary.Totals()
	logger.Info("Ingestion finished: %d records indexed, %d failed", ok, failed)
	return summary, nil
}

func (s *IngestService) ingestCompany(ctx context.Context, payloads []domain.RawPayload, tally *domain.IngestTally) error {
	for i := range payloads {
		if err := ctx.Err(); err != nil {
			return err
		}

		records, err := s.normaliser.Normalise(ctx, &payloads[i])
		if err != nil {
			fail(tally, payloads[i].SourceURL, err)
			continue
		}

		for _, record := range records {
			n, err := s.ingestRecord(ctx, record)
			if err != nil {
				if isCancelled(err) {
					return err
				}
				fail(tally, record.SourceURL, err)
				continue
			}
			tally.Succeeded++
			tally.Chunks += n
		}

		if err := s.pruneStale(ctx, records); err != nil {
			if isCancelled(err) {
				return err
			}
			fail(tally, payloads[i].SourceURL, err)
		}
	}
	logger.Debug("Company %s: %d records, %d chunks, %d failed",
		tally.CompanyID, tally.Succeeded, tally.Chunks, tally.Failed)
	return nil
}

// ingestRecord chunks, embeds and stores one record and returns its chunk count.
func (s *IngestService) ingestRecord(ctx context.Context, record domain.Record) (int, error) {
	chunks, err := s.chunker.Chunk(record)
	if err != nil {
		return 0, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}

	entries := make([]domain.IndexedEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = domain.NewIndexedEntry(c, vectors[i])
	}

	prev, prevChunks, err := s.stored(ctx, record.ID)
	if err != nil {
		return 0, err
	}
	if err := s.records.SaveRecord(ctx, record, chunks); err != nil {
		return 0, fmt.Errorf("save record: %w", err)
	}
	if err := s.index.Upsert(ctx, entries); err != nil {
		s.restore(ctx, record.ID, prev, prevChunks)
		return 0, fmt.Errorf("index: %w", err)
	}
	return len(chunks), nil
}

// stored returns the current version of a record, or nil when it is new.
func (s *IngestService) stored(ctx context.Context, id string) (*domain.Record, []domain.Chunk, error) {
	record, err := s.records.GetRecord(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load stored record: %w", err)
	}
	chunks, err := s.records.GetChunks(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load stored chunks: %w", err)
	}
	return record, chunks, nil
}

// restore puts back the stored version of a record whose index update failed,
// so the record store keeps matching the index.
func (s *IngestService) restore(ctx context.Context, id string, prev *domain.Record, chunks []domain.Chunk) {
	ctx = context.WithoutCancel(ctx)
	var err error
	if prev == nil {
		err = s.records.DeleteRecord(ctx, id)
	} else {
		err = s.records.SaveRecord(ctx, *prev, chunks)
	}
	if err != nil {
		logger.Error("Rolling back record %s: %v", id, err)
	}
}

// pruneStale removes records an earlier scrape of the same document produced
// that this scrape no longer yields, such as PDF pages that went away.
func (s *IngestService) pruneStale(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	current := make(map[string]bool, len(records))
	documents := make(map[string]bool)
	for _, r := range records {
		current[r.ID] = true
		documents[domain.DocumentURL(r.SourceURL)] = true
	}

	first := records[0]
	existing, err := s.records.ListRecords(ctx, first.CompanyID)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	for _, old := range existing {
		if current[old.ID] || old.SourceType != first.SourceType || !documents[domain.DocumentURL(old.SourceURL)] {
			continue
		}
		if err := s.index.RemoveRecord(ctx, old.CompanyID, old.ID); err != nil {
			return fmt.Errorf("remove stale %s: %w", old.SourceURL, err)
		}
		if err := s.records.DeleteRecord(ctx, old.ID); err != nil {
			return fmt.Errorf("delete stale %s: %w", old.SourceURL, err)
		}
		logger.Debug("Removed stale record %s", old.SourceURL)
	}
	return nil
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func fail(tally *domain.IngestTally, source string, err error) {
	tally.Failed++
	msg := fmt.Sprintf("%s: %v", source, err)
	tally.Errors = append(tally.Errors, msg)
	logger.Warn("Skipping %s", msg)
}

// RemoveRecord deletes a record and its indexed chunks.
func (s *IngestService) RemoveRecord(ctx context.Context, recordID string) error {
	record, err := s.records.GetRecord(ctx, recordID)
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}
	if err := s.index.RemoveRecord(ctx, record.CompanyID, record.ID); err != nil {
		return fmt.Errorf("remove from index: %w", err)
	}
	if err := s.records.DeleteRecord(ctx, record.ID); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if err := s.index.Persist(ctx); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	return nil
}

// Stats returns the number of indexed chunks per company.
func (s *IngestService) Stats(ctx context.Context) (map[string]int, error) {
	companies, err := s.index.Companies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	stats := make(map[string]int, len(companies))
	for _, id := range companies {
		n, err := s.index.Count(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", id, err)
		}
		stats[id] = n
	}
	return stats, nil
}
