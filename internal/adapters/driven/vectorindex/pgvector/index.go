// Package pgvector provides a vector index stored in PostgreSQL with the
// pgvector extension. Every write runs in one transaction, so the index is
// durable per upsert and Persist only verifies the connection.
package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
	"github.com/custodia-labs/signalkb/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultK is the number of results returned when SearchOptions.K is unset.
const DefaultK = 10

// Index is a company-partitioned vector index backed by PostgreSQL.
type Index struct {
	db         *sql.DB
	model      string
	dimensions int
}

// Config configures the PostgreSQL index.
type Config struct {
	// DSN is the lib/pq connection string.
	DSN string

	// Model is the embedding model that produces the vectors.
	Model string

	// Dimensions is the vector size. Required; fixes the column type.
	Dimensions int
}

// New connects to PostgreSQL and creates the schema if needed.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: pgvector index requires the vector size", domain.ErrInvalidInput)
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", domain.ErrIndexIO, err)
	}
	idx := &Index{db: db, model: cfg.Model, dimensions: cfg.Dimensions}
	if err := idx.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS signalkb_index_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS signalkb_entries (
			company_id TEXT NOT NULL,
			chunk_id TEXT NOT NULL,
			record_id TEXT NOT NULL,
			source_type TEXT NOT NULL,
			source_url TEXT NOT NULL,
			text TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			PRIMARY KEY (company_id, chunk_id)
		)`, idx.dimensions),
		`CREATE INDEX IF NOT EXISTS idx_signalkb_entries_record ON signalkb_entries (company_id, record_id)`,
	}
	for _, stmt := range statements {
		if _, err := idx.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: creating schema: %v", domain.ErrIndexIO, err)
		}
	}

	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO signalkb_index_meta (key, value) VALUES ('model', $1), ('dimensions', $2)
		ON CONFLICT (key) DO NOTHING
	`, idx.model, strconv.Itoa(idx.dimensions))
	if err != nil {
		return fmt.Errorf("%w: writing index meta: %v", domain.ErrIndexIO, err)
	}
	return nil
}

// Dimensions returns the vector size.
func (idx *Index) Dimensions() int {
	return idx.dimensions
}

// Upsert stores entries in one transaction, first deleting every earlier
// entry of the records in the batch. Writers for one company are
// serialised with an advisory lock.
func (idx *Index) Upsert(ctx context.Context, entries []domain.IndexedEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if len(e.Vector) != idx.dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, e.ChunkID, len(e.Vector), idx.dimensions)
		}
		if e.CompanyID == "" || e.ChunkID == "" {
			return fmt.Errorf("%w: entry requires company and chunk ids", domain.ErrInvalidInput)
		}
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", domain.ErrIndexIO, err)
	}
	defer func() { _ = tx.Rollback() }()

	locked := make(map[string]bool)
	replaced := make(map[[2]string]bool)
	for _, e := range entries {
		if !locked[e.CompanyID] {
			if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, e.CompanyID); err != nil {
				return fmt.Errorf("%w: locking company %s: %v", domain.ErrIndexIO, e.CompanyID, err)
			}
			locked[e.CompanyID] = true
		}
		key := [2]string{e.CompanyID, e.RecordID}
		if !replaced[key] {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM signalkb_entries WHERE company_id = $1 AND record_id = $2`,
				e.CompanyID, e.RecordID); err != nil {
				return fmt.Errorf("%w: clearing record %s: %v", domain.ErrIndexIO, e.RecordID, err)
			}
			replaced[key] = true
		}
	}

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO signalkb_entries (company_id, chunk_id, record_id, source_type, source_url, text, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (company_id, chunk_id) DO UPDATE SET
				record_id = EXCLUDED.record_id,
				source_type = EXCLUDED.source_type,
				source_url = EXCLUDED.source_url,
				text = EXCLUDED.text,
				embedding = EXCLUDED.embedding
		`, e.CompanyID, e.ChunkID, e.RecordID, string(e.SourceType), e.SourceURL, e.Text, pgvector.NewVector(e.Vector))
		if err != nil {
			return fmt.Errorf("%w: inserting chunk %s: %v", domain.ErrIndexIO, e.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing upsert: %v", domain.ErrIndexIO, err)
	}
	return nil
}

// RemoveRecord deletes every entry of a record.
func (idx *Index) RemoveRecord(ctx context.Context, companyID, recordID string) error {
	_, err := idx.db.ExecContext(ctx,
		`DELETE FROM signalkb_entries WHERE company_id = $1 AND record_id = $2`, companyID, recordID)
	if err != nil {
		return fmt.Errorf("%w: removing record %s: %v", domain.ErrIndexIO, recordID, err)
	}
	return nil
}

// Search ranks the company's entries by cosine similarity.
func (idx *Index) Search(
	ctx context.Context, query []float32, companyID string, opts domain.SearchOptions,
) ([]domain.RetrievalResult, error) {
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), idx.dimensions)
	}
	k := opts.K
	if k <= 0 {
		k = DefaultK
	}

	var sourceTypes []string
	for _, s := range opts.SourceTypes {
		sourceTypes = append(sourceTypes, string(s))
	}

	rows, err := idx.db.QueryContext(ctx, `
		SELECT chunk_id, record_id, source_type, source_url, text, 1 - (embedding <=> $1::vector) AS score
		FROM signalkb_entries
		WHERE company_id = $2
			AND (cardinality($3::text[]) = 0 OR source_type = ANY($3::text[]))
			AND ($4::float8 <= 0 OR 1 - (embedding <=> $1::vector) >= $4::float8)
		ORDER BY score DESC, chunk_id ASC
		LIMIT $5::int
	`, pgvector.NewVector(query), companyID, pq.Array(sourceTypes), opts.MinScore, k)
	if err != nil {
		return nil, fmt.Errorf("%w: searching: %v", domain.ErrIndexIO, err)
	}
	defer rows.Close()

	results := []domain.RetrievalResult{}
	for rows.Next() {
		var r domain.RetrievalResult
		var sourceType string
		if err := rows.Scan(&r.ChunkID, &r.RecordID, &sourceType, &r.SourceURL, &r.Text, &r.Score); err != nil {
			return nil, fmt.Errorf("%w: scanning result: %v", domain.ErrIndexIO, err)
		}
		r.SourceType = domain.SourceType(sourceType)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating results: %v", domain.ErrIndexIO, err)
	}
	return results, nil
}

// Count returns the number of entries indexed for a company.
func (idx *Index) Count(ctx context.Context, companyID string) (int, error) {
	var n int
	err := idx.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM signalkb_entries WHERE company_id = $1`, companyID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: counting entries: %v", domain.ErrIndexIO, err)
	}
	return n, nil
}

// Companies returns the ids of companies with indexed entries, sorted.
func (idx *Index) Companies(ctx context.Context) ([]string, error) {
	rows, err := idx.db.QueryContext(ctx, `SELECT DISTINCT company_id FROM signalkb_entries ORDER BY company_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing companies: %v", domain.ErrIndexIO, err)
	}
	defer rows.Close()

	companies := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("%w: scanning company: %v", domain.ErrIndexIO, err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// Persist verifies the connection. Writes are durable once committed.
func (idx *Index) Persist(ctx context.Context) error {
	if err := idx.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexIO, err)
	}
	return nil
}

// Load verifies that the stored index was built with the same model and
// vector size.
func (idx *Index) Load(ctx context.Context) error {
	meta := make(map[string]string)
	rows, err := idx.db.QueryContext(ctx, `SELECT key, value FROM signalkb_index_meta`)
	if err != nil {
		return fmt.Errorf("%w: reading index meta: %v", domain.ErrIndexIO, err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("%w: scanning index meta: %v", domain.ErrIndexIO, err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: reading index meta: %v", domain.ErrIndexIO, err)
	}

	if model := meta["model"]; idx.model != "" && model != "" && model != idx.model {
		return fmt.Errorf("%w: index built with model %s, configured %s; full reindex required",
			domain.ErrIndexIO, model, idx.model)
	}
	if dims := meta["dimensions"]; dims != "" && dims != strconv.Itoa(idx.dimensions) {
		return fmt.Errorf("%w: index has %s dimensions, configured %d; full reindex required",
			domain.ErrIndexIO, dims, idx.dimensions)
	}
	logger.Debug("pgvector index ready (model %s, %d dims)", idx.model, idx.dimensions)
	return nil
}

// Close releases the connection pool.
func (idx *Index) Close() error {
	if err := idx.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}
