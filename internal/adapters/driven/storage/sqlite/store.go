package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/signalkb/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/core/ports/driven"
)

// Store is a SQLite-based storage that provides access to the company
// registry and the record store through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.signalkb/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".signalkb", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Pragmas in the DSN apply to every pooled connection.
	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CompanyStore returns a CompanyStore interface backed by this store.
func (s *Store) CompanyStore() driven.CompanyStore {
	return &companyStore{store: s}
}

// RecordStore returns a RecordStore interface backed by this store.
func (s *Store) RecordStore() driven.RecordStore {
	return &recordStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Company Store ====================

// companyStore implements driven.CompanyStore.
type companyStore struct {
	store *Store
}

var _ driven.CompanyStore = (*companyStore)(nil)

// Save stores or updates a company. The original registration time is kept.
func (s *companyStore) Save(ctx context.Context, company domain.Company) error {
	if company.ID == "" {
		return fmt.Errorf("%w: company id is required", domain.ErrInvalidInput)
	}
	if company.CreatedAt.IsZero() {
		company.CreatedAt = time.Now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO companies (id, name, website_url, linkedin_url, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			website_url = excluded.website_url,
			linkedin_url = excluded.linkedin_url
	`, company.ID, company.Name, company.WebsiteURL, company.LinkedInURL, company.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving company: %w", err)
	}
	return nil
}

// Get retrieves a company by id.
func (s *companyStore) Get(ctx context.Context, id string) (*domain.Company, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, website_url, linkedin_url, created_at
		FROM companies WHERE id = ?
	`, id)

	var c domain.Company
	if err := row.Scan(&c.ID, &c.Name, &c.WebsiteURL, &c.LinkedInURL, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning company: %w", err)
	}
	return &c, nil
}

// List returns all companies ordered by id.
func (s *companyStore) List(ctx context.Context) ([]domain.Company, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, website_url, linkedin_url, created_at
		FROM companies ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying companies: %w", err)
	}
	defer rows.Close()

	var companies []domain.Company //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.WebsiteURL, &c.LinkedInURL, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating companies: %w", err)
	}
	return companies, nil
}

// Delete removes a company together with its records and chunks.
func (s *companyStore) Delete(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM companies WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting company: %w", err)
	}
	return nil
}

// ==================== Record Store ====================

// recordStore implements driven.RecordStore.
type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

// SaveRecord stores a record and replaces its chunks in one transaction.
func (s *recordStore) SaveRecord(ctx context.Context, record domain.Record, chunks []domain.Chunk) error {
	if record.ID == "" {
		return fmt.Errorf("%w: record id is required", domain.ErrInvalidInput)
	}
	for _, c := range chunks {
		if c.RecordID != record.ID {
			return fmt.Errorf("%w: chunk %s does not belong to record %s", domain.ErrInvalidInput, c.ID, record.ID)
		}
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (id, company_id, source_type, source_url, title, raw_text, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			company_id = excluded.company_id,
			source_type = excluded.source_type,
			source_url = excluded.source_url,
			title = excluded.title,
			raw_text = excluded.raw_text,
			captured_at = excluded.captured_at
	`, record.ID, record.CompanyID, string(record.SourceType), record.SourceURL,
		record.Title, record.RawText, record.CapturedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE record_id = ?", record.ID); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, record_id, company_id, source_type, source_url, text, sequence, range_start, range_end)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing chunk insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range chunks {
			if _, err := stmt.ExecContext(ctx, c.ID, c.RecordID, c.CompanyID, string(c.SourceType),
				c.SourceURL, c.Text, c.Sequence, c.Range.Start, c.Range.End); err != nil {
				return fmt.Errorf("saving chunk %s: %w", c.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing record: %w", err)
	}
	return nil
}

// GetRecord retrieves a record by id.
func (s *recordStore) GetRecord(ctx context.Context, id string) (*domain.Record, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, company_id, source_type, source_url, title, raw_text, captured_at
		FROM records WHERE id = ?
	`, id)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRecords returns the records of a company ordered by capture time.
func (s *recordStore) ListRecords(ctx context.Context, companyID string) ([]domain.Record, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, company_id, source_type, source_url, title, raw_text, captured_at
		FROM records WHERE company_id = ?
		ORDER BY captured_at, id
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record //nolint:prealloc // size unknown from query
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// GetChunks returns the chunks of a record ordered by sequence.
func (s *recordStore) GetChunks(ctx context.Context, recordID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, record_id, company_id, source_type, source_url, text, sequence, range_start, range_end
		FROM chunks WHERE record_id = ?
		ORDER BY sequence
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.Chunk
		var sourceType string
		if err := rows.Scan(&c.ID, &c.RecordID, &c.CompanyID, &sourceType, &c.SourceURL,
			&c.Text, &c.Sequence, &c.Range.Start, &c.Range.End); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.SourceType = domain.SourceType(sourceType)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// DeleteRecord removes a record and its chunks.
func (s *recordStore) DeleteRecord(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord scans a single record row. sql.ErrNoRows is returned unwrapped.
func scanRecord(row rowScanner) (domain.Record, error) {
	var r domain.Record
	var sourceType string
	if err := row.Scan(&r.ID, &r.CompanyID, &sourceType, &r.SourceURL,
		&r.Title, &r.RawText, &r.CapturedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scanning record: %w", err)
	}
	r.SourceType = domain.SourceType(sourceType)
	return r, nil
}
