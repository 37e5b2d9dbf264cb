package flat

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/signalkb/internal/core/domain"
	"github.com/custodia-labs/signalkb/internal/logger"
)

// snapshotFormat is bumped when the snapshot schema changes.
const snapshotFormat = 1

const snapshotSchema = `
CREATE TABLE meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
CREATE TABLE entries (
    chunk_id TEXT NOT NULL,
    record_id TEXT NOT NULL,
    company_id TEXT NOT NULL,
    source_type TEXT NOT NULL,
    source_url TEXT NOT NULL,
    text TEXT NOT NULL,
    vector BLOB NOT NULL,
    PRIMARY KEY (company_id, chunk_id)
);
`

// Persist writes the index to a temporary database and atomically renames
// it over the snapshot path.
func (idx *Index) Persist(ctx context.Context) error {
	idx.persistMu.Lock()
	defer idx.persistMu.Unlock()

	partitions, dims := idx.snapshot()

	dir := filepath.Dir(idx.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: creating index directory: %v", domain.ErrIndexIO, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(idx.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp snapshot: %v", domain.ErrIndexIO, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if err := writeSnapshot(ctx, tmpPath, idx.model, dims, partitions); err != nil {
		return fmt.Errorf("%w: writing snapshot: %v", domain.ErrIndexIO, err)
	}
	if err := syncFile(tmpPath); err != nil {
		return fmt.Errorf("%w: syncing snapshot: %v", domain.ErrIndexIO, err)
	}
	if err := os.Rename(tmpPath, idx.path); err != nil {
		return fmt.Errorf("%w: replacing snapshot: %v", domain.ErrIndexIO, err)
	}
	committed = true

	logger.Debug("persisted index snapshot %s (%d companies, %d dims)", idx.path, len(partitions), dims)
	return nil
}

func writeSnapshot(ctx context.Context, path, model string, dims int, partitions map[string]*partition) error {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(DELETE)&_pragma=synchronous(FULL)")
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	meta := map[string]string{
		"format":     strconv.Itoa(snapshotFormat),
		"model":      model,
		"dimensions": strconv.Itoa(dims),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("writing meta: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (chunk_id, record_id, company_id, source_type, source_url, text, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	companies := make([]string, 0, len(partitions))
	for c := range partitions {
		companies = append(companies, c)
	}
	sort.Strings(companies)

	for _, c := range companies {
		for _, e := range partitions[c].entries {
			if _, err := stmt.ExecContext(ctx, e.ChunkID, e.RecordID, e.CompanyID, string(e.SourceType),
				e.SourceURL, e.Text, float32SliceToBytes(e.Vector)); err != nil {
				return fmt.Errorf("writing entry %s: %w", e.ChunkID, err)
			}
		}
	}

	return tx.Commit()
}

// Load replaces the in-memory state with the snapshot. A missing snapshot
// leaves the index empty.
func (idx *Index) Load(ctx context.Context) error {
	if _, err := os.Stat(idx.path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("no index snapshot at %s, starting empty", idx.path)
		return nil
	}

	db, err := sql.Open("sqlite", idx.path)
	if err != nil {
		return fmt.Errorf("%w: opening snapshot: %v", domain.ErrIndexIO, err)
	}
	defer db.Close()

	meta, err := readMeta(ctx, db)
	if err != nil {
		return fmt.Errorf("%w: reading snapshot meta: %v", domain.ErrIndexIO, err)
	}
	if meta["format"] != strconv.Itoa(snapshotFormat) {
		return fmt.Errorf("%w: unsupported snapshot format %q", domain.ErrIndexIO, meta["format"])
	}
	dims, err := strconv.Atoi(meta["dimensions"])
	if err != nil {
		return fmt.Errorf("%w: invalid snapshot dimensions %q", domain.ErrIndexIO, meta["dimensions"])
	}
	if idx.model != "" && meta["model"] != "" && meta["model"] != idx.model {
		return fmt.Errorf("%w: snapshot built with model %s, index uses %s; full reindex required",
			domain.ErrIndexIO, meta["model"], idx.model)
	}
	if expected := idx.Dimensions(); expected != 0 && dims != 0 && dims != expected {
		return fmt.Errorf("%w: snapshot has %d dimensions, index uses %d; full reindex required",
			domain.ErrIndexIO, dims, expected)
	}

	byCompany, err := readEntries(ctx, db, dims)
	if err != nil {
		return fmt.Errorf("%w: reading snapshot entries: %v", domain.ErrIndexIO, err)
	}

	partitions := make(map[string]*partition, len(byCompany))
	for c, entries := range byCompany {
		partitions[c] = newPartition(entries)
	}

	idx.mu.Lock()
	idx.partitions = partitions
	if dims != 0 {
		idx.dimensions = dims
	}
	idx.mu.Unlock()

	logger.Debug("loaded index snapshot %s (%d companies)", idx.path, len(partitions))
	return nil
}

func readMeta(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func readEntries(ctx context.Context, db *sql.DB, dims int) (map[string][]domain.IndexedEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT chunk_id, record_id, company_id, source_type, source_url, text, vector
		FROM entries ORDER BY company_id, chunk_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.IndexedEntry)
	for rows.Next() {
		var e domain.IndexedEntry
		var sourceType string
		var blob []byte
		if err := rows.Scan(&e.ChunkID, &e.RecordID, &e.CompanyID, &sourceType,
			&e.SourceURL, &e.Text, &blob); err != nil {
			return nil, err
		}
		e.SourceType = domain.SourceType(sourceType)
		e.Vector = bytesToFloat32Slice(blob)
		if len(e.Vector) != dims {
			return nil, fmt.Errorf("entry %s has %d dimensions, snapshot declares %d", e.ChunkID, len(e.Vector), dims)
		}
		out[e.CompanyID] = append(out[e.CompanyID], e)
	}
	return out, rows.Err()
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// float32SliceToBytes converts a []float32 to a little-endian byte slice.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
