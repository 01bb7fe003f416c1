package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/canonic/internal/domain"
	domidx "github.com/kailas-cloud/canonic/internal/domain/index"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS entries (
		pos       INTEGER PRIMARY KEY,
		variant   TEXT NOT NULL,
		canonical TEXT NOT NULL,
		embedding BLOB NOT NULL
	);
`

// SQLiteRepo stores the index in a SQLite database with meta and entries tables.
type SQLiteRepo struct {
	path string
}

// NewSQLite creates a SQLite repository. The database is opened per call.
func NewSQLite(path string) *SQLiteRepo {
	return &SQLiteRepo{path: path}
}

// Path returns the database location.
func (r *SQLiteRepo) Path() string { return r.path }

func (r *SQLiteRepo) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", r.path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma failed: %w", err)
		}
	}
	return db, nil
}

// Save replaces every row inside one transaction.
func (r *SQLiteRepo) Save(ctx context.Context, idx domidx.Index) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o750); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	db, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range []string{"DELETE FROM entries", "DELETE FROM meta"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear index: %w", err)
		}
	}

	meta := idx.Meta()
	metaRows := map[string]string{
		"format":     formatName,
		"version":    strconv.Itoa(domidx.FormatVersion),
		"model":      meta.Model,
		"dimensions": strconv.Itoa(meta.Dimensions),
		"created_at": meta.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range metaRows {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("insert meta %s: %w", k, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO entries (pos, variant, canonical, embedding) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range idx.Len() {
		if _, err := stmt.ExecContext(ctx, i, idx.Variant(i), idx.Canonical(i), encodeVector(idx.Vector(i))); err != nil {
			return fmt.Errorf("insert entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load reads the meta and entries tables back into an index.
func (r *SQLiteRepo) Load(ctx context.Context) (domidx.Index, error) {
	if _, err := os.Stat(r.path); errors.Is(err, fs.ErrNotExist) {
		return domidx.Index{}, fmt.Errorf("%s: %w", r.path, domain.ErrIndexNotFound)
	}

	db, err := r.open(ctx)
	if err != nil {
		return domidx.Index{}, fmt.Errorf("%v: %w", err, domain.ErrUnreadableInput)
	}
	defer db.Close()

	a, err := readArtifact(ctx, db)
	if err != nil {
		return domidx.Index{}, err
	}
	return artifactToIndex(a)
}

func readArtifact(ctx context.Context, db *sql.DB) (artifact, error) {
	var a artifact

	rows, err := db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return a, fmt.Errorf("read meta: %v: %w", err, domain.ErrUnreadableInput)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return a, fmt.Errorf("scan meta: %v: %w", err, domain.ErrUnreadableInput)
		}
		switch k {
		case "format":
			a.Format = v
		case "version":
			a.Version, _ = strconv.Atoi(v)
		case "model":
			a.Model = v
		case "dimensions":
			a.Dimensions, _ = strconv.Atoi(v)
		case "created_at":
			a.CreatedAt, _ = time.Parse(time.RFC3339Nano, v)
		}
	}
	if err := rows.Err(); err != nil {
		return a, fmt.Errorf("read meta: %v: %w", err, domain.ErrUnreadableInput)
	}

	entries, err := db.QueryContext(ctx, "SELECT variant, canonical, embedding FROM entries ORDER BY pos")
	if err != nil {
		return a, fmt.Errorf("read entries: %v: %w", err, domain.ErrIndexFormatOutdated)
	}
	defer entries.Close()

	a.Variants = []string{}
	a.Canonicals = []string{}
	a.Embeddings = [][]float32{}
	for entries.Next() {
		var variant, canonical string
		var blob []byte
		if err := entries.Scan(&variant, &canonical, &blob); err != nil {
			return a, fmt.Errorf("scan entry: %v: %w", err, domain.ErrUnreadableInput)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return a, err
		}
		a.Variants = append(a.Variants, variant)
		a.Canonicals = append(a.Canonicals, canonical)
		a.Embeddings = append(a.Embeddings, vec)
	}
	if err := entries.Err(); err != nil {
		return a, fmt.Errorf("read entries: %v: %w", err, domain.ErrUnreadableInput)
	}
	return a, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("embedding blob of %d bytes: %w", len(data), domain.ErrIndexCorrupt)
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
