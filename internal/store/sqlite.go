package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	wferrors "github.com/Aman-CERP/wayfarer/internal/errors"
)

// SQLiteStore implements DocumentStore backed by SQLite.
// WAL mode allows the seeder and the serving process to coexist.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// Verify interface implementation at compile time
var _ DocumentStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a document store at path.
// An empty path creates an in-memory store for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, wferrors.New(wferrors.ErrCodeMetadataStore,
				fmt.Sprintf("failed to create directory %s", filepath.Dir(path)), err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wferrors.New(wferrors.ErrCodeMetadataStore, "failed to open database", err)
	}

	// Single writer prevents lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, wferrors.New(wferrors.ErrCodeMetadataStore, "failed to set pragma", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, wferrors.New(wferrors.ErrCodeMetadataStore, "failed to initialize schema", err)
	}
	return s, nil
}

// initSchema creates the documents table.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS documents (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		body         TEXT NOT NULL,
		category     TEXT NOT NULL,
		country      TEXT NOT NULL,
		source       TEXT NOT NULL DEFAULT '',
		reliability  REAL NOT NULL DEFAULT 0,
		last_updated INTEGER NOT NULL DEFAULT 0,
		tags         TEXT NOT NULL DEFAULT '',
		embedding    BLOB
	);

	CREATE INDEX IF NOT EXISTS idx_documents_country ON documents(country);
	CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ReplaceAll atomically replaces the entire document set in one
// transaction. A failure rolls back and leaves the previous set intact.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, docs []*Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return wferrors.New(wferrors.ErrCodeStoreClosed, "document store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wferrors.New(wferrors.ErrCodeMetadataStore, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return wferrors.New(wferrors.ErrCodeMetadataStore, "failed to clear documents", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, title, body, category, country, source, reliability, last_updated, tags, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return wferrors.New(wferrors.ErrCodeMetadataStore, "failed to prepare insert", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		_, err := stmt.ExecContext(ctx,
			doc.ID, doc.Title, doc.Body, string(doc.Category), doc.Country,
			doc.Source, doc.Reliability, doc.LastUpdated.Unix(),
			strings.Join(doc.Tags, ","), encodeVector(doc.Embedding))
		if err != nil {
			return wferrors.New(wferrors.ErrCodeMetadataStore,
				fmt.Sprintf("failed to insert document %s", doc.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wferrors.New(wferrors.ErrCodeMetadataStore, "failed to commit", err)
	}
	return nil
}

const documentColumns = "id, title, body, category, country, source, reliability, last_updated, tags, embedding"

// Get returns a document by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, wferrors.New(wferrors.ErrCodeStoreClosed, "document store is closed", nil)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, wferrors.New(wferrors.ErrCodeMetadataStore,
			fmt.Sprintf("document not found: %s", id), nil)
	}
	if err != nil {
		return nil, wferrors.New(wferrors.ErrCodeMetadataStore,
			fmt.Sprintf("failed to load document %s", id), err)
	}
	return doc, nil
}

// GetBatch returns documents for the given IDs, preserving input order.
// Missing IDs are skipped.
func (s *SQLiteStore) GetBatch(ctx context.Context, ids []string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, wferrors.New(wferrors.ErrCodeStoreClosed, "document store is closed", nil)
	}
	if len(ids) == 0 {
		return []*Document{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, wferrors.New(wferrors.ErrCodeMetadataStore, "failed to query documents", err)
	}
	defer rows.Close()

	byID := make(map[string]*Document, len(ids))
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, wferrors.New(wferrors.ErrCodeMetadataStore, "failed to scan document", err)
		}
		byID[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, wferrors.New(wferrors.ErrCodeMetadataStore, "failed to iterate documents", err)
	}

	result := make([]*Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			result = append(result, doc)
		}
	}
	return result, nil
}

// ListAll returns every document ordered by ID.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, wferrors.New(wferrors.ErrCodeStoreClosed, "document store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents ORDER BY id")
	if err != nil {
		return nil, wferrors.New(wferrors.ErrCodeMetadataStore, "failed to list documents", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, wferrors.New(wferrors.ErrCodeMetadataStore, "failed to scan document", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, wferrors.New(wferrors.ErrCodeMetadataStore, "failed to iterate documents", err)
	}
	return docs, nil
}

// Count returns the number of stored documents.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, wferrors.New(wferrors.ErrCodeStoreClosed, "document store is closed", nil)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&count); err != nil {
		return 0, wferrors.New(wferrors.ErrCodeMetadataStore, "failed to count documents", err)
	}
	return count, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanDocument.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument scans one document row.
func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc       Document
		category  string
		updatedAt int64
		tags      string
		embedding []byte
	)

	err := row.Scan(&doc.ID, &doc.Title, &doc.Body, &category, &doc.Country,
		&doc.Source, &doc.Reliability, &updatedAt, &tags, &embedding)
	if err != nil {
		return nil, err
	}

	doc.Category = Category(category)
	doc.LastUpdated = time.Unix(updatedAt, 0).UTC()
	if tags != "" {
		doc.Tags = strings.Split(tags, ",")
	}
	doc.Embedding = decodeVector(embedding)
	return &doc, nil
}

// encodeVector serializes a float32 vector as little-endian bytes.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector deserializes a little-endian float32 vector.
func decodeVector(buf []byte) []float32 {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
