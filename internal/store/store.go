// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists papers and their extracted content in SQLite.
//
// The store is the only component that writes durable state. Every paper is
// keyed by its external id; Upsert resolves concurrent writers through the
// unique constraint, so the same paper can never produce two rows.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// ErrNotFound is returned by Get when no paper has the external id.
var ErrNotFound = errors.New("paper not found")

const (
	defaultBusyTimeout = 5 * time.Second

	// timeLayout is fixed-width so text ordering matches time ordering.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store manages the paperwatch SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens or creates the database at cfg.Path and creates the schema
// if it does not exist. Safe to call on every startup. Failures wrap
// types.ErrStore.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: database path is empty", types.ErrStore)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating database directory: %w", types.ErrStore, err)
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d", cfg.Path, busy.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", types.ErrStore, err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating schema: %w", types.ErrStore, err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			title TEXT NOT NULL,
			authors TEXT NOT NULL,
			abstract TEXT NOT NULL,
			published_at TEXT NOT NULL,
			categories TEXT NOT NULL,
			document_url TEXT NOT NULL,
			local_document_path TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_published_at ON papers(published_at)`,
		`CREATE TABLE IF NOT EXISTS extracted_content (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			paper_id INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_extracted_content_paper_id ON extracted_content(paper_id)`,
		`CREATE INDEX IF NOT EXISTS idx_extracted_content_kind ON extracted_content(kind)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			keywords TEXT NOT NULL,
			sources TEXT NOT NULL,
			categories TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			subscription_id INTEGER REFERENCES subscriptions(id) ON DELETE SET NULL,
			report_date TEXT NOT NULL,
			paper_count INTEGER NOT NULL DEFAULT 0,
			output_path TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_date ON reports(report_date)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

const paperColumns = `id, external_id, source, title, authors, abstract, published_at,
	categories, document_url, local_document_path, created_at`

// Exists reports whether a paper with the external id is stored.
func (s *Store) Exists(ctx context.Context, externalID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM papers WHERE external_id = ?`, externalID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: checking %s: %w", types.ErrStore, externalID, err)
	}
	return n > 0, nil
}

// Get returns the stored paper with the external id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, externalID string) (*types.Paper, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paperColumns+` FROM papers WHERE external_id = ?`, externalID)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", types.ErrStore, externalID, err)
	}
	return p, nil
}

// Upsert inserts the paper if its external id is new and returns the row id.
// For an existing paper it overwrites the revisable metadata (title,
// authors, abstract, categories) and returns the existing row id; the
// identity, published_at, created_at, and local_document_path are never
// changed.
func (s *Store) Upsert(ctx context.Context, p types.Paper) (int64, error) {
	if p.ExternalID == "" {
		return 0, fmt.Errorf("%w: upsert: empty external id", types.ErrStore)
	}
	authors, err := json.Marshal(nonNil(p.Authors))
	if err != nil {
		return 0, fmt.Errorf("%w: encoding authors: %w", types.ErrStore, err)
	}
	categories, err := json.Marshal(nonNil(p.Categories))
	if err != nil {
		return 0, fmt.Errorf("%w: encoding categories: %w", types.ErrStore, err)
	}
	source := p.Source
	if source == "" {
		source = types.DefaultSource
	}
	now := formatTime(s.now())

	var id int64
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO papers (external_id, source, title, authors, abstract, published_at,
			categories, document_url, local_document_path, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(external_id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors,
			abstract=excluded.abstract, categories=excluded.categories,
			updated_at=excluded.updated_at
		 RETURNING id`,
		p.ExternalID, source, p.Title, string(authors), p.Abstract, formatTime(p.PublishedAt),
		string(categories), p.DocumentURL, nullString(p.LocalDocumentPath), now, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: upserting %s: %w", types.ErrStore, p.ExternalID, err)
	}
	return id, nil
}

// AttachDocumentPath records where a paper's document was saved.
func (s *Store) AttachDocumentPath(ctx context.Context, rowID int64, path string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE papers SET local_document_path = ?, updated_at = ? WHERE id = ?`,
		nullString(path), formatTime(s.now()), rowID)
	if err != nil {
		return fmt.Errorf("%w: attaching document to paper %d: %w", types.ErrStore, rowID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: attaching document: paper %d does not exist", types.ErrStore, rowID)
	}
	return nil
}

// SaveExtractedContent stores one piece of content extracted from a paper and
// returns its row id.
func (s *Store) SaveExtractedContent(ctx context.Context, paperID int64, kind types.ContentKind, payload string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO extracted_content (paper_id, kind, payload, created_at) VALUES (?, ?, ?, ?)`,
		paperID, string(kind), payload, formatTime(s.now()))
	if err != nil {
		return 0, fmt.Errorf("%w: saving %s for paper %d: %w", types.ErrStore, kind, paperID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: saving %s for paper %d: %w", types.ErrStore, kind, paperID, err)
	}
	return id, nil
}

// DeletePaper removes a paper and, by cascade, its extracted content. The
// pipeline never calls it; it exists for operators.
func (s *Store) DeletePaper(ctx context.Context, externalID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM papers WHERE external_id = ?`, externalID)
	if err != nil {
		return false, fmt.Errorf("%w: deleting %s: %w", types.ErrStore, externalID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Clear deletes every row from every table in one transaction and returns
// the number of papers removed. The schema is kept.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: clearing: %w", types.ErrStore, err)
	}
	defer tx.Rollback()

	var papers int64
	for _, table := range []string{"extracted_content", "reports", "subscriptions", "papers"} {
		res, err := tx.ExecContext(ctx, `DELETE FROM `+table)
		if err != nil {
			return 0, fmt.Errorf("%w: clearing %s: %w", types.ErrStore, table, err)
		}
		if table == "papers" {
			papers, _ = res.RowsAffected()
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: clearing: %w", types.ErrStore, err)
	}
	return papers, nil
}

// Counts summarizes the store contents.
type Counts struct {
	Papers           int
	WithDocument     int
	ExtractedContent int
	Previews         int
}

// Counts returns row counts for the status command.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT count(*) FROM papers),
			(SELECT count(*) FROM papers WHERE local_document_path IS NOT NULL),
			(SELECT count(*) FROM extracted_content),
			(SELECT count(*) FROM extracted_content WHERE kind = ?)`,
		string(types.ContentPreview),
	).Scan(&c.Papers, &c.WithDocument, &c.ExtractedContent, &c.Previews)
	if err != nil {
		return Counts{}, fmt.Errorf("%w: counting rows: %w", types.ErrStore, err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (*types.Paper, error) {
	var (
		p                      types.Paper
		authors, categories    string
		publishedAt, createdAt string
		localPath              sql.NullString
	)
	if err := row.Scan(&p.ID, &p.ExternalID, &p.Source, &p.Title, &authors, &p.Abstract,
		&publishedAt, &categories, &p.DocumentURL, &localPath, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
		return nil, fmt.Errorf("decoding authors: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &p.Categories); err != nil {
		return nil, fmt.Errorf("decoding categories: %w", err)
	}
	var err error
	if p.PublishedAt, err = parseTime(publishedAt); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	p.LocalDocumentPath = localPath.String
	return &p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
