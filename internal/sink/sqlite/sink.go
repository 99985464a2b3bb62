// Package sqlite writes crawl records into a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// Sink implements crawler.Sink on a single SQLite file.
type Sink struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("sink.path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite has a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Sink{db: db, path: path}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Sink) Close() error {
	return s.db.Close()
}

func (s *Sink) createTables(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS links (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL,
	url        TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	level      INTEGER NOT NULL,
	sequence   INTEGER NOT NULL,
	keywords   TEXT NOT NULL,
	links      TEXT NOT NULL,
	fetched_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_links_run ON links(run_id, sequence);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}

// Insert writes one row.
func (s *Sink) Insert(ctx context.Context, record crawler.Record) error {
	keywordsJSON, err := json.Marshal(record.Keywords)
	if err != nil {
		return fmt.Errorf("%w: marshal keywords: %w", crawler.ErrInvalidRecord, err)
	}
	linksJSON, err := json.Marshal(record.Links)
	if err != nil {
		return fmt.Errorf("%w: marshal links: %w", crawler.ErrInvalidRecord, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO links (run_id, url, title, level, sequence, keywords, links, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.URL,
		record.Title,
		record.Level,
		record.Sequence,
		string(keywordsJSON),
		string(linksJSON),
		record.FetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert link row: %w", err)
	}
	return nil
}

// Records returns every row for runID ordered by sequence.
func (s *Sink) Records(ctx context.Context, runID string) ([]crawler.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, url, title, level, sequence, keywords, links, fetched_at
		FROM links WHERE run_id = ? ORDER BY sequence`, runID)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []crawler.Record
	for rows.Next() {
		var (
			rec                crawler.Record
			keywords, linksRaw string
		)
		if err := rows.Scan(&rec.RunID, &rec.URL, &rec.Title, &rec.Level, &rec.Sequence,
			&keywords, &linksRaw, &rec.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan link row: %w", err)
		}
		if err := json.Unmarshal([]byte(keywords), &rec.Keywords); err != nil {
			return nil, fmt.Errorf("decode keywords: %w", err)
		}
		if err := json.Unmarshal([]byte(linksRaw), &rec.Links); err != nil {
			return nil, fmt.Errorf("decode links: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate link rows: %w", err)
	}
	return out, nil
}
