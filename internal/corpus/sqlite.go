package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the corpus in a local SQLite file. Rows are listed in
// insertion order.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single connection serialises writers; sqlite allows one at a time.
	db.SetMaxOpenConns(1)
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	statements := []string{
		"PRAGMA journal_mode=WAL;",
		`CREATE TABLE IF NOT EXISTS publications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT,
			year TEXT NOT NULL DEFAULT '',
			authors TEXT NOT NULL DEFAULT '[]',
			publication_url TEXT NOT NULL DEFAULT '',
			extra TEXT NOT NULL DEFAULT '{}'
		);`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Publication, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, year, authors, publication_url, extra FROM publications ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list publications: %w", err)
	}
	defer rows.Close()

	pubs := make([]Publication, 0)
	for rows.Next() {
		var (
			title   sql.NullString
			p       Publication
			authors string
			extra   string
		)
		if err := rows.Scan(&title, &p.Year, &authors, &p.PublicationURL, &extra); err != nil {
			return nil, fmt.Errorf("sqlite: scan publication: %w", err)
		}
		if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
			return nil, fmt.Errorf("sqlite: decode authors: %w", err)
		}
		if p.Extra, err = decodeExtra([]byte(extra)); err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		if title.Valid {
			p.Title = title.String
		} else {
			p = Untitled(p)
		}
		pubs = append(pubs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate publications: %w", err)
	}
	return pubs, nil
}

// Replace swaps the whole table for pubs in one transaction.
func (s *SQLiteStore) Replace(ctx context.Context, pubs []Publication) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM publications`); err != nil {
		return fmt.Errorf("sqlite: clear publications: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO publications (title, year, authors, publication_url, extra) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range pubs {
		authors := p.Authors
		if authors == nil {
			authors = []string{}
		}
		authorsJSON, err := json.Marshal(authors)
		if err != nil {
			return fmt.Errorf("sqlite: encode authors of publication %d: %w", i, err)
		}
		extra, err := encodeExtra(p.Extra)
		if err != nil {
			return fmt.Errorf("sqlite: publication %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, nullableTitle(p), p.Year, string(authorsJSON), p.PublicationURL, extra); err != nil {
			return fmt.Errorf("sqlite: insert publication %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM publications`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count publications: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullableTitle(p Publication) sql.NullString {
	title, ok := p.IndexTitle()
	return sql.NullString{String: title, Valid: ok}
}
