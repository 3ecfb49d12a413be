package corpus

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/postgres"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS publications (
	id              BIGSERIAL PRIMARY KEY,
	title           TEXT,
	year            TEXT NOT NULL DEFAULT '',
	authors         TEXT[] NOT NULL DEFAULT '{}',
	publication_url TEXT NOT NULL DEFAULT '',
	extra           JSONB NOT NULL DEFAULT '{}'::jsonb,
	loaded_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps the corpus in the publications table.
type PostgresStore struct {
	client *postgres.Client
}

// NewPostgresStore ensures the schema exists and returns a store over client.
func NewPostgresStore(ctx context.Context, client *postgres.Client) (*PostgresStore, error) {
	if _, err := client.DB.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("creating publications table: %w", err)
	}
	return &PostgresStore{client: client}, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Publication, error) {
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT title, year, authors, publication_url, extra FROM publications ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing publications: %w", err)
	}
	defer rows.Close()

	pubs := make([]Publication, 0)
	for rows.Next() {
		var (
			title sql.NullString
			p     Publication
			extra []byte
		)
		if err := rows.Scan(&title, &p.Year, pq.Array(&p.Authors), &p.PublicationURL, &extra); err != nil {
			return nil, fmt.Errorf("scanning publication: %w", err)
		}
		if p.Extra, err = decodeExtra(extra); err != nil {
			return nil, err
		}
		if title.Valid {
			p.Title = title.String
		} else {
			p = Untitled(p)
		}
		pubs = append(pubs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating publications: %w", err)
	}
	return pubs, nil
}

// Replace truncates the table and inserts pubs in order, inside one
// transaction, so readers see either the old or the new corpus.
func (s *PostgresStore) Replace(ctx context.Context, pubs []Publication) error {
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `TRUNCATE publications RESTART IDENTITY`); err != nil {
			return fmt.Errorf("truncating publications: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO publications (title, year, authors, publication_url, extra) VALUES ($1, $2, $3, $4, $5)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for i, p := range pubs {
			extra, err := encodeExtra(p.Extra)
			if err != nil {
				return fmt.Errorf("publication %d: %w", i, err)
			}
			authors := p.Authors
			if authors == nil {
				authors = []string{}
			}
			if _, err := stmt.ExecContext(ctx, nullableTitle(p), p.Year, pq.Array(authors), p.PublicationURL, extra); err != nil {
				return fmt.Errorf("inserting publication %d: %w", i, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.client.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM publications`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting publications: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	return s.client.Close()
}

