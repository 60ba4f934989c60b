// Package pgstore is the PostgreSQL variant of the media_mapping gateway.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/japaniel/wordmedia/pkg/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS media_mapping (
  id BIGSERIAL PRIMARY KEY,
  letter TEXT,
  hebrew_word TEXT,
  hebrew_word_with_nikud TEXT,
  english_translation TEXT,
  german_translation TEXT,
  file_paths JSONB NOT NULL DEFAULT '[]'::jsonb
);
CREATE INDEX IF NOT EXISTS idx_media_mapping_english_translation ON media_mapping (english_translation);
`

// IsDSN reports whether s looks like a PostgreSQL connection URL.
func IsDSN(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore mirrors db.Store over a pgx pool: Insert opens a transaction lazily and
// Commit makes it durable.
type PGStore struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

// New connects and creates media_mapping if it does not exist.
func New(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, &db.StorageError{Op: "connect", Err: err}
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, &db.StorageError{Op: "migrate", Err: err}
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.pool
}

func (s *PGStore) Exists(ctx context.Context, englishTranslation string) (bool, error) {
	var n int64
	err := s.q().QueryRow(ctx,
		`SELECT COUNT(*) FROM media_mapping WHERE english_translation = $1`, englishTranslation,
	).Scan(&n)
	if err != nil {
		return false, &db.StorageError{Op: "exists", Err: err}
	}
	return n > 0, nil
}

func (s *PGStore) Insert(ctx context.Context, m db.MediaMapping) error {
	paths := m.FilePaths
	if paths == nil {
		paths = []string{}
	}
	raw, err := json.Marshal(paths)
	if err != nil {
		return &db.StorageError{Op: "insert", Err: err}
	}
	if s.tx == nil {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return &db.StorageError{Op: "begin", Err: err}
		}
		s.tx = tx
	}
	_, err = s.tx.Exec(ctx, `
INSERT INTO media_mapping (letter, hebrew_word, hebrew_word_with_nikud, english_translation, german_translation, file_paths)
VALUES ($1,$2,$3,$4,$5,$6)`,
		m.Letter, m.HebrewWord, m.HebrewWordWithNikud, m.EnglishTranslation, m.GermanTranslation, string(raw))
	if err != nil {
		return &db.StorageError{Op: "insert", Err: err}
	}
	return nil
}

func (s *PGStore) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(ctx); err != nil {
		return &db.StorageError{Op: "commit", Err: err}
	}
	return nil
}

func (s *PGStore) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return &db.StorageError{Op: "rollback", Err: err}
	}
	return nil
}

// Count returns the number of stored rows.
func (s *PGStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.q().QueryRow(ctx, `SELECT COUNT(*) FROM media_mapping`).Scan(&n); err != nil {
		return 0, &db.StorageError{Op: "count", Err: err}
	}
	return int(n), nil
}

// Close rolls back pending work and releases the pool.
func (s *PGStore) Close() error {
	err := s.Rollback(context.Background())
	s.pool.Close()
	return err
}
