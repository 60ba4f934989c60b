package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const mappingColumns = `id, letter, hebrew_word, hebrew_word_with_nikud, english_translation, german_translation, file_paths`

// MappingExists reports whether a row with the given english_translation is already stored.
func MappingExists(ctx context.Context, db DBExecutor, englishTranslation string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media_mapping WHERE english_translation = ?`,
		englishTranslation,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertMapping inserts m and returns the new row id.
func InsertMapping(ctx context.Context, db DBExecutor, m MediaMapping) (int64, error) {
	if strings.TrimSpace(m.EnglishTranslation) == "" {
		return 0, fmt.Errorf("english translation must be non-empty")
	}
	paths, err := encodePaths(m.FilePaths)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO media_mapping (
			letter, hebrew_word, hebrew_word_with_nikud,
			english_translation, german_translation, file_paths
		) VALUES (?, ?, ?, ?, ?, ?)`,
		m.Letter, m.HebrewWord, m.HebrewWordWithNikud,
		m.EnglishTranslation, m.GermanTranslation, paths,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetMapping returns the first stored row for englishTranslation, or sql.ErrNoRows.
func GetMapping(ctx context.Context, db DBExecutor, englishTranslation string) (MediaMapping, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+mappingColumns+` FROM media_mapping WHERE english_translation = ? ORDER BY id LIMIT 1`,
		englishTranslation,
	)
	return scanMapping(row)
}

// ListMappings returns every stored row in insertion order.
func ListMappings(ctx context.Context, db DBExecutor) ([]MediaMapping, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+mappingColumns+` FROM media_mapping ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MediaMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountMappings returns the number of stored rows.
func CountMappings(ctx context.Context, db DBExecutor) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_mapping`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMapping(s scanner) (MediaMapping, error) {
	var m MediaMapping
	var letter, word, nikud, german, paths sql.NullString
	if err := s.Scan(&m.ID, &letter, &word, &nikud, &m.EnglishTranslation, &german, &paths); err != nil {
		return MediaMapping{}, err
	}
	m.Letter = letter.String
	m.HebrewWord = word.String
	m.HebrewWordWithNikud = nikud.String
	m.GermanTranslation = german.String
	fp, err := DecodePaths(paths.String)
	if err != nil {
		return MediaMapping{}, fmt.Errorf("decode file_paths for id %d: %w", m.ID, err)
	}
	m.FilePaths = fp
	return m, nil
}

func encodePaths(paths []string) (string, error) {
	if paths == nil {
		paths = []string{}
	}
	b, err := json.Marshal(paths)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodePaths parses a file_paths column value. An empty value decodes to an empty list.
func DecodePaths(raw string) ([]string, error) {
	out := []string{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Store is the SQLite-backed persistence gateway used by the ingest pipeline.
// Insert opens a transaction lazily; nothing is durable until Commit.
// A Store is not safe for concurrent use.
type Store struct {
	conn *sql.DB
	tx   *sql.Tx
}

// NewStore wraps an initialized connection (see InitDB).
func NewStore(conn *sql.DB) *Store {
	return &Store{conn: conn}
}

func (s *Store) executor() DBExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.conn
}

// Exists checks the dedup key. It sees uncommitted rows of the open transaction.
func (s *Store) Exists(ctx context.Context, englishTranslation string) (bool, error) {
	ok, err := MappingExists(ctx, s.executor(), englishTranslation)
	if err != nil {
		return false, &StorageError{Op: "exists", Err: err}
	}
	return ok, nil
}

// Insert writes m inside the current transaction, beginning one if needed.
func (s *Store) Insert(ctx context.Context, m MediaMapping) error {
	if s.tx == nil {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return &StorageError{Op: "begin", Err: err}
		}
		s.tx = tx
	}
	if _, err := InsertMapping(ctx, s.tx, m); err != nil {
		return &StorageError{Op: "insert", Err: err}
	}
	return nil
}

// Commit makes pending inserts durable. It is a no-op without an open transaction.
func (s *Store) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "commit", Err: err}
	}
	return nil
}

// Rollback discards pending inserts. It is a no-op without an open transaction.
func (s *Store) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return &StorageError{Op: "rollback", Err: err}
	}
	return nil
}

// Close rolls back anything not yet committed. The underlying *sql.DB is left open.
func (s *Store) Close() error {
	return s.Rollback(context.Background())
}
