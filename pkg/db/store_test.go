package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	db.SetMaxOpenConns(1)
	if err := InitDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func lion() MediaMapping {
	return MediaMapping{
		Letter:              "א",
		HebrewWord:          "אריה",
		HebrewWordWithNikud: "אַרְיֵה",
		EnglishTranslation:  "lion",
		GermanTranslation:   "Löwe",
		FilePaths:           []string{"media/lion_1.jpg", "media/lion_2.jpg"},
	}
}

func TestInsertAndGetMapping(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()

	id, err := InsertMapping(ctx, conn, lion())
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := GetMapping(ctx, conn, "lion")
	require.NoError(t, err)
	want := lion()
	want.ID = id
	assert.Equal(t, want, got)

	var raw string
	require.NoError(t, conn.QueryRow(`SELECT file_paths FROM media_mapping WHERE id = ?`, id).Scan(&raw))
	assert.Equal(t, `["media/lion_1.jpg","media/lion_2.jpg"]`, raw)
}

func TestInsertMappingEmptyPathsStoredAsEmptyArray(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()

	m := lion()
	m.FilePaths = nil
	id, err := InsertMapping(ctx, conn, m)
	require.NoError(t, err)

	var raw string
	require.NoError(t, conn.QueryRow(`SELECT file_paths FROM media_mapping WHERE id = ?`, id).Scan(&raw))
	assert.Equal(t, "[]", raw)

	got, err := GetMapping(ctx, conn, "lion")
	require.NoError(t, err)
	assert.Empty(t, got.FilePaths)
}

func TestInsertMappingRejectsEmptyKey(t *testing.T) {
	conn := setupTestDB(t)
	m := lion()
	m.EnglishTranslation = "  "
	_, err := InsertMapping(context.Background(), conn, m)
	require.Error(t, err)
}

func TestMappingExists(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()

	ok, err := MappingExists(ctx, conn, "lion")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = InsertMapping(ctx, conn, lion())
	require.NoError(t, err)

	ok, err = MappingExists(ctx, conn, "lion")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = MappingExists(ctx, conn, "Lion")
	require.NoError(t, err)
	assert.False(t, ok, "dedup key is compared verbatim")
}

func TestGetMappingNotFound(t *testing.T) {
	conn := setupTestDB(t)
	_, err := GetMapping(context.Background(), conn, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestStoreCommit(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	s := NewStore(conn)

	require.NoError(t, s.Insert(ctx, lion()))
	// The open transaction sees its own insert.
	ok, err := s.Exists(ctx, "lion")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Commit(ctx))
	n, err := CountMappings(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Commit without pending work is a no-op.
	require.NoError(t, s.Commit(ctx))
}

func TestStoreRollbackDiscardsInsert(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	s := NewStore(conn)

	require.NoError(t, s.Insert(ctx, lion()))
	require.NoError(t, s.Rollback(ctx))

	n, err := CountMappings(ctx, conn)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStoreCloseRollsBackPending(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	s := NewStore(conn)

	require.NoError(t, s.Insert(ctx, lion()))
	require.NoError(t, s.Close())

	n, err := CountMappings(ctx, conn)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStoreErrorsAreStorageErrors(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	s := NewStore(conn)
	require.NoError(t, conn.Close())

	_, err := s.Exists(ctx, "lion")
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "exists", se.Op)

	err = s.Insert(ctx, lion())
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "begin", se.Op)
}

func TestListMappingsKeepsInsertionOrder(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	for _, w := range []string{"lion", "dog", "cat"} {
		m := lion()
		m.EnglishTranslation = w
		_, err := InsertMapping(ctx, conn, m)
		require.NoError(t, err)
	}
	all, err := ListMappings(ctx, conn)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "lion", all[0].EnglishTranslation)
	assert.Equal(t, "dog", all[1].EnglishTranslation)
	assert.Equal(t, "cat", all[2].EnglishTranslation)
}

func TestDecodePaths(t *testing.T) {
	got, err := DecodePaths("")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = DecodePaths(`["a.jpg"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, got)

	_, err = DecodePaths(`not json`)
	assert.Error(t, err)
}
