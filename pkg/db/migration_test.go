package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// TestInitDBCreatesMediaMapping verifies InitDB creates media_mapping with the
// expected columns, and that running it twice is harmless.
func TestInitDBCreatesMediaMapping(t *testing.T) {
	dbConn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()
	dbConn.SetMaxOpenConns(1)

	for i := 0; i < 2; i++ {
		if err := InitDB(dbConn); err != nil {
			t.Fatalf("InitDB run %d failed: %v", i+1, err)
		}
	}

	rows, err := dbConn.Query("PRAGMA table_info(media_mapping)")
	if err != nil {
		t.Fatalf("pragmas: %v", err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var colName, ctype string
		var notnull, pk int
		var dfltVal interface{}
		if err := rows.Scan(&cid, &colName, &ctype, &notnull, &dfltVal, &pk); err != nil {
			t.Fatalf("scan col: %v", err)
		}
		cols[colName] = true
	}
	for _, c := range []string{"id", "letter", "hebrew_word", "hebrew_word_with_nikud", "english_translation", "german_translation", "file_paths"} {
		if !cols[c] {
			t.Errorf("expected column %s in media_mapping, got %v", c, cols)
		}
	}

	// The dedup key is indexed but not unique.
	if _, err := dbConn.Exec(`INSERT INTO media_mapping (english_translation, file_paths) VALUES ('lion', '[]'), ('lion', '[]')`); err != nil {
		t.Fatalf("duplicate english_translation should be accepted by the table: %v", err)
	}
}
