package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/streed/semantic-notes/internal/config"
)

func setupTestDB(t *testing.T) (*DB, string) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	cfg := &config.Config{
		DatabasePath:     dbPath,
		DataDirectory:    tempDir,
		VectorDimensions: 3,
	}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	return db, dbPath
}

func TestNew(t *testing.T) {
	db, dbPath := setupTestDB(t)
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	var version string
	if err := db.conn.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		t.Errorf("Failed to query SQLite version: %v", err)
	}
	if version == "" {
		t.Error("SQLite version should not be empty")
	}
}

func TestDatabaseInitialization(t *testing.T) {
	db, _ := setupTestDB(t)
	defer db.Close()

	for _, name := range []string{"notes", "schema_migrations"} {
		var exists int
		err := db.conn.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
		).Scan(&exists)
		if err != nil {
			t.Fatalf("Failed to check for %s table: %v", name, err)
		}
		if exists != 1 {
			t.Errorf("%s table should exist", name)
		}
	}

	var journalMode string
	if err := db.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to read journal mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected WAL journal mode, got %q", journalMode)
	}
}

func TestVectorIndexTable(t *testing.T) {
	db, _ := setupTestDB(t)
	defer db.Close()

	if !db.VectorIndexAvailable() {
		t.Skip("sqlite-vec not available")
	}

	var exists int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name='vec_notes'").Scan(&exists)
	if err != nil {
		t.Fatalf("Failed to check for vec_notes table: %v", err)
	}
	if exists != 1 {
		t.Error("vec_notes table should exist when sqlite-vec is loaded")
	}
}

func TestVectorIndexBackfillOnReopen(t *testing.T) {
	db, dbPath := setupTestDB(t)
	if !db.VectorIndexAvailable() {
		db.Close()
		t.Skip("sqlite-vec not available")
	}

	// A note written while the index table was missing.
	blob := []byte{0, 0, 128, 63, 0, 0, 0, 0, 0, 0, 0, 0}
	if _, err := db.conn.Exec("DROP TABLE vec_notes"); err != nil {
		t.Fatalf("Failed to drop vec_notes: %v", err)
	}
	_, err := db.conn.Exec(
		"INSERT INTO notes (user_id, content, embedding, created_at, updated_at) VALUES ('u1', 'x', ?, 'now', 'now')",
		blob,
	)
	if err != nil {
		t.Fatalf("Failed to insert note: %v", err)
	}
	db.Close()

	reopened, err := New(&config.Config{
		DatabasePath:     dbPath,
		DataDirectory:    filepath.Dir(dbPath),
		VectorDimensions: 3,
	})
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer reopened.Close()

	var indexed int
	if err := reopened.conn.QueryRow("SELECT COUNT(*) FROM vec_notes").Scan(&indexed); err != nil {
		t.Fatalf("Failed to count vec_notes: %v", err)
	}
	if indexed != 1 {
		t.Errorf("expected 1 backfilled vector, got %d", indexed)
	}
}

func TestVectorIndexResyncsMissingRowsOnReopen(t *testing.T) {
	db, dbPath := setupTestDB(t)
	if !db.VectorIndexAvailable() {
		db.Close()
		t.Skip("sqlite-vec not available")
	}

	// Two notes reach the notes table without a vec_notes row while the
	// index table itself already exists.
	blob := []byte{0, 0, 128, 63, 0, 0, 0, 0, 0, 0, 0, 0}
	for _, content := range []string{"a", "b"} {
		if _, err := db.conn.Exec(
			"INSERT INTO notes (user_id, content, embedding, created_at, updated_at) VALUES ('u1', ?, ?, 'now', 'now')",
			content, blob,
		); err != nil {
			t.Fatalf("Failed to insert note: %v", err)
		}
	}
	// A blob of the wrong length stays out of the index.
	if _, err := db.conn.Exec(
		"INSERT INTO notes (user_id, content, embedding, created_at, updated_at) VALUES ('u1', 'short', ?, 'now', 'now')",
		blob[:4],
	); err != nil {
		t.Fatalf("Failed to insert note: %v", err)
	}
	db.Close()

	for i := 0; i < 2; i++ {
		reopened, err := New(&config.Config{
			DatabasePath:     dbPath,
			DataDirectory:    filepath.Dir(dbPath),
			VectorDimensions: 3,
		})
		if err != nil {
			t.Fatalf("Failed to reopen database: %v", err)
		}

		var indexed int
		if err := reopened.conn.QueryRow("SELECT COUNT(*) FROM vec_notes").Scan(&indexed); err != nil {
			t.Fatalf("Failed to count vec_notes: %v", err)
		}
		reopened.Close()
		if indexed != 2 {
			t.Errorf("open %d: expected 2 indexed vectors, got %d", i+1, indexed)
		}
	}
}

func TestReopenIsIdempotent(t *testing.T) {
	db, dbPath := setupTestDB(t)
	db.Close()

	again, err := New(&config.Config{DatabasePath: dbPath, VectorDimensions: 3})
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer again.Close()

	var applied int
	if err := again.conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if applied != 2 {
		t.Errorf("expected 2 applied migrations, got %d", applied)
	}
}

func TestPingAndClose(t *testing.T) {
	db, _ := setupTestDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
	if db.Conn() == nil {
		t.Error("Conn() returned nil")
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := db.Ping(context.Background()); err == nil {
		t.Error("Ping() should fail after Close()")
	}
}

func TestDatabaseCreatesDirectories(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "nested", "dir", "notes.db")

	db, err := New(&config.Config{DatabasePath: dbPath, VectorDimensions: 3})
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("Database directory was not created")
	}
}
