package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/streed/semantic-notes/internal/config"
	"github.com/streed/semantic-notes/internal/constants"
	"github.com/streed/semantic-notes/internal/logger"
	"github.com/streed/semantic-notes/internal/migrations"
)

// DB owns the process-wide connection pool. It is opened once at startup
// and closed at shutdown.
type DB struct {
	conn        *sql.DB
	cfg         *config.Config
	vectorIndex bool
}

// New opens the SQLite database at cfg.GetDatabasePath, creating its
// directory, runs pending migrations and prepares the vector index. A
// missing sqlite-vec extension only disables the index.
func New(cfg *config.Config) (*DB, error) {
	sqlite_vec.Auto()
	logger.Debug("Registered sqlite-vec extension")

	dbPath := cfg.GetDatabasePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	logger.Debug("Database path: %s", dbPath)

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", dbPath)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	if err := db.initialize(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

// initialize runs migrations and enables the vector index when possible
func (db *DB) initialize() error {
	if err := migrations.NewMigrationRunner(db.conn).RunMigrations(); err != nil {
		return err
	}

	var vecVersion string
	if err := db.conn.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		logger.Warn("sqlite-vec not available, vector index disabled: %v", err)
		return nil
	}
	logger.Debug("sqlite-vec version %s loaded", vecVersion)

	if err := db.ensureVectorIndex(); err != nil {
		// The scan strategy still works without the index.
		logger.Warn("Vector index creation failed: %v", err)
		return nil
	}
	db.vectorIndex = true
	return nil
}

// ensureVectorIndex creates the vec0 table on first use and indexes any
// stored embedding that has no vec_notes row yet.
func (db *DB) ensureVectorIndex() error {
	dimensions := db.dimensions()

	var exists int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE name = 'vec_notes'",
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check vec_notes table: %w", err)
	}
	if exists == 0 {
		_, err = db.conn.Exec(fmt.Sprintf(`
			CREATE VIRTUAL TABLE vec_notes USING vec0(
				note_id INTEGER PRIMARY KEY,
				embedding float[%d]
			)
		`, dimensions))
		if err != nil {
			return fmt.Errorf("failed to create vec_notes table: %w", err)
		}
		logger.Debug("Created vec_notes table with %d dimensions", dimensions)
	}

	result, err := db.conn.Exec(`
		INSERT INTO vec_notes (note_id, embedding)
		SELECT id, embedding FROM notes
		WHERE embedding IS NOT NULL AND length(embedding) = ?
		  AND id NOT IN (SELECT note_id FROM vec_notes)
	`, dimensions*constants.BytesPerFloat32)
	if err != nil {
		return fmt.Errorf("failed to backfill vec_notes: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		logger.Info("Indexed %d notes missing from vec_notes", n)
	}
	return nil
}

func (db *DB) dimensions() int {
	if db.cfg.VectorDimensions > 0 {
		return db.cfg.VectorDimensions
	}
	return constants.DefaultVectorDimensions
}

// VectorIndexAvailable reports whether sqlite-vec loaded and vec_notes exists.
func (db *DB) VectorIndexAvailable() bool {
	return db.vectorIndex
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying connection pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}
