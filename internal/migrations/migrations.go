package migrations

import (
	"database/sql"
	"fmt"
)

// getAllMigrations returns all available migrations. New migrations are
// appended with the next numeric prefix; applied IDs must never change.
func getAllMigrations() []Migration {
	return []Migration{
		{
			ID:          "000_create_notes",
			Description: "Create owner-scoped notes table with embedding blobs",
			Up:          migration000Up,
			Down:        migration000Down,
		},
		{
			ID:          "001_notes_owner_index",
			Description: "Index notes by owner and recency",
			Up:          migration001Up,
			Down:        migration001Down,
		},
	}
}

// migration000Up creates the notes table. Embeddings live in the same row
// as the content so both are written by one statement.
func migration000Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create notes table: %w", err)
	}
	return nil
}

func migration000Down(tx *sql.Tx) error {
	if _, err := tx.Exec("DROP TABLE IF EXISTS notes"); err != nil {
		return fmt.Errorf("failed to drop notes table: %w", err)
	}
	return nil
}

// migration001Up backs the owner listing, which orders by updated_at.
func migration001Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_notes_user_updated
		ON notes(user_id, updated_at DESC, id DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create notes owner index: %w", err)
	}
	return nil
}

func migration001Down(tx *sql.Tx) error {
	if _, err := tx.Exec("DROP INDEX IF EXISTS idx_notes_user_updated"); err != nil {
		return fmt.Errorf("failed to drop notes owner index: %w", err)
	}
	return nil
}
