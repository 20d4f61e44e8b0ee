package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/streed/semantic-notes/internal/embeddings"
	interrors "github.com/streed/semantic-notes/internal/errors"
	"github.com/streed/semantic-notes/internal/logger"
)

// timeLayout is fixed width so that stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Note is a free-text note owned by a single user. Embedding is only
// populated on create and update responses; listings leave it empty.
type Note struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResult is a ranked note. It is derived per query and never stored.
type SearchResult struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NoteRepository persists notes. Every read and write of a single note
// matches id and owner in the same predicate.
type NoteRepository struct {
	db          *sql.DB
	vectorIndex bool
	dimensions  int
	now         func() time.Time
}

// NewNoteRepository creates a repository without vector index maintenance.
func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db, now: time.Now}
}

// WithVectorIndex keeps the vec_notes table in sync with note writes.
// Only vectors of the given dimension are indexed.
func (r *NoteRepository) WithVectorIndex(dimensions int) *NoteRepository {
	r.vectorIndex = true
	r.dimensions = dimensions
	return r
}

func (r *NoteRepository) timestamp() string {
	return r.now().UTC().Format(timeLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by other tools may use RFC 3339.
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

// Create stores a note with its embedding and returns it with the
// embedding attached.
func (r *NoteRepository) Create(ctx context.Context, ownerID, content string, embedding []float32) (*Note, error) {
	now := r.timestamp()

	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO notes (user_id, content, embedding, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			ownerID, content, embeddings.EmbeddingToBytes(embedding), now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to create note: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get insert id: %w", err)
		}
		return r.indexVector(ctx, tx, id, embedding)
	})
	if err != nil {
		return nil, err
	}

	note, err := r.get(ctx, id, ownerID, true)
	if err != nil {
		return nil, err
	}
	return note, nil
}

// GetByID returns the owner's note without its embedding, or
// ErrNoteNotFound.
func (r *NoteRepository) GetByID(ctx context.Context, id int64, ownerID string) (*Note, error) {
	return r.get(ctx, id, ownerID, false)
}

func (r *NoteRepository) get(ctx context.Context, id int64, ownerID string, withEmbedding bool) (*Note, error) {
	var note Note
	var blob []byte
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, content, embedding, created_at, updated_at FROM notes WHERE id = ? AND user_id = ?",
		id, ownerID,
	).Scan(&note.ID, &note.UserID, &note.Content, &blob, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interrors.ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get note: %v", interrors.ErrDatabaseQuery, err)
	}
	if err := note.setTimestamps(createdAt, updatedAt); err != nil {
		return nil, err
	}
	if withEmbedding {
		note.Embedding = decodeEmbedding(note.ID, blob)
	}
	return &note, nil
}

// ListByOwner returns the owner's notes, most recently updated first,
// without embeddings.
func (r *NoteRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Note, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, content, created_at, updated_at FROM notes WHERE user_id = ? ORDER BY updated_at DESC, id DESC",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list notes: %v", interrors.ErrDatabaseQuery, err)
	}
	defer rows.Close()

	notes := []*Note{}
	for rows.Next() {
		var note Note
		var createdAt, updatedAt string
		if err := rows.Scan(&note.ID, &note.UserID, &note.Content, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		if err := note.setTimestamps(createdAt, updatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, &note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return notes, nil
}

// Update replaces content and embedding of a note the owner holds. The id
// and owner are matched in one statement; no match returns ErrNoteNotFound.
func (r *NoteRepository) Update(ctx context.Context, id int64, ownerID, content string, embedding []float32) (*Note, error) {
	now := r.timestamp()

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"UPDATE notes SET content = ?, embedding = ?, updated_at = MAX(updated_at, ?) WHERE id = ? AND user_id = ?",
			content, embeddings.EmbeddingToBytes(embedding), now, id, ownerID,
		)
		if err != nil {
			return fmt.Errorf("failed to update note: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return interrors.ErrNoteNotFound
		}
		return r.indexVector(ctx, tx, id, embedding)
	})
	if err != nil {
		return nil, err
	}

	return r.get(ctx, id, ownerID, true)
}

// Delete removes the note if the owner holds it and reports whether a row
// was removed.
func (r *NoteRepository) Delete(ctx context.Context, id int64, ownerID string) (bool, error) {
	var deleted bool
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE id = ? AND user_id = ?", id, ownerID)
		if err != nil {
			return fmt.Errorf("failed to delete note: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		deleted = rowsAffected > 0
		if deleted && r.vectorIndex {
			if _, err := tx.ExecContext(ctx, "DELETE FROM vec_notes WHERE note_id = ?", id); err != nil {
				return fmt.Errorf("failed to delete note vector: %w", err)
			}
		}
		return nil
	})
	return deleted, err
}

// FetchCandidates returns the owner's notes with embeddings in id order.
// Blobs that do not decode leave Embedding nil.
func (r *NoteRepository) FetchCandidates(ctx context.Context, ownerID string) ([]*Note, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, content, embedding, created_at, updated_at FROM notes WHERE user_id = ? ORDER BY id ASC",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch candidates: %v", interrors.ErrDatabaseQuery, err)
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		var note Note
		var blob []byte
		var createdAt, updatedAt string
		if err := rows.Scan(&note.ID, &note.UserID, &note.Content, &blob, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		if err := note.setTimestamps(createdAt, updatedAt); err != nil {
			return nil, err
		}
		note.Embedding = decodeEmbedding(note.ID, blob)
		notes = append(notes, &note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return notes, nil
}

// MatchNotes ranks every indexed note against query by cosine similarity.
// It is not owner scoped: callers must filter the result by ownership.
func (r *NoteRepository) MatchNotes(ctx context.Context, query []float32, threshold float64, count int) ([]SearchResult, error) {
	if !r.vectorIndex {
		return nil, interrors.ErrVectorIndexUnavailable
	}

	serialized, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query embedding: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT n.id, n.content, n.created_at, n.updated_at, m.similarity
		FROM (
			SELECT note_id, 1 - vec_distance_cosine(embedding, ?) AS similarity
			FROM vec_notes
		) m
		JOIN notes n ON n.id = m.note_id
		WHERE m.similarity >= ?
		ORDER BY m.similarity DESC, n.id ASC
		LIMIT ?
	`, serialized, threshold, count)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to match notes: %v", interrors.ErrDatabaseQuery, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var res SearchResult
		var createdAt, updatedAt string
		if err := rows.Scan(&res.ID, &res.Content, &createdAt, &updatedAt, &res.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		if res.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at for note %d: %w", res.ID, err)
		}
		if res.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
			return nil, fmt.Errorf("invalid updated_at for note %d: %w", res.ID, err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

// OwnedIDs returns which of ids belong to ownerID.
func (r *NoteRepository) OwnedIDs(ctx context.Context, ownerID string, ids []int64) (map[int64]bool, error) {
	owned := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return owned, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, ownerID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM notes WHERE user_id = ? AND id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to check ownership: %v", interrors.ErrDatabaseQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan note id: %w", err)
		}
		owned[id] = true
	}
	return owned, rows.Err()
}

// Count returns the number of notes across all owners.
func (r *NoteRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notes").Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: failed to count notes: %v", interrors.ErrDatabaseQuery, err)
	}
	return count, nil
}

// inTx runs fn in a transaction and rolls back on any error.
func (r *NoteRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			logger.Error("Failed to rollback transaction: %v", rollbackErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// indexVector replaces the vec_notes row for id. vec0 has no upsert, so the
// old row is deleted first. Vectors that cannot be ranked are left out.
func (r *NoteRepository) indexVector(ctx context.Context, tx *sql.Tx, id int64, embedding []float32) error {
	if !r.vectorIndex {
		return nil
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM vec_notes WHERE note_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear note vector: %w", err)
	}
	if !embeddings.IsValid(embedding, r.dimensions) {
		logger.Warn("Note %d has an invalid embedding, not indexing", id)
		return nil
	}

	serialized, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return fmt.Errorf("failed to serialize embedding: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO vec_notes (note_id, embedding) VALUES (?, ?)", id, serialized,
	); err != nil {
		return fmt.Errorf("failed to index note vector: %w", err)
	}
	return nil
}

func (n *Note) setTimestamps(createdAt, updatedAt string) error {
	var err error
	if n.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return fmt.Errorf("invalid created_at for note %d: %w", n.ID, err)
	}
	if n.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return fmt.Errorf("invalid updated_at for note %d: %w", n.ID, err)
	}
	return nil
}

func decodeEmbedding(id int64, blob []byte) []float32 {
	if len(blob) == 0 {
		return nil
	}
	embedding, err := embeddings.BytesToEmbedding(blob)
	if err != nil {
		logger.Debug("Note %d has a malformed embedding: %v", id, err)
		return nil
	}
	return embedding
}
