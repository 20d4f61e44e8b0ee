package errors

import "errors"

// Common errors used throughout the application
var (
	// Database errors
	ErrNoteNotFound  = errors.New("note not found")
	ErrDatabaseQuery = errors.New("database query failed")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrEmptyContent    = errors.New("content cannot be empty")
	ErrMissingOwner    = errors.New("user_id is required")
	ErrInvalidNoteID   = errors.New("invalid note ID")
	ErrUnknownStrategy = errors.New("unknown search strategy")

	// Embedding errors
	ErrEmbeddingFailed        = errors.New("embedding generation failed")
	ErrInvalidEmbedding       = errors.New("invalid embedding format")
	ErrInvalidEmbeddingLength = errors.New("invalid embedding data length")

	// Search errors
	ErrVectorIndexUnavailable = errors.New("vector index not available")
)

// IsClientError reports whether err stems from caller input rather than an
// upstream or internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyText) ||
		errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrMissingOwner) ||
		errors.Is(err, ErrInvalidNoteID)
}
