package services

import (
	"context"
	"strings"

	"github.com/streed/semantic-notes/internal/config"
	"github.com/streed/semantic-notes/internal/embeddings"
	interrors "github.com/streed/semantic-notes/internal/errors"
	"github.com/streed/semantic-notes/internal/logger"
	"github.com/streed/semantic-notes/internal/models"
	"github.com/streed/semantic-notes/internal/search"
)

// Services contains all the service dependencies shared by the HTTP API,
// the MCP server and the CLI.
type Services struct {
	Config *config.Config
	Notes  *NotesService
	Search *SearchService
	Embed  *EmbedService
}

// NewServices wires the note, search and embed services around one
// repository and one embedding provider.
func NewServices(
	cfg *config.Config,
	noteRepo *models.NoteRepository,
	provider embeddings.EmbeddingProvider,
	engine *search.Engine,
) *Services {
	return &Services{
		Config: cfg,
		Notes:  NewNotesService(noteRepo, provider),
		Search: NewSearchService(engine, cfg),
		Embed:  NewEmbedService(provider),
	}
}

// NotesService pairs every content write with a fresh embedding.
type NotesService struct {
	repo     *models.NoteRepository
	provider embeddings.EmbeddingProvider
}

// NewNotesService creates a NotesService
func NewNotesService(repo *models.NoteRepository, provider embeddings.EmbeddingProvider) *NotesService {
	return &NotesService{repo: repo, provider: provider}
}

// validateNote checks the fields every content write needs, before any
// remote call.
func validateNote(ownerID, content string) error {
	if strings.TrimSpace(content) == "" {
		return interrors.ErrEmptyContent
	}
	if strings.TrimSpace(ownerID) == "" {
		return interrors.ErrMissingOwner
	}
	return nil
}

// Create validates the input, embeds the content and stores the note.
func (s *NotesService) Create(ctx context.Context, ownerID, content string) (*models.Note, error) {
	if err := validateNote(ownerID, content); err != nil {
		return nil, err
	}

	embedding, err := s.provider.Embed(ctx, content)
	if err != nil {
		return nil, err
	}

	note, err := s.repo.Create(ctx, ownerID, content, embedding)
	if err != nil {
		return nil, err
	}
	logger.Debug("Created note %d for owner %s", note.ID, ownerID)
	return note, nil
}

// List returns the owner's notes, most recently updated first.
func (s *NotesService) List(ctx context.Context, ownerID string) ([]*models.Note, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, interrors.ErrMissingOwner
	}
	return s.repo.ListByOwner(ctx, ownerID)
}

// Get returns one of the owner's notes or ErrNoteNotFound.
func (s *NotesService) Get(ctx context.Context, id int64, ownerID string) (*models.Note, error) {
	if id <= 0 {
		return nil, interrors.ErrInvalidNoteID
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, interrors.ErrMissingOwner
	}
	return s.repo.GetByID(ctx, id, ownerID)
}

// Update embeds the new content before touching the store, so a failed
// embedding leaves the note unchanged.
func (s *NotesService) Update(ctx context.Context, id int64, ownerID, content string) (*models.Note, error) {
	if id <= 0 {
		return nil, interrors.ErrInvalidNoteID
	}
	if err := validateNote(ownerID, content); err != nil {
		return nil, err
	}

	embedding, err := s.provider.Embed(ctx, content)
	if err != nil {
		return nil, err
	}

	note, err := s.repo.Update(ctx, id, ownerID, content, embedding)
	if err != nil {
		return nil, err
	}
	logger.Debug("Updated note %d for owner %s", id, ownerID)
	return note, nil
}

// Delete reports whether a note was removed. Deleting a note the owner does
// not hold is not an error.
func (s *NotesService) Delete(ctx context.Context, id int64, ownerID string) (bool, error) {
	if id <= 0 {
		return false, interrors.ErrInvalidNoteID
	}
	if strings.TrimSpace(ownerID) == "" {
		return false, interrors.ErrMissingOwner
	}

	deleted, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		return false, err
	}
	if !deleted {
		logger.Debug("Delete of note %d for owner %s matched nothing", id, ownerID)
	}
	return deleted, nil
}

func (s *NotesService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// SearchService applies configured defaults and delegates to the engine.
type SearchService struct {
	engine   *search.Engine
	defaults search.Params
}

// NewSearchService creates a search service. Zero values in cfg keep the
// built-in defaults.
func NewSearchService(engine *search.Engine, cfg *config.Config) *SearchService {
	defaults := search.DefaultParams()
	if cfg != nil {
		if cfg.DefaultMatchThreshold != 0 {
			defaults.Threshold = cfg.DefaultMatchThreshold
		}
		if cfg.DefaultMatchCount != 0 {
			defaults.Count = cfg.DefaultMatchCount
		}
	}
	return &SearchService{engine: engine, defaults: defaults}
}

// Search applies the configured defaults for a missing threshold or count.
func (s *SearchService) Search(ctx context.Context, ownerID, query string, threshold *float64, count *int) ([]models.SearchResult, error) {
	params := s.defaults
	if threshold != nil {
		params.Threshold = *threshold
	}
	if count != nil {
		params.Count = *count
	}

	results, err := s.engine.Search(ctx, ownerID, query, params)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *SearchService) StrategyName() string {
	return s.engine.StrategyName()
}

// Defaults returns the threshold and count used when a request omits them.
func (s *SearchService) Defaults() search.Params {
	return s.defaults
}

// EmbedService exposes the embedding provider directly.
type EmbedService struct {
	provider embeddings.EmbeddingProvider
}

func NewEmbedService(provider embeddings.EmbeddingProvider) *EmbedService {
	return &EmbedService{provider: provider}
}

// Embed returns the raw embedding of text.
func (s *EmbedService) Embed(ctx context.Context, text string) ([]float32, error) {
	embedding, err := s.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	logger.Debug("Embedded %d characters into %d dimensions", len(text), len(embedding))
	return embedding, nil
}
