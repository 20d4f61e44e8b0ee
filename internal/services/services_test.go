package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streed/semantic-notes/internal/config"
	"github.com/streed/semantic-notes/internal/database"
	"github.com/streed/semantic-notes/internal/embeddings/embeddingstest"
	interrors "github.com/streed/semantic-notes/internal/errors"
	"github.com/streed/semantic-notes/internal/models"
	"github.com/streed/semantic-notes/internal/search"
)

const dim = 8

func setupServices(t *testing.T) (*Services, *embeddingstest.Fake) {
	t.Helper()
	tempDir := t.TempDir()
	cfg := config.Default()
	cfg.DataDirectory = tempDir
	cfg.DatabasePath = filepath.Join(tempDir, "test.db")
	cfg.VectorDimensions = dim

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := models.NewNoteRepository(db.Conn())
	provider := embeddingstest.New(dim)
	engine := search.NewEngine(provider, search.NewScanStrategy(repo, dim))
	return NewServices(cfg, repo, provider, engine), provider
}

func TestCreateValidatesBeforeEmbedding(t *testing.T) {
	svc, provider := setupServices(t)
	ctx := context.Background()

	_, err := svc.Notes.Create(ctx, "u1", "  ")
	assert.ErrorIs(t, err, interrors.ErrEmptyContent)
	_, err = svc.Notes.Create(ctx, "", "content")
	assert.ErrorIs(t, err, interrors.ErrMissingOwner)
	assert.Zero(t, provider.Calls())
}

func TestUpdateEmbeddingFailureLeavesNoteUnchanged(t *testing.T) {
	svc, provider := setupServices(t)
	ctx := context.Background()

	note, err := svc.Notes.Create(ctx, "u1", "original")
	require.NoError(t, err)

	provider.Err = errors.New("provider down")
	_, err = svc.Notes.Update(ctx, note.ID, "u1", "changed")
	assert.ErrorIs(t, err, interrors.ErrEmbeddingFailed)

	got, err := svc.Notes.Get(ctx, note.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "original", got.Content)
	assert.Equal(t, note.UpdatedAt, got.UpdatedAt)
}

func TestUpdateRecomputesEmbedding(t *testing.T) {
	svc, provider := setupServices(t)
	ctx := context.Background()
	provider.Vectors["before"] = embeddingstest.Axis(dim, 0)
	provider.Vectors["after"] = embeddingstest.Axis(dim, 1)

	note, err := svc.Notes.Create(ctx, "u1", "before")
	require.NoError(t, err)
	updated, err := svc.Notes.Update(ctx, note.ID, "u1", "after")
	require.NoError(t, err)
	assert.Equal(t, embeddingstest.Axis(dim, 1), updated.Embedding)

	results, err := svc.Search.Search(ctx, "u1", "before", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results, "stale vector must not match")
}

func TestDeleteValidation(t *testing.T) {
	svc, _ := setupServices(t)
	ctx := context.Background()

	_, err := svc.Notes.Delete(ctx, 0, "u1")
	assert.ErrorIs(t, err, interrors.ErrInvalidNoteID)
	_, err = svc.Notes.Delete(ctx, 1, " ")
	assert.ErrorIs(t, err, interrors.ErrMissingOwner)

	deleted, err := svc.Notes.Delete(ctx, 42, "u1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSearchDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultMatchThreshold = 0.5
	cfg.DefaultMatchCount = 3

	s := NewSearchService(nil, cfg)
	assert.Equal(t, search.Params{Threshold: 0.5, Count: 3}, s.Defaults())

	s = NewSearchService(nil, &config.Config{})
	assert.Equal(t, search.DefaultParams(), s.Defaults())
}

func TestSearchOverrides(t *testing.T) {
	svc, provider := setupServices(t)
	ctx := context.Background()
	provider.Vectors["a"] = embeddingstest.Blend(dim, 0, 1, 1, 1)
	provider.Vectors["q"] = embeddingstest.Axis(dim, 0)

	_, err := svc.Notes.Create(ctx, "u1", "a")
	require.NoError(t, err)

	strict := 0.9
	results, err := svc.Search.Search(ctx, "u1", "q", &strict, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = svc.Search.Search(ctx, "u1", "q", nil, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	zero := 0
	results, err = svc.Search.Search(ctx, "u1", "q", nil, &zero)
	require.NoError(t, err)
	assert.Empty(t, results)
}
