package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/streed/semantic-notes/internal/embeddings"
	interrors "github.com/streed/semantic-notes/internal/errors"
	"github.com/streed/semantic-notes/internal/logger"
	"github.com/streed/semantic-notes/internal/models"
)

// Engine embeds a query and hands the vector to a Strategy.
type Engine struct {
	provider embeddings.EmbeddingProvider
	strategy Strategy
}

// NewEngine creates an engine that embeds queries with provider and ranks
// them with strategy.
func NewEngine(provider embeddings.EmbeddingProvider, strategy Strategy) *Engine {
	return &Engine{provider: provider, strategy: strategy}
}

// StrategyName returns the name of the active ranking strategy.
func (e *Engine) StrategyName() string {
	return e.strategy.Name()
}

// Search validates the request before any remote call. A non-positive
// count returns no results without embedding the query.
func (e *Engine) Search(ctx context.Context, ownerID, query string, params Params) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", interrors.ErrInvalidInput)
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, interrors.ErrMissingOwner
	}
	if params.Count <= 0 {
		return []models.SearchResult{}, nil
	}

	queryEmbedding, err := e.provider.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := e.strategy.Rank(ctx, ownerID, queryEmbedding, params)
	if err != nil {
		return nil, err
	}
	logger.Debug("Search via %s for owner %s returned %d results", e.strategy.Name(), ownerID, len(results))
	return results, nil
}
