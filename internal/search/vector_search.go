package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/streed/semantic-notes/internal/constants"
	"github.com/streed/semantic-notes/internal/embeddings"
	"github.com/streed/semantic-notes/internal/logger"
	"github.com/streed/semantic-notes/internal/models"
)

// ScanStrategy scores every candidate the owner holds in process.
type ScanStrategy struct {
	store      Store
	dimensions int
}

// NewScanStrategy creates a scan over store. Embeddings of any other
// dimension are treated as unusable.
func NewScanStrategy(store Store, dimensions int) *ScanStrategy {
	if dimensions <= 0 {
		dimensions = constants.DefaultVectorDimensions
	}
	return &ScanStrategy{store: store, dimensions: dimensions}
}

func (s *ScanStrategy) Name() string {
	return constants.StrategyScan
}

// Rank scores the owner's usable embeddings, keeps scores at or above the
// threshold, sorts them descending and truncates to Count.
func (s *ScanStrategy) Rank(ctx context.Context, ownerID string, query []float32, params Params) ([]models.SearchResult, error) {
	candidates, err := s.store.FetchCandidates(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}

	results := make([]models.SearchResult, 0, len(candidates))
	skipped := 0
	for _, note := range candidates {
		if !embeddings.IsValid(note.Embedding, s.dimensions) {
			skipped++
			continue
		}

		score := embeddings.CosineSimilarity(query, note.Embedding)
		if math.IsNaN(score) || math.IsInf(score, 0) || score < params.Threshold {
			continue
		}
		results = append(results, models.SearchResult{
			ID:         note.ID,
			Content:    note.Content,
			Similarity: score,
			CreatedAt:  note.CreatedAt,
			UpdatedAt:  note.UpdatedAt,
		})
	}
	if skipped > 0 {
		logger.Debug("Skipped %d notes with unusable embeddings for owner %s", skipped, ownerID)
	}

	// Stable so equal scores keep retrieval order across calls.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > params.Count {
		results = results[:params.Count]
	}
	return results, nil
}

// IndexStrategy ranks through the vec0 table. The ranking is global, so
// every hit is checked against the owner before it is returned.
type IndexStrategy struct {
	store Store
}

// NewIndexStrategy creates a strategy that ranks in SQLite through vec0.
func NewIndexStrategy(store Store) *IndexStrategy {
	return &IndexStrategy{store: store}
}

func (s *IndexStrategy) Name() string {
	return constants.StrategyVec0
}

// Rank takes the global ranking from MatchNotes and keeps only the ids
// the owner holds. Order and truncation come from the database.
func (s *IndexStrategy) Rank(ctx context.Context, ownerID string, query []float32, params Params) ([]models.SearchResult, error) {
	matches, err := s.store.MatchNotes(ctx, query, params.Threshold, params.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to match notes: %w", err)
	}
	if len(matches) == 0 {
		return []models.SearchResult{}, nil
	}

	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	owned, err := s.store.OwnedIDs(ctx, ownerID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to filter matches by owner: %w", err)
	}

	results := make([]models.SearchResult, 0, len(matches))
	for _, m := range matches {
		if !owned[m.ID] {
			continue
		}
		if math.IsNaN(m.Similarity) || math.IsInf(m.Similarity, 0) {
			continue
		}
		results = append(results, m)
	}
	return results, nil
}
