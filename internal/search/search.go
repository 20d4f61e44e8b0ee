package search

import (
	"context"
	"fmt"

	"github.com/streed/semantic-notes/internal/constants"
	interrors "github.com/streed/semantic-notes/internal/errors"
	"github.com/streed/semantic-notes/internal/logger"
	"github.com/streed/semantic-notes/internal/models"
)

// Strategy ranks an owner's notes against an already computed query vector.
type Strategy interface {
	Name() string
	Rank(ctx context.Context, ownerID string, query []float32, params Params) ([]models.SearchResult, error)
}

// Params bound a search. Results score at least Threshold and number at
// most Count.
type Params struct {
	Threshold float64
	Count     int
}

// DefaultParams returns threshold 0.3 and count 10.
func DefaultParams() Params {
	return Params{
		Threshold: constants.DefaultMatchThreshold,
		Count:     constants.DefaultMatchCount,
	}
}

// Store is the subset of the note repository the strategies read from.
type Store interface {
	FetchCandidates(ctx context.Context, ownerID string) ([]*models.Note, error)
	MatchNotes(ctx context.Context, query []float32, threshold float64, count int) ([]models.SearchResult, error)
	OwnedIDs(ctx context.Context, ownerID string, ids []int64) (map[int64]bool, error)
}

// NewStrategy resolves a configured strategy name. "auto" picks the vec0
// index when it is available and falls back to the scan.
func NewStrategy(name string, store Store, dimensions int, vectorIndex bool) (Strategy, error) {
	switch name {
	case constants.StrategyScan:
		return NewScanStrategy(store, dimensions), nil
	case constants.StrategyVec0:
		if !vectorIndex {
			return nil, interrors.ErrVectorIndexUnavailable
		}
		return NewIndexStrategy(store), nil
	case constants.StrategyAuto, "":
		if vectorIndex {
			return NewIndexStrategy(store), nil
		}
		logger.Debug("Vector index unavailable, using scan strategy")
		return NewScanStrategy(store, dimensions), nil
	default:
		return nil, fmt.Errorf("%w: %q", interrors.ErrUnknownStrategy, name)
	}
}
