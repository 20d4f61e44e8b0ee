package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/streed/semantic-notes/internal/config"
	interrors "github.com/streed/semantic-notes/internal/errors"
	"github.com/streed/semantic-notes/internal/logger"
)

// EmbeddingProvider turns text into a fixed-length vector.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// HuggingFaceEmbedding calls the Hugging Face inference feature-extraction
// pipeline. It holds no per-request state and never caches results.
type HuggingFaceEmbedding struct {
	url        string
	token      string
	dimensions int
	maxRetries uint64
	backoff    time.Duration
	httpClient *http.Client
}

type featureExtractionRequest struct {
	Inputs  string                   `json:"inputs"`
	Options featureExtractionOptions `json:"options"`
}

type featureExtractionOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

func NewHuggingFaceEmbedding(cfg *config.Config) *HuggingFaceEmbedding {
	return &HuggingFaceEmbedding{
		url:        cfg.GetEmbeddingURL(),
		token:      cfg.EmbeddingToken,
		dimensions: cfg.VectorDimensions,
		maxRetries: uint64(cfg.EmbeddingMaxRetries),
		backoff:    500 * time.Millisecond,
		httpClient: &http.Client{
			Timeout: cfg.GetEmbeddingTimeout(),
		},
	}
}

func (e *HuggingFaceEmbedding) Dimensions() int {
	return e.dimensions
}

func (e *HuggingFaceEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, interrors.ErrEmptyText
	}

	payload, err := json.Marshal(featureExtractionRequest{
		Inputs:  text,
		Options: featureExtractionOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", interrors.ErrEmbeddingFailed, err)
	}

	var body []byte
	attempt := func(ctx context.Context) error {
		body, err = e.post(ctx, payload)
		return err
	}

	start := time.Now()
	if e.maxRetries > 0 {
		b := retry.WithMaxRetries(e.maxRetries, retry.NewFibonacci(e.backoff))
		err = retry.Do(ctx, b, attempt)
	} else {
		err = attempt(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interrors.ErrEmbeddingFailed, err)
	}
	logger.Debug("Embedding provider responded in %v", time.Since(start))

	embedding, err := ParseEmbedding(body, e.dimensions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interrors.ErrEmbeddingFailed, err)
	}
	return embedding, nil
}

// post performs one provider round trip. Transient failures are marked
// retryable; anything else ends the retry loop.
func (e *HuggingFaceEmbedding) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		logger.Debug("Embedding request failed: %v", err)
		return nil, retry.RetryableError(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Debug("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		logger.Error("Embedding provider returned %d: %s", resp.StatusCode, preview(body))
		statusErr := fmt.Errorf("provider returned status %d", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, retry.RetryableError(statusErr)
		}
		return nil, statusErr
	}

	return body, nil
}

// ParseEmbedding validates a provider payload as a flat array of exactly
// dimensions numbers. A single-row nested array is unwrapped; every other
// shape is rejected.
func ParseEmbedding(body []byte, dimensions int) ([]float32, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		logger.Error("Invalid embedding format: %s", preview(body))
		return nil, fmt.Errorf("%w: not an array", interrors.ErrInvalidEmbedding)
	}

	if len(raw) == 1 && bytes.HasPrefix(bytes.TrimSpace(raw[0]), []byte("[")) {
		if err := json.Unmarshal(raw[0], &raw); err != nil {
			return nil, fmt.Errorf("%w: malformed nested array", interrors.ErrInvalidEmbedding)
		}
	}

	if len(raw) != dimensions {
		logger.Error("Invalid embedding format: got %d values, want %d", len(raw), dimensions)
		return nil, fmt.Errorf("%w: got %d values, want %d", interrors.ErrInvalidEmbedding, len(raw), dimensions)
	}

	embedding := make([]float32, dimensions)
	for i, v := range raw {
		// null decodes into a float64 without error.
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return nil, fmt.Errorf("%w: component %d is null", interrors.ErrInvalidEmbedding, i)
		}
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			return nil, fmt.Errorf("%w: component %d is not a number", interrors.ErrInvalidEmbedding, i)
		}
		c := float32(f)
		if math.IsInf(float64(c), 0) || math.IsNaN(float64(c)) {
			return nil, fmt.Errorf("%w: component %d is out of float32 range", interrors.ErrInvalidEmbedding, i)
		}
		embedding[i] = c
	}
	return embedding, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
