// Package embeddingstest provides a deterministic in-process embedding
// provider for tests.
package embeddingstest

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	interrors "github.com/streed/semantic-notes/internal/errors"
)

// Fake returns fixed vectors for known texts and a bag-of-words hash vector
// for everything else. Same text always yields the same vector.
type Fake struct {
	Dim     int
	Vectors map[string][]float32
	Err     error

	mu    sync.Mutex
	calls int
}

func New(dim int) *Fake {
	return &Fake{Dim: dim, Vectors: map[string][]float32{}}
}

func (f *Fake) Dimensions() int {
	return f.Dim
}

func (f *Fake) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, interrors.ErrEmptyText
	}

	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.Err != nil {
		return nil, fmt.Errorf("%w: %w", interrors.ErrEmbeddingFailed, f.Err)
	}
	if v, ok := f.Vectors[text]; ok {
		out := make([]float32, len(v))
		copy(out, v)
		return out, nil
	}

	vec := make([]float32, f.Dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[int(h.Sum32())%f.Dim]++
	}
	return vec, nil
}

// Calls returns how many non-empty texts reached the provider.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Axis returns a dim-length unit vector along axis i.
func Axis(dim, i int) []float32 {
	v := make([]float32, dim)
	v[i] = 1
	return v
}

// Blend returns a dim-length vector with weight a on axis i and b on axis j.
func Blend(dim, i, j int, a, b float32) []float32 {
	v := make([]float32, dim)
	v[i] = a
	v[j] += b
	return v
}
