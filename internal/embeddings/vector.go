package embeddings

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/streed/semantic-notes/internal/constants"
	interrors "github.com/streed/semantic-notes/internal/errors"
)

func EmbeddingToBytes(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*constants.BytesPerFloat32)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*constants.BytesPerFloat32:], math.Float32bits(v))
	}
	return buf
}

func BytesToEmbedding(data []byte) ([]float32, error) {
	if len(data)%constants.BytesPerFloat32 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", interrors.ErrInvalidEmbeddingLength, len(data))
	}

	embedding := make([]float32, len(data)/constants.BytesPerFloat32)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*constants.BytesPerFloat32:]))
	}
	return embedding, nil
}

// CosineSimilarity returns dot(a, b) / (|a| * |b|). It is exactly 0 when the
// lengths differ or either vector has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// IsValid reports whether embedding has the expected dimension and only
// finite components.
func IsValid(embedding []float32, dimensions int) bool {
	if len(embedding) != dimensions || dimensions == 0 {
		return false
	}
	for _, v := range embedding {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}
