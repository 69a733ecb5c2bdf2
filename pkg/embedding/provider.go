package embedding

import (
	"context"
	"fmt"
	"math"
)

// EmbeddingProvider turns text into a fixed-dimension vector.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// ProviderError wraps any failure from the embedding backend.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func checkDimension(provider string, values []float32, want int) error {
	if len(values) == 0 {
		return &ProviderError{Provider: provider, Err: fmt.Errorf("empty embedding")}
	}
	if want > 0 && len(values) != want {
		return &ProviderError{Provider: provider, Err: fmt.Errorf("dimension mismatch: got %d, want %d", len(values), want)}
	}
	return nil
}

// normalizeVector scales vec to unit length. Zero vectors come back unchanged.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
