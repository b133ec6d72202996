// Package embedding is the process-wide text-to-vector singleton (C1):
// embed(text) -> vector[D], with lazy idempotent initialization, mean
// pooling over per-token tensors, and truncate/pad/NaN-coercion to the
// configured dimension D.
package embedding

import (
	"context"
	"math"

	"github.com/loglattice/orchestrator/types"
)

// Provider is the unified embedding interface. Every concrete provider
// (HTTP-backed or local) must return vectors of exactly Dimensions()
// length; normalize handles that guarantee in one place so individual
// providers only produce raw model output.
type Provider interface {
	// Embed returns the embedding vector for a single piece of text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds multiple texts in one round trip where the
	// underlying API supports it.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Name returns the provider's identifier, used in logs and metrics.
	Name() string
	// Dimensions returns D, the fixed output vector length.
	Dimensions() int
}

// ErrEmbeddingUnavailable is returned when provider initialization or a
// request fails; callers must treat embedding generation as optional (I5):
// node creation proceeds without an embedding rather than failing the call.
func ErrEmbeddingUnavailable(cause error) *types.Error {
	return types.NewError(types.ErrServiceUnavailable, "embedding provider unavailable").
		WithCause(cause).WithRetryable(true)
}

// meanPool averages a [T, D'] token tensor across the token axis, yielding
// one [D'] vector, per the spec's "[1, T, D] -> mean-pool" rule.
func meanPool(tensor [][]float64) []float64 {
	if len(tensor) == 0 {
		return nil
	}
	if len(tensor) == 1 {
		return tensor[0]
	}
	width := len(tensor[0])
	out := make([]float64, width)
	for _, row := range tensor {
		for i := 0; i < width && i < len(row); i++ {
			out[i] += row[i]
		}
	}
	for i := range out {
		out[i] /= float64(len(tensor))
	}
	return out
}

// normalize truncates or zero-pads raw to exactly d entries and coerces
// NaN values to 0.0, guaranteeing every Provider.Embed result satisfies I3.
func normalize(raw []float64, d int) []float32 {
	out := make([]float32, d)
	for i := 0; i < d; i++ {
		if i >= len(raw) {
			continue // zero-pad
		}
		v := raw[i]
		if math.IsNaN(v) {
			v = 0.0
		}
		out[i] = float32(v)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
