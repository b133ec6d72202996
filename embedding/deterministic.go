package embedding

import (
	"context"
	"hash/fnv"
	"strings"
)

// Deterministic is a zero-network embedding provider: the same text always
// produces the same vector. Used by tests and as P7's "deterministic
// embedding model" fixture, and as a safe fallback when no HTTP provider is
// configured.
//
// It hashes each whitespace-separated token to a pseudo-embedding row, then
// mean-pools across tokens exactly like a real [1, T, D] model output would
// be pooled, then passes the result through the same normalize step the
// HTTP providers use.
type Deterministic struct {
	dim int
}

// NewDeterministic returns a Deterministic provider producing vectors of
// length dim.
func NewDeterministic(dim int) *Deterministic {
	return &Deterministic{dim: dim}
}

func (d *Deterministic) Name() string    { return "deterministic" }
func (d *Deterministic) Dimensions() int { return d.dim }

// Embed returns a deterministic vector of length Dimensions() for text.
func (d *Deterministic) Embed(_ context.Context, text string) ([]float32, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		tokens = []string{""}
	}
	tensor := make([][]float64, len(tokens))
	for i, tok := range tokens {
		tensor[i] = tokenRow(tok, d.dim)
	}
	return normalize(meanPool(tensor), d.dim), nil
}

// EmbedBatch embeds each text independently.
func (d *Deterministic) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := d.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// tokenRow derives a pseudo-random but fully deterministic row of dim
// floats in [-1, 1] from a single token via FNV-1a, reseeding per
// dimension index so the row isn't constant.
func tokenRow(tok string, dim int) []float64 {
	row := make([]float64, dim)
	for i := 0; i < dim; i++ {
		h := fnv.New32a()
		h.Write([]byte(tok))
		h.Write([]byte{byte(i), byte(i >> 8)})
		v := h.Sum32()
		row[i] = (float64(v%2000001) / 1000000.0) - 1.0
	}
	return row
}
