package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/loglattice/orchestrator/internal/cache"
	"go.uber.org/zap"
)

// Cached wraps a Provider with a read-through cache keyed on a hash of the
// input text, so repeated embed() calls for identical names (e.g. a Tag
// renamed back to a prior value, or the same userQuery re-evaluated across
// Executive re-evaluations) are cheap. Cache misses fall back to the
// wrapped provider; cache errors are non-fatal and logged, never surfaced
// to the caller.
type Cached struct {
	inner  Provider
	cache  *cache.Manager
	ttl    time.Duration
	logger *zap.Logger
}

// NewCached wraps inner with an in-process LRU cache.
func NewCached(inner Provider, mgr *cache.Manager, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cached{inner: inner, cache: mgr, ttl: ttl, logger: logger}
}

func (c *Cached) Name() string    { return c.inner.Name() }
func (c *Cached) Dimensions() int { return c.inner.Dimensions() }

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	var cached []float64
	if err := c.cache.GetJSON(ctx, key, &cached); err == nil {
		return toFloat32(cached), nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetJSON(ctx, key, toFloat64(vec), c.ttl); err != nil {
		c.logger.Warn("embedding cache write failed", zap.Error(err))
	}
	return vec, nil
}

// EmbedBatch is not cached per-item; it always goes straight to the
// underlying provider since batch writeback callers rarely repeat inputs.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(c.inner.Name() + ":" + text))
	return "embedding:" + hex.EncodeToString(sum[:])
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
