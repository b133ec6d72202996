package cache

import (
	llmpkg "github.com/loglattice/orchestrator/llm"
)

// KeyStrategy generates a cache key for a chat request.
type KeyStrategy interface {
	// GenerateKey returns the cache key for req.
	GenerateKey(req *llmpkg.ChatRequest) string

	// Name returns the strategy's name, for logging and diagnostics.
	Name() string
}
