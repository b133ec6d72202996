package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	llmpkg "github.com/loglattice/orchestrator/llm"
)

// HierarchicalKeyStrategy keys on tenant and model plus a hash of every
// message but the last, in the form llm:cache:{tenantID}:{model}:{msgHash}.
// Leaving the final (user) message out of the hash lets turn N-1 of a
// multi-turn conversation share a cache prefix with turn N.
type HierarchicalKeyStrategy struct{}

// Name identifies this strategy.
func (s *HierarchicalKeyStrategy) Name() string {
	return "hierarchical"
}

// GenerateKey builds the hierarchical cache key for req.
func (s *HierarchicalKeyStrategy) GenerateKey(req *llmpkg.ChatRequest) string {
	baseKey := fmt.Sprintf("llm:cache:%s:%s", req.TenantID, req.Model)

	var msgSlice []llmpkg.Message
	if len(req.Messages) > 0 {
		msgSlice = req.Messages[:len(req.Messages)-1]
	}

	if len(msgSlice) == 0 {
		return baseKey + ":initial"
	}

	msgHash := hashMessages(msgSlice)

	return fmt.Sprintf("%s:%s", baseKey, msgHash)
}

// hashMessages returns a truncated SHA-256 hash of msgs.
func hashMessages(msgs []llmpkg.Message) string {
	data, _ := json.Marshal(msgs)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:12])
}

// NewHierarchicalKeyStrategy builds a HierarchicalKeyStrategy.
func NewHierarchicalKeyStrategy() *HierarchicalKeyStrategy {
	return &HierarchicalKeyStrategy{}
}
