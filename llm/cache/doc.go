// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package cache caches LLM requests and tool results to cut duplicate calls
and their latency/cost.

# Overview

Identical or near-identical LLM requests recur often in practice. This
package provides two caches: a prompt cache (MultiLevelCache, despite the
name a single in-process LRU tier) for ChatRequest responses, and a tool
result cache (ToolResultCache) to avoid repeating tool executions.

# Core interfaces

  - PromptCache — Get/Set/Delete/GenerateKey.
  - KeyStrategy — cache key generation; Hash and Hierarchical implementations.
  - MultiLevelCache — the PromptCache implementation, backed by an LRUCache.
  - ToolResultCache — tool execution result cache with TTL, exclusions and
    per-tool invalidation.
  - CachingToolExecutor — wraps a ToolExecutor with ToolResultCache.

# Capabilities

  - Strategy pattern: Hash for exact matches, Hierarchical for multi-turn
    conversations sharing a prefix.
  - Tool cache keyed by tool name + argument hash, with per-tool TTL overrides.
  - Cacheability check: requests carrying Tools are skipped by default, since
    they may have side effects.
  - Version invalidation: drop everything on a prompt/model version bump.

# Usage

	cfg := cache.DefaultCacheConfig()
	mlc := cache.NewMultiLevelCache(cfg, logger)
	key := mlc.GenerateKey(chatReq)
	entry, err := mlc.Get(ctx, key)
*/
package cache
