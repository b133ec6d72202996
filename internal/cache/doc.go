// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package cache provides an in-process, LRU-backed cache manager with TTL
expiry, JSON convenience methods, and basic hit/miss statistics.

# Overview

Manager holds every entry in-process behind a mutex-guarded LRU list, so
the orchestrator has no cache-server dependency to operate or fail over.
Expired entries are evicted lazily on Get; capacity overflow evicts the
least recently used entry on Set.

# Core types

  - Manager — the cache manager; Get/Set/Delete/Exists/Expire plus
    GetJSON/SetJSON convenience wrappers.
  - Config — max entry count, default TTL, health-check heartbeat interval.
  - Stats — hit/miss counters, current entry count, configured max size.

# Capabilities

  - String and JSON value storage.
  - Background heartbeat logging via zap while the manager is open.
  - Graceful Close that releases all entries.
  - ErrCacheMiss sentinel and IsCacheMiss helper.
*/
package cache
