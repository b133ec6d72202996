// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main provides the orchestrator's executable entry point.

# Overview

cmd/agentflow wires the Speaker/Executive dual-worker orchestrator, its
Postgres+pgvector knowledge graph, and an OpenAI-compatible chat
completions surface into a runnable server, plus database migration,
health-check, and version subcommands. Configuration is env-only
(config.Load), logging is structured via zap, and metrics are exposed
on a separate Prometheus listener.

# Core types

  - Server          — owns the HTTP and metrics listeners and graceful shutdown
  - Middleware       — HTTP middleware signature func(http.Handler) http.Handler
  - responseWriter   — wraps http.ResponseWriter to capture the status code

# Capabilities

  - Subcommands: serve, migrate, version, health
  - Middleware chain: Recovery, RequestLogger, MetricsMiddleware, CORS,
    RateLimiter, APIKeyAuth (X-API-Key header)
  - Metrics server: separate listener exposing /metrics (Prometheus)
  - Graceful shutdown: signal → stop HTTP → stop metrics → close graph store
  - Build metadata: Version, BuildTime, GitCommit set via ldflags
*/
package main
