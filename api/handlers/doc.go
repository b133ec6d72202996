// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers implements the orchestrator's HTTP request handlers.

# Overview

handlers implements the request logic behind the OpenAI-compatible chat
completions endpoint and the service's health/readiness surface. Every
handler follows the standard net/http.Handler shape.

# Core types

  - ChatHandler      — chat completions, synchronous and SSE streaming
  - HealthHandler     — liveness/readiness aggregation (/health, /healthz, /ready)
  - HealthCheck       — pluggable per-dependency check interface
  - DatabaseHealthCheck — a HealthCheck backed by a ping func
  - Response / ErrorInfo — shared JSON response envelope (api package)
  - ResponseWriter    — wraps http.ResponseWriter to capture the status code

# Capabilities

  - Response helpers: WriteSuccess / WriteError / WriteJSON
  - Request validation: DecodeJSONBody (size-limited, strict mode), ValidateContentType
  - ErrorCode -> HTTP status mapping (4xx/5xx)
  - SSE streaming via ChatHandler.HandleCompletion when the request sets
    stream=true (text/event-stream)
  - Extensible health checks: RegisterCheck for custom HealthCheck implementations
*/
package handlers
