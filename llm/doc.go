// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package llm provides the LLM provider abstraction used by the Speaker and
Executive workers.

# Overview

The llm package defines one Provider interface for chat completion and
streaming, the request/response types that go with it, and a
ProviderRegistry that holds named providers. Caching, middleware, retry and
tokenization live in subpackages.

# Provider Interface

The core Provider interface defines the contract for all LLM providers:

	type Provider interface {
	    Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	    Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)
	    HealthCheck(ctx context.Context) (*HealthStatus, error)
	    Name() string
	    SupportsNativeFunctionCalling() bool
	    ListModels(ctx context.Context) ([]Model, error)
	}

# Providers

Provider implementations live under llm/providers:

  - openaicompat: any OpenAI-compatible chat completions endpoint
  - gemini: the Google Gemini API
  - anthropic: holds only its package comment and defines no provider

factory.NewProviderFromConfig builds a provider by name. Its built-in names
are anthropic, claude, gemini and gemini-vertex; any other name is built as
an OpenAI-compatible provider and needs a base URL.

# Usage

Basic usage with a single provider:

	provider, err := factory.NewProviderFromConfig("openai", factory.ProviderConfig{
	    APIKey:  "your-api-key",
	    BaseURL: "https://api.openai.com",
	    Model:   "gpt-4o",
	}, logger)
	if err != nil {
	    log.Fatal(err)
	}

	resp, err := provider.Completion(ctx, &llm.ChatRequest{
	    Model: "gpt-4o",
	    Messages: []llm.Message{
	        {Role: llm.RoleUser, Content: "Hello!"},
	    },
	})

Holding several named providers in a registry:

	reg, err := factory.NewRegistryFromConfig(factory.RegistryConfig{
	    Default: "openai",
	    Providers: map[string]factory.ProviderConfig{
	        "openai": {APIKey: "your-api-key", BaseURL: "https://api.openai.com"},
	        "gemini": {APIKey: "your-gemini-key"},
	    },
	}, logger)

	provider, err := reg.Default()

# Streaming

Every Provider has a Stream method:

	stream, err := provider.Stream(ctx, &llm.ChatRequest{
	    Model: "gpt-4o",
	    Messages: messages,
	})
	if err != nil {
	    log.Fatal(err)
	}

	for chunk := range stream {
	    if chunk.Err != nil {
	        log.Printf("Error: %v", chunk.Err)
	        break
	    }
	    fmt.Print(chunk.Delta.Content)
	}

# Caching

The llm/cache package provides an in-process prompt cache:

	c := cache.NewMultiLevelCache(&cache.CacheConfig{
	    LocalMaxSize: 1000,
	    LocalTTL:     5 * time.Minute,
	    EnableLocal:  true,
	}, logger)

# Retry

providers.RetryableProvider wraps a Provider and retries errors marked
retryable with exponential backoff:

	retrying := providers.NewRetryableProvider(provider, providers.DefaultRetryConfig(), logger)

# Tool Calling

Support for native function calling:

	resp, err := provider.Completion(ctx, &llm.ChatRequest{
	    Model: "gpt-4o",
	    Messages: messages,
	    Tools: []llm.ToolSchema{
	        {
	            Name:        "get_weather",
	            Description: "Get current weather for a location",
	            Parameters:  weatherParamsSchema,
	        },
	    },
	})

# Error Handling

Provider errors are *Error values carrying an ErrorCode, the HTTP status,
the provider name and a Retryable flag. providers.MapHTTPError maps HTTP
status codes onto codes such as ErrUnauthorized, ErrRateLimited,
ErrQuotaExceeded and ErrUpstreamError.

Use IsRetryable to check if an error can be retried:

	if llm.IsRetryable(err) {
	    // Implement retry logic
	}

See the subpackages for additional functionality:
  - llm/cache: Prompt caching with multiple strategies
  - llm/middleware: Request/response middleware and request rewriters
  - llm/retry: Retry strategies and backoff
  - llm/streaming: Stream backpressure and zero-copy helpers
  - llm/tokenizer: Token counting
  - llm/factory: Building providers and registries from configuration
  - llm/providers/*: Provider-specific implementations
*/
package llm
