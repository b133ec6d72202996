package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// GeminiConfig configures the Gemini-compatible embedding provider
// (Google's batchEmbedContents endpoint).
type GeminiConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// GeminiProvider talks to Google's Generative Language API embedContent /
// batchEmbedContents endpoints.
type GeminiProvider struct {
	*httpProvider
}

// NewGeminiProvider creates a new Gemini-compatible embedding provider.
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}
	return &GeminiProvider{httpProvider: newHTTPProvider(httpConfig{
		Name:       "gemini-embedding",
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Timeout:    cfg.Timeout,
	})}
}

type geminiBatchRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiEmbedRequest struct {
	Model   string           `json:"model"`
	Content geminiContent    `json:"content"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiBatchResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

func (p *GeminiProvider) embedRaw(ctx context.Context, texts []string) ([][]float64, error) {
	reqs := make([]geminiEmbedRequest, len(texts))
	modelPath := "models/" + p.model
	for i, t := range texts {
		reqs[i] = geminiEmbedRequest{Model: modelPath, Content: geminiContent{Parts: []geminiPart{{Text: t}}}}
	}
	endpoint := fmt.Sprintf("/v1beta/%s:batchEmbedContents?key=%s", modelPath, p.apiKey)
	respBody, err := p.doRequest(ctx, "POST", endpoint, geminiBatchRequest{Requests: reqs}, nil)
	if err != nil {
		return nil, err
	}
	var resp geminiBatchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, ErrEmbeddingUnavailable(err).WithProvider(p.name)
	}
	out := make([][]float64, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

// Embed embeds a single text.
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	raw, err := p.embedRaw(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrEmbeddingUnavailable(nil).WithProvider(p.name)
	}
	return normalize(raw[0], p.dim), nil
}

// EmbedBatch embeds multiple texts in one request.
func (p *GeminiProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	raw, err := p.embedRaw(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(raw))
	for i, r := range raw {
		out[i] = normalize(r, p.dim)
	}
	return out, nil
}
