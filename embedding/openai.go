package embedding

import (
	"context"
	"encoding/json"
	"time"
)

// OpenAIConfig configures the OpenAI-compatible embedding provider.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// OpenAICompatProvider talks to any OpenAI-compatible /v1/embeddings
// endpoint (OpenAI itself, or a self-hosted vLLM/Ollama deployment).
type OpenAICompatProvider struct {
	*httpProvider
}

// NewOpenAICompatProvider creates a new OpenAI-compatible embedding provider.
func NewOpenAICompatProvider(cfg OpenAIConfig) *OpenAICompatProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	return &OpenAICompatProvider{httpProvider: newHTTPProvider(httpConfig{
		Name:       "openai-compat-embedding",
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Timeout:    cfg.Timeout,
	})}
}

type openAIEmbedRequest struct {
	Input interface{} `json:"input"`
	Model string      `json:"model"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (p *OpenAICompatProvider) embedRaw(ctx context.Context, texts []string) ([][]float64, error) {
	body := openAIEmbedRequest{Input: texts, Model: p.model}
	respBody, err := p.doRequest(ctx, "POST", "/v1/embeddings", body, map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	})
	if err != nil {
		return nil, err
	}
	var resp openAIEmbedResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, ErrEmbeddingUnavailable(err).WithProvider(p.name)
	}
	out := make([][]float64, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Embed embeds a single text, normalizing the result to Dimensions().
func (p *OpenAICompatProvider) Embed(ctx context.Context, text string) ([]float32, error) {
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
func (p *OpenAICompatProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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
