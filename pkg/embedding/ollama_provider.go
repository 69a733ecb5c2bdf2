package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// OllamaProvider talks to a local Ollama server (e.g. nomic-embed-text).
type OllamaProvider struct {
	client    *resty.Client
	model     string
	dimension int
}

func NewOllamaProvider(baseURL, model string, dimension int) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaProvider{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(60*time.Second).
			SetHeader("Content-Type", "application/json"),
		model:     model,
		dimension: dimension,
	}
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (p *OllamaProvider) Dimension() int {
	return p.dimension
}

func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	var out ollamaEmbeddingResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(ollamaEmbeddingRequest{Model: p.model, Prompt: text}).
		SetResult(&out).
		Post("/api/embeddings")
	if err != nil {
		return nil, &ProviderError{Provider: "ollama", Err: err}
	}
	if resp.IsError() {
		return nil, &ProviderError{Provider: "ollama", Err: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())}
	}

	values := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		values[i] = float32(v)
	}
	if err := checkDimension("ollama", values, p.dimension); err != nil {
		return nil, err
	}
	return normalizeVector(values), nil
}
