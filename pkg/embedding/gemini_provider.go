package embedding

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

type GeminiProvider struct {
	client    *genai.Client
	model     string
	dimension int
}

func NewGeminiProvider(client *genai.Client, model string, dimension int) *GeminiProvider {
	if model == "" {
		model = "gemini-embedding-001"
	}
	return &GeminiProvider{
		client:    client,
		model:     model,
		dimension: dimension,
	}
}

func (p *GeminiProvider) Dimension() int {
	return p.dimension
}

func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.client == nil {
		return nil, &ProviderError{Provider: "gemini", Err: errors.New("client not configured")}
	}

	dim := int32(p.dimension)
	res, err := p.client.Models.EmbedContent(ctx, p.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{OutputDimensionality: &dim},
	)
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Err: err}
	}
	if len(res.Embeddings) == 0 || res.Embeddings[0] == nil {
		return nil, &ProviderError{Provider: "gemini", Err: errors.New("no embeddings returned")}
	}

	values := res.Embeddings[0].Values
	if err := checkDimension("gemini", values, p.dimension); err != nil {
		return nil, err
	}
	return normalizeVector(values), nil
}
