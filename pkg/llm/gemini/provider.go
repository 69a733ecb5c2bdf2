package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aura-chat-be/pkg/llm"

	"google.golang.org/genai"
)

// GeminiProvider implements llm.LLMProvider on the Gemini API.
type GeminiProvider struct {
	client      *genai.Client
	modelName   string
	temperature float64
}

var _ llm.LLMProvider = &GeminiProvider{}

// NewClient builds a genai client for the public Gemini API.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return client, nil
}

func NewGeminiProvider(client *genai.Client, modelName string, temperature float64) *GeminiProvider {
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &GeminiProvider{
		client:      client,
		modelName:   modelName,
		temperature: temperature,
	}
}

// toContents maps the history onto genai contents. System messages are
// folded into the system instruction since Gemini has no system role.
func toContents(history []llm.Message) ([]*genai.Content, string) {
	var contents []*genai.Content
	var system []string

	for _, m := range history {
		if m.Role == llm.RoleSystem {
			system = append(system, m.Content)
			continue
		}

		role := genai.Role(genai.RoleUser)
		if m.Role == llm.RoleModel || m.Role == "assistant" {
			role = genai.RoleModel
		}

		parts := make([]*genai.Part, 0, len(m.Images)+1)
		for _, img := range m.Images {
			parts = append(parts, genai.NewPartFromBytes(img.Data, img.MimeType))
		}
		if m.Content != "" {
			parts = append(parts, genai.NewPartFromText(m.Content))
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents, strings.Join(system, "\n\n")
}

func (p *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	if p.client == nil {
		return "", errors.New("gemini client not configured")
	}

	options := llm.ApplyOptions(llm.Options{Temperature: p.temperature, Model: p.modelName}, opts...)

	contents, system := toContents(history)
	if len(contents) == 0 {
		return "", errors.New("gemini: nothing to send")
	}
	if options.SystemInstruction != "" {
		system = strings.TrimSpace(options.SystemInstruction + "\n\n" + system)
	}

	temp := float32(options.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(options.MaxTokens)
	}

	res, err := p.client.Models.GenerateContent(ctx, options.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", errors.New("gemini returned empty text")
	}
	return text, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}
