package factory

import (
	"fmt"

	"aura-chat-be/pkg/llm"
	"aura-chat-be/pkg/llm/gemini"
	"aura-chat-be/pkg/llm/ollama"

	"google.golang.org/genai"
)

type Config struct {
	Provider      string
	Model         string
	Temperature   float64
	OllamaBaseURL string
}

// NewLLMProvider picks a backend. The genai client is only used for "gemini".
func NewLLMProvider(cfg Config, client *genai.Client) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "gemini", "":
		return gemini.NewGeminiProvider(client, cfg.Model, cfg.Temperature), nil
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
