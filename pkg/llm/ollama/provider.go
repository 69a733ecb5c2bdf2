package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"aura-chat-be/pkg/llm"

	"github.com/go-resty/resty/v2"
)

type OllamaProvider struct {
	client    *resty.Client
	modelName string
}

// Ensure OllamaProvider implements LLMProvider
var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	return &OllamaProvider{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(120*time.Second).
			SetHeader("Content-Type", "application/json"),
		modelName: modelName,
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

func toOllamaMessages(history []llm.Message, system string) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(history)+1)
	if system != "" {
		out = append(out, ollamaMessage{Role: "system", Content: system})
	}
	for _, msg := range history {
		role := msg.Role
		if role == llm.RoleModel {
			role = "assistant"
		}
		m := ollamaMessage{Role: role, Content: msg.Content}
		for _, img := range msg.Images {
			m.Images = append(m.Images, base64.StdEncoding.EncodeToString(img.Data))
		}
		out = append(out, m)
	}
	return out
}

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: 0.7, Model: o.modelName}, opts...)

	reqPayload := ollamaChatRequest{
		Model:    options.Model,
		Messages: toOllamaMessages(history, options.SystemInstruction),
		Stream:   false,
		Options:  &ollamaOptions{Temperature: options.Temperature, NumPredict: options.MaxTokens},
	}

	var out ollamaChatResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(reqPayload).
		SetResult(&out).
		Post("/api/chat")
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	return out.Message.Content, nil
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return o.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}
