package llm

import (
	"context"
)

const (
	RoleUser   = "user"
	RoleModel  = "model"
	RoleSystem = "system"
)

// InlineImage is raw image bytes sent with a message.
type InlineImage struct {
	Data     []byte
	MimeType string
}

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "model", "system"
	Content string
	Images  []InlineImage
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature       float64
	MaxTokens         int
	Model             string // Override default model
	SystemInstruction string
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithSystemInstruction(text string) Option {
	return func(o *Options) {
		o.SystemInstruction = text
	}
}

// ApplyOptions folds opts over defaults.
func ApplyOptions(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}
