package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const fallbackPrefix = "AI service unavailable. Mock response: "

// ReplyRequest is one generation call. Prompt and HasImage only shape the
// fallback text when the provider fails.
type ReplyRequest struct {
	Messages []Message
	Prompt   string
	HasImage bool
	Options  []Option
}

type Reply struct {
	Text     string
	Degraded bool
	Err      error
}

// Generator bounds a provider call with a timeout and never fails: on error
// it answers with a labeled fallback instead.
type Generator struct {
	provider     LLMProvider
	timeout      time.Duration
	previewLimit int
}

func NewGenerator(provider LLMProvider, timeout time.Duration, previewLimit int) *Generator {
	if previewLimit <= 0 {
		previewLimit = 200
	}
	return &Generator{
		provider:     provider,
		timeout:      timeout,
		previewLimit: previewLimit,
	}
}

func (g *Generator) Reply(ctx context.Context, req ReplyRequest) Reply {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := g.provider.Chat(ctx, req.Messages, req.Options...)
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("empty completion")
	}
	if err != nil {
		return Reply{
			Text:     FallbackText(req.HasImage, req.Prompt, g.previewLimit),
			Degraded: true,
			Err:      err,
		}
	}
	return Reply{Text: text}
}

// FallbackText is the degraded reply. The preview is the trimmed prompt cut
// to limit runes.
func FallbackText(hasImage bool, prompt string, limit int) string {
	preview := strings.TrimSpace(prompt)
	if r := []rune(preview); len(r) > limit {
		preview = string(r[:limit])
	}

	if hasImage {
		if preview == "" {
			return fallbackPrefix + "I received your image."
		}
		return fallbackPrefix + "I received your image and prompt: " + preview
	}
	if preview == "" {
		return fallbackPrefix + "I received your prompt."
	}
	return fallbackPrefix + "I received your prompt: " + preview
}

// IsFallback reports whether text came from FallbackText.
func IsFallback(text string) bool {
	return strings.HasPrefix(text, fallbackPrefix)
}
