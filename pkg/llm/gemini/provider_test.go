package gemini

import (
	"context"
	"testing"

	"aura-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestToContents(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleSystem, Content: "be nice"},
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleModel, Content: "hello"},
		{Role: llm.RoleUser, Content: "what is this", Images: []llm.InlineImage{{Data: []byte{0xff, 0xd8}, MimeType: "image/jpeg"}}},
		{Role: llm.RoleUser},
	}

	contents, system := toContents(history)

	assert.Equal(t, "be nice", system)
	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)

	last := contents[2]
	require.Len(t, last.Parts, 2)
	require.NotNil(t, last.Parts[0].InlineData)
	assert.Equal(t, "image/jpeg", last.Parts[0].InlineData.MIMEType)
	assert.Equal(t, "what is this", last.Parts[1].Text)
}

func TestChatWithoutClient(t *testing.T) {
	p := NewGeminiProvider(nil, "", 0.8)
	_, err := p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	assert.Error(t, err)
}
