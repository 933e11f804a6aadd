package embedding

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultChatModel = "gemini-1.5-flash"

// GeminiChat implements Chat over the Gemini generative API
type GeminiChat struct {
	client *genai.Client
	model  string
}

// NewGeminiChat creates a chat client. Model defaults to gemini-1.5-flash.
func NewGeminiChat(ctx context.Context, apiKey, model string) (*GeminiChat, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = defaultChatModel
	}
	return &GeminiChat{client: client, model: model}, nil
}

// Complete sends a prompt and returns the concatenated text parts of the
// first candidate.
func (c *GeminiChat) Complete(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty chat response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

// Close releases the underlying client
func (c *GeminiChat) Close() error {
	return c.client.Close()
}
