// Package claude implements the triage.Provider interface on the Anthropic
// API. Primary and fallback endpoints are two Clients with different models.
package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// responseTokens bounds completion length. Triage responses are a code, a
// token, or a small JSON object, so this is generous.
const responseTokens = 1024

// Client sends single-prompt completions to one Claude model.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
}

// New creates a Claude client for the given API key and model name.
func New(apiKey, model string) *Client {
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// Complete sends the prompt and returns the completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: responseTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude %s: %w", c.model, err)
	}

	text := extractText(msg)
	if text == "" {
		return "", fmt.Errorf("claude %s: empty completion", c.model)
	}
	return text, nil
}

// extractText concatenates the text blocks of a message.
func extractText(msg *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(b.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
