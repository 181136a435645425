// Package summary shortens page content for the summarize_page tool.
package summary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultLimit is the number of characters kept by truncation.
const DefaultLimit = 500

// Ellipsis marks truncated content.
const Ellipsis = "..."

// Summarizer turns page content into a shorter text.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// Truncate returns content unchanged when it has at most limit characters,
// otherwise its first limit characters followed by Ellipsis.
func Truncate(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + Ellipsis
}

// Truncator is the default Summarizer.
type Truncator struct {
	Limit int
}

func (t Truncator) Summarize(_ context.Context, content string) (string, error) {
	limit := t.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return Truncate(content, limit), nil
}

const systemPrompt = "You are a concise technical summarizer. Summarize the following Confluence page (storage-format XHTML) in 2-4 sentences of plain text. Focus on the purpose of the page, the key decisions or facts it records, and any open action items."

// Claude summarizes through the Anthropic Messages API. When the call fails
// it falls back to truncation so the tool still answers.
type Claude struct {
	client   anthropic.Client
	model    string
	fallback Summarizer
	logger   *slog.Logger
}

// NewClaude creates a Claude summarizer for model. The API key is read from
// ANTHROPIC_API_KEY by the SDK unless opts set one. Failed calls are not
// retried.
func NewClaude(model string, lg *slog.Logger, opts ...option.RequestOption) *Claude {
	if lg == nil {
		lg = slog.Default()
	}
	return &Claude{
		client:   anthropic.NewClient(append([]option.RequestOption{option.WithMaxRetries(0)}, opts...)...),
		model:    model,
		fallback: Truncator{Limit: DefaultLimit},
		logger:   lg,
	}
}

func (c *Claude) Summarize(ctx context.Context, content string) (string, error) {
	text, err := c.complete(ctx, content)
	if err != nil {
		c.logger.WarnContext(ctx, "llm summary failed, truncating instead", "model", c.model, "error", err)
		return c.fallback.Summarize(ctx, content)
	}
	return text, nil
}

func (c *Claude) complete(ctx context.Context, content string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 300,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(content)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text block in response")
}

// New picks the summarizer for the configured model: truncation when model
// is empty, Claude otherwise.
func New(model string, lg *slog.Logger) Summarizer {
	if model == "" {
		return Truncator{Limit: DefaultLimit}
	}
	return NewClaude(model, lg)
}
