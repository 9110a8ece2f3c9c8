package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-haiku-4-5"

type anthropicCompleter struct {
	client anthropic.Client
	model  string
}

// NewAnthropic returns a Completer backed by the Anthropic Messages API.
// baseURL may be empty. SDK-level retries are disabled; Client retries.
func NewAnthropic(apiKey, model, baseURL string) (Completer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: anthropic", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &anthropicCompleter{client: anthropic.NewClient(opts...), model: model}, nil
}

func (a *anthropicCompleter) Provider() string { return "anthropic" }

func (a *anthropicCompleter) Complete(ctx context.Context, p Prompt) (Completion, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   p.MaxTokens,
		Temperature: anthropic.Float(p.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: p.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.User)),
		},
	})
	if err != nil {
		return Completion{}, fmt.Errorf("anthropic: %w", err)
	}
	out := Completion{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			out.Text = block.Text
			return out, nil
		}
	}
	return out, fmt.Errorf("%w: anthropic", ErrEmptyResponse)
}
