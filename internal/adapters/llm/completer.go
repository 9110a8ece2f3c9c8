package llm

import "context"

// Prompt is one single-turn chat request.
type Prompt struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int64
}

// Completion is the model's text answer with token usage.
type Completion struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Completer sends a Prompt to a chat model.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (Completion, error)
	Provider() string
}
