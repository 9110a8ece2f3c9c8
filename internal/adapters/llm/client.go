// Package llm generates clinical narratives and department choices with a
// chat model (Anthropic or any OpenAI-compatible endpoint).
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/triage/internal/domain/model"
	"github.com/okian/triage/pkg/logger"
	"github.com/okian/triage/pkg/metrics"
)

// Providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Option configures a Client.
type Option func(*Client)

// WithMaxRetries sets how many times a failed call is retried. Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the first retry delay; it doubles per attempt.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client implements narrative generation and department routing.
type Client struct {
	completer  Completer
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
}

// New wraps a Completer.
func New(completer Completer, opts ...Option) *Client {
	c := &Client{
		completer: completer,
		backoff:   250 * time.Millisecond,
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewCompleter builds the Completer for provider.
func NewCompleter(provider, apiKey, model, baseURL string) (Completer, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropic(apiKey, model, baseURL)
	case ProviderOpenAI:
		return NewOpenAI(apiKey, model, baseURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

// GenerateNarrative returns the model's explanation verbatim, minus
// surrounding whitespace.
func (c *Client) GenerateNarrative(ctx context.Context, nc model.NarrativeContext) (string, error) {
	out, err := c.complete(ctx, "narrative", narrativePrompt(nc))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Text), nil
}

// RouteDepartment asks the model for exactly one of allowed. The answer is
// returned as given; catalog validation happens downstream.
func (c *Client) RouteDepartment(ctx context.Context, rc model.RoutingContext, allowed []string) (string, error) {
	out, err := c.complete(ctx, "router", routingPrompt(rc, allowed))
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

func (c *Client) complete(ctx context.Context, purpose string, p Prompt) (Completion, error) {
	delay := c.backoff
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn(ctx, "retrying llm call",
				logger.String("purpose", purpose),
				logger.Int("attempt", attempt),
				logger.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return Completion{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		start := time.Now()
		out, err := c.completer.Complete(ctx, p)
		if err == nil {
			metrics.RecordLLMTokens(c.completer.Provider(), out.InputTokens, out.OutputTokens)
			c.logger.Debug(ctx, "llm call completed",
				logger.String("purpose", purpose),
				logger.String("provider", c.completer.Provider()),
				logger.Int("response_size", len(out.Text)),
				logger.Duration("latency", time.Since(start)),
			)
			return out, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			break
		}
	}
	return Completion{}, lastErr
}
