// Package textclf scores free-text symptom descriptions with a remote
// zero-shot classification endpoint (Hugging Face inference format).
package textclf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/triage/internal/domain/model"
	"github.com/okian/triage/pkg/logger"
)

// Candidate labels sent to the classifier, with the severity each maps to
// and its weight in the aggregate score.
var candidates = []struct { //nolint:gochecknoglobals // fixed label schema
	Phrase   string
	Severity model.Severity
	Weight   float64
}{
	{"routine non-urgent condition", model.SeverityRoutine, 0.1},
	{"urgent medical attention needed", model.SeverityUrgent, 0.6},
	{"critical life-threatening emergency", model.SeverityCritical, 0.95},
}

// CandidateLabels returns the label phrases in request order.
func CandidateLabels() []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Phrase
	}
	return out
}

type request struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

type parameters struct {
	CandidateLabels []string `json:"candidate_labels"`
}

type response struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
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

// Client calls the classification endpoint.
type Client struct {
	url    string
	token  string
	http   *http.Client
	logger logger.Logger
}

// New returns a Client for the endpoint url.
func New(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, ErrMissingURL
	}
	c := &Client{
		url:    url,
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ClassifyText returns the severity-weighted score and the most probable label.
func (c *Client) ClassifyText(ctx context.Context, text string) (model.TextAssessment, error) {
	body, err := json.Marshal(request{Inputs: text, Parameters: parameters{CandidateLabels: CandidateLabels()}})
	if err != nil {
		return model.TextAssessment{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return model.TextAssessment{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return model.TextAssessment{}, fmt.Errorf("classifier request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.TextAssessment{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.TextAssessment{}, fmt.Errorf("%w: %d: %s", ErrStatus, resp.StatusCode, truncate(raw, 200))
	}

	parsed, err := decode(raw)
	if err != nil {
		return model.TextAssessment{}, err
	}
	ta, err := Aggregate(parsed.Labels, parsed.Scores)
	if err != nil {
		return model.TextAssessment{}, err
	}
	c.logger.Debug(ctx, "text classified",
		logger.String("label", string(ta.Label)),
		logger.Float64("score", ta.Score),
		logger.Duration("latency", time.Since(start)),
	)
	return ta, nil
}

// decode accepts both a single object and the one-element array some
// inference servers return.
func decode(raw []byte) (response, error) {
	var single response
	if err := json.Unmarshal(raw, &single); err == nil && len(single.Labels) > 0 {
		return single, nil
	}
	var batch []response
	if err := json.Unmarshal(raw, &batch); err == nil && len(batch) > 0 {
		return batch[0], nil
	}
	return response{}, fmt.Errorf("%w: %s", ErrBadResponse, truncate(raw, 200))
}

// Aggregate folds per-label probabilities into a TextAssessment. The score
// is the probability-weighted severity, clamped to [0,1]; the label is the
// most probable candidate.
func Aggregate(labels []string, scores []float64) (model.TextAssessment, error) {
	if len(labels) == 0 || len(labels) != len(scores) {
		return model.TextAssessment{}, fmt.Errorf("%w: %d labels, %d scores", ErrBadResponse, len(labels), len(scores))
	}
	var (
		total float64
		best  = -1.0
		top   model.Severity
	)
	for i, phrase := range labels {
		idx := -1
		for j, c := range candidates {
			if c.Phrase == phrase {
				idx = j
				break
			}
		}
		if idx < 0 {
			return model.TextAssessment{}, fmt.Errorf("%w: %q", ErrUnknownLabel, phrase)
		}
		p := scores[i]
		total += candidates[idx].Weight * p
		if p > best {
			best, top = p, candidates[idx].Severity
		}
	}
	total = min(max(total, 0), 1)
	return model.TextAssessment{Score: total, Label: top}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
