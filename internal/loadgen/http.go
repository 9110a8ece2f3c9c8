package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Headers and error codes understood from the service.
const (
	headerIntegrityWarning = "X-Integrity-Warning"
	codeRoutingValidation  = "routing_validation"
	codeDependencyTimeout  = "dependency_timeout"
	codeUnavailable        = "dependency_unavailable"
	codeDataIntegrity      = "data_integrity"
)

// HTTPClient posts cases to a triage service.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a client with the given per-request timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// CheckHealth requires GET /healthz to answer 200.
func (c *HTTPClient) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

type assessResponse struct {
	RiskScore int    `json:"risk_score"`
	Code      string `json:"code"`
}

// Submit posts one case to /assess and classifies the response. Transport
// errors are returned; HTTP errors are reported through the Result.
func (c *HTTPClient) Submit(ctx context.Context, tc Case) (Result, error) {
	body, err := json.Marshal(tc)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal case: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/assess", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Result{Outcome: OutcomeTimeout, Latency: time.Since(start)}, nil
		}
		return Result{Outcome: OutcomeFailed, Latency: time.Since(start)}, err
	}
	defer resp.Body.Close()

	var ar assessResponse
	_ = json.NewDecoder(resp.Body).Decode(&ar)
	return Result{
		Outcome:          classify(resp.StatusCode, ar.Code),
		RiskScore:        ar.RiskScore,
		IntegrityWarning: resp.Header.Get(headerIntegrityWarning) != "",
		Latency:          time.Since(start),
	}, nil
}

func classify(status int, code string) Outcome {
	if status == http.StatusOK {
		return OutcomeSuccess
	}
	switch code {
	case codeRoutingValidation:
		return OutcomeRoutingViolation
	case codeDependencyTimeout:
		return OutcomeTimeout
	case codeUnavailable:
		return OutcomeUnavailable
	case codeDataIntegrity:
		return OutcomeDataIntegrity
	}
	return OutcomeFailed
}
