// Package guardrail submits prompts to the semantic guardrail service
// and returns its verdict verbatim. The scoring vocabulary (outcome,
// score range, explanation) is owned by the remote service; this client
// never infers or overrides a decision.
package guardrail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/domain"
)

// Config holds client construction options.
type Config struct {
	// URL is the scoring route of the semantic guardrail service.
	URL string

	// Timeout bounds the single scoring call. Defaults to 30s.
	Timeout time.Duration

	Logger *slog.Logger
}

// Result is the verbatim outcome of one guardrail evaluation.
type Result struct {
	Domain      domain.SemanticDomain `json:"domain"`
	Outcome     string                `json:"outcome"`
	Score       float64               `json:"score"`
	Explanation string                `json:"explanation,omitempty"`
	// Raw retains the complete service payload for diagnostic display.
	Raw json.RawMessage `json:"raw_response"`
}

// Client performs semantic guardrail evaluations. One network call per
// Evaluate, bounded timeout, no retries: a failed evaluation must never
// silently read as "allowed".
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a guardrail client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// scoreRequest is the wire request for the scoring route.
type scoreRequest struct {
	Domain   string         `json:"domain"`
	Messages []scoreMessage `json:"messages"`
}

type scoreMessage struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// scoreEnvelope mirrors the service's response: one entry per submitted
// message, each carrying the outcome and per-processor detail.
type scoreEnvelope struct {
	Messages []struct {
		ID         string  `json:"id"`
		Outcome    string  `json:"outcome"`
		Score      float64 `json:"score"`
		Processors []struct {
			Name        string  `json:"name"`
			Score       float64 `json:"score"`
			Explanation string  `json:"explanation"`
		} `json:"processors"`
	} `json:"messages"`
}

// Evaluate submits one prompt for scoring under the given domain.
// An unrecognised domain or empty prompt fails before any network I/O.
func (c *Client) Evaluate(ctx context.Context, prompt, rawDomain string) (*Result, error) {
	dom, err := domain.ParseSemanticDomain(rawDomain)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: empty prompt", domain.ErrCallerInput)
	}

	payload, err := json.Marshal(scoreRequest{
		Domain:   string(dom),
		Messages: []scoreMessage{{ID: "1", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("guardrail: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("guardrail: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: guardrail request: %v", domain.ErrTransport, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading guardrail response: %v", domain.ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: guardrail returned status %d", domain.ErrTransport, resp.StatusCode)
	}

	var envelope scoreEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding guardrail response: %v", domain.ErrTransport, err)
	}
	if len(envelope.Messages) == 0 {
		return nil, fmt.Errorf("%w: guardrail returned no message results", domain.ErrTransport)
	}

	msg := envelope.Messages[0]
	result := &Result{
		Domain:  dom,
		Outcome: msg.Outcome,
		Score:   msg.Score,
		Raw:     json.RawMessage(body),
	}
	if len(msg.Processors) > 0 {
		result.Explanation = msg.Processors[0].Explanation
	}

	c.logger.Info("guardrail evaluation",
		"domain", dom,
		"outcome", result.Outcome,
		"score", result.Score,
		"duration", time.Since(start),
	)

	return result, nil
}
