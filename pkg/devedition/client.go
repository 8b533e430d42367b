// Package devedition is a thin HTTP client for the Developer Edition
// classification service. It exposes the four text operations the trial
// exercises: discover, protect, unprotect and redact. All classification
// and transformation logic runs inside the remote service; this client
// only shapes requests, maps errors and decodes responses.
package devedition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/config"
	"github.com/ProVishP/protegrity-developer-edition-trial-center/pkg/domain"
)

// Config holds client construction options.
type Config struct {
	// Endpoint is the classify route of the data-discovery API, e.g.
	// http://localhost:8580/pty/data-discovery/v1.1/classify. Sibling
	// operations are addressed relative to it.
	Endpoint string

	// Credentials enable protect/unprotect. Discovery and redact work
	// without them.
	Credentials config.Credentials

	// Timeout bounds each remote call. Defaults to 60s.
	Timeout time.Duration

	Logger *slog.Logger
}

// Client calls the Developer Edition classification service. Construct
// once and reuse; all methods are safe for sequential use from a single
// session and hold no per-request state.
type Client struct {
	endpoint    string
	credentials config.Credentials
	httpClient  *http.Client
	logger      *slog.Logger

	mu             sync.Mutex
	namedEntityMap map[string]string
}

// NewClient creates a client for the classification service.
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("devedition: invalid endpoint %q", cfg.Endpoint)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint:       cfg.Endpoint,
		credentials:    cfg.Credentials,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger,
		namedEntityMap: make(map[string]string),
	}, nil
}

// HasCredentials reports whether protect/unprotect are available.
func (c *Client) HasCredentials() bool {
	return c.credentials.Complete()
}

// MapNamedEntity registers a label replacement used by the transform
// operations, mirroring the SDK's named-entity map configuration. The
// sanitizer uses it to fold composite labels before redaction.
func (c *Client) MapNamedEntity(label, replacement string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.namedEntityMap[label] = replacement
}

func (c *Client) namedEntities() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.namedEntityMap) == 0 {
		return nil
	}
	snapshot := make(map[string]string, len(c.namedEntityMap))
	for k, v := range c.namedEntityMap {
		snapshot[k] = v
	}
	return snapshot
}

// Discover classifies the text and returns the discovered entities.
func (c *Client) Discover(ctx context.Context, text string) (Entities, error) {
	body, err := c.post(ctx, c.endpoint, classifyRequest{Text: text}, false)
	if err != nil {
		return nil, err
	}

	var entities Entities
	if err := json.Unmarshal(body, &entities); err != nil {
		return nil, fmt.Errorf("%w: decoding classify response: %v", domain.ErrTransport, err)
	}
	return entities, nil
}

// Protect replaces discovered sensitive values with reversible tokens.
// Fails fast without a network call when credentials are not configured.
func (c *Client) Protect(ctx context.Context, text string) (string, error) {
	if !c.credentials.Complete() {
		return "", fmt.Errorf("%w: protect requires %s",
			domain.ErrCredentialOrAuth, strings.Join(c.credentials.Missing(), ", "))
	}
	return c.transform(ctx, "protect", text)
}

// Unprotect restores the original values from protected text.
func (c *Client) Unprotect(ctx context.Context, text string) (string, error) {
	if !c.credentials.Complete() {
		return "", fmt.Errorf("%w: unprotect requires %s",
			domain.ErrCredentialOrAuth, strings.Join(c.credentials.Missing(), ", "))
	}
	return c.transform(ctx, "unprotect", text)
}

// Redact irreversibly masks discovered sensitive values. No credential
// dependency.
func (c *Client) Redact(ctx context.Context, text string) (string, error) {
	return c.transform(ctx, "redact", text)
}

func (c *Client) transform(ctx context.Context, operation, text string) (string, error) {
	body, err := c.post(ctx, c.operationURL(operation), transformRequest{
		Text:           text,
		NamedEntityMap: c.namedEntities(),
	}, true)
	if err != nil {
		return "", err
	}

	var resp transformResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decoding %s response: %v", domain.ErrTransport, operation, err)
	}
	return resp.Text, nil
}

// operationURL swaps the final path segment of the classify endpoint,
// keeping host and API version intact.
func (c *Client) operationURL(operation string) string {
	u, _ := url.Parse(c.endpoint)
	u.Path = path.Join(path.Dir(u.Path), operation)
	return u.String()
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, withCredentials bool) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("devedition: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("devedition: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if withCredentials && c.credentials.Complete() {
		req.Header.Set("x-api-key", c.credentials.APIKey)
		req.Header.Set("x-email", c.credentials.Email)
		req.Header.Set("x-password", c.credentials.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrTransport, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: service returned status %d", domain.ErrCredentialOrAuth, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: service returned status %d: %s",
			domain.ErrTransport, resp.StatusCode, truncate(body, 200))
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
