// Package rest provides the ingestion API adapter over HTTP.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.IngestionAPI = (*Client)(nil)

// Default configuration values.
const (
	DefaultTimeout = 30 * time.Second

	// DefaultPollRate caps status requests per second across all sessions.
	DefaultPollRate = 4.0

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 512
)

// Config holds configuration for the REST client.
type Config struct {
	// BaseURL is the backend base URL, e.g. http://localhost:8080.
	BaseURL string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// PollRate is the maximum number of status requests per second (default: 4).
	PollRate float64

	// HTTPClient overrides the HTTP client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the ingestion endpoints.
type Client struct {
	client  *http.Client
	baseURL *url.URL
	limiter *rate.Limiter
}

// submitRequest is the /api/extract request format.
type submitRequest struct {
	Filename string `json:"filename"`
	Email    string `json:"email"`
}

// NewClient creates a new REST client.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", domain.ErrInvalidInput, cfg.BaseURL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PollRate <= 0 {
		cfg.PollRate = DefaultPollRate
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		client:  client,
		baseURL: base,
		limiter: rate.NewLimiter(rate.Limit(cfg.PollRate), 1),
	}, nil
}

// CheckPriorSession reports previous sessions owned by identity.
func (c *Client) CheckPriorSession(ctx context.Context, identity string) (*domain.PriorSessions, error) {
	q := url.Values{}
	q.Set("email", identity)

	var out domain.PriorSessions
	if err := c.getJSON(ctx, "/api/check-email?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("check prior session: %w", err)
	}
	return &out, nil
}

// Submit registers a new document.
func (c *Client) Submit(ctx context.Context, filename, identity string) (*domain.SubmitTicket, error) {
	body, err := json.Marshal(submitRequest{Filename: filename, Email: identity})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve("/api/extract"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var ticket domain.SubmitTicket
	if err := c.doJSON(req, &ticket); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	if ticket.UploadTarget == "" {
		return nil, domain.ErrNoUploadTarget
	}
	if ticket.SessionID == "" {
		return nil, fmt.Errorf("submit: %w: missing session id", domain.ErrInvalidInput)
	}
	return &ticket, nil
}

// Upload sends the document body to target.
// Relative targets are resolved against the base URL.
func (c *Client) Upload(ctx context.Context, target string, content []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.resolve(target), bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	if err := c.doJSON(req, nil); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

// PollStatus returns the pipeline status of a session.
func (c *Client) PollStatus(ctx context.Context, sessionID string) (*domain.StatusReport, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var report domain.StatusReport
	if err := c.getJSON(ctx, "/api/status/"+url.PathEscape(sessionID), &report); err != nil {
		return nil, fmt.Errorf("poll status: %w", err)
	}
	return &report, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// resolve turns a path or absolute URL into an absolute URL.
func (c *Client) resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	if strings.HasPrefix(ref, "/") {
		return c.baseURL.String() + ref
	}
	return c.baseURL.ResolveReference(u).String()
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.doJSON(req, out)
}

// doJSON sends req and decodes a JSON body into out when out is non-nil.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: status %d: %s", domain.ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
