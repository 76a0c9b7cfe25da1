// Package transport is the single place where BYN API requests touch
// the network. It resolves paths against the configured base URL,
// stamps the standard headers, and executes exactly one HTTP exchange
// per call. It knows nothing about credentials or retries; those
// live a layer up in the request pipeline.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
const DefaultHTTPTimeout = 30 * time.Second

// RequestIDHeader carries a per-request correlation id. Callers may
// set their own; otherwise one is generated per exchange.
const RequestIDHeader = "X-Request-ID"

// Transport executes HTTP exchanges against one API origin.
type Transport struct {
	base       *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
}

// Config configures a Transport.
type Config struct {
	// BaseURL is the API origin every path is resolved against,
	// e.g. http://localhost:8000/api. Required.
	BaseURL string

	// Timeout bounds each request. Defaults to DefaultHTTPTimeout.
	Timeout time.Duration

	// UserAgent is sent with every request. Defaults to "byn".
	UserAgent string
}

// Option configures optional Transport behavior.
type Option func(*Transport)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(t *Transport) {
		t.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// New creates a Transport for the given origin.
func New(cfg Config, opts ...Option) (*Transport, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must include a scheme and host", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultHTTPTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "byn"
	}

	t := &Transport{
		base:       base,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
		userAgent:  userAgent,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// BaseURL returns the configured origin.
func (t *Transport) BaseURL() string {
	return t.base.String()
}

// Response is the outcome of a completed HTTP exchange. Any status
// code counts as a response; interpreting non-2xx statuses is the
// caller's concern.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// Do executes one HTTP exchange. The path is resolved against the
// base URL and body, when present, is sent as JSON. A non-nil error
// means the exchange itself failed (DNS, connect, timeout, TLS); an
// HTTP error status is returned as a normal Response.
func (t *Transport) Do(ctx context.Context, method, path string, header http.Header, body []byte) (*Response, error) {
	target := t.resolve(path)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", target, err)
	}

	t.logger.Debug("api request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Millisecond).String(),
		"request_id", req.Header.Get(RequestIDHeader),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// resolve joins the base URL with a request path, preserving any query
// string the caller already encoded into it.
func (t *Transport) resolve(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return t.base.String() + path
}
