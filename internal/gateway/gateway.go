package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"byn/internal/credentials"
	"byn/internal/transport"
	"byn/pkg/api"
)

// Client is the authenticated request pipeline. Every API call goes
// through Request, which attaches the stored bearer credential,
// detects credential expiry via 401 responses, refreshes once through
// the shared refresher, and retries the original request exactly one
// time. Sign-in and sign-out endpoints must not go through this
// pipeline; their 401s mean bad credentials, not an expired session.
type Client struct {
	transport   *transport.Transport
	store       *credentials.Store
	refresher   *refresher
	logger      *slog.Logger
	authExpired func()
}

// Option configures the pipeline client.
type Option func(*Client)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithAuthExpired registers a callback fired when a refresh fails
// terminally and the session cannot continue. The credential store is
// already cleared when it runs.
func WithAuthExpired(fn func()) Option {
	return func(c *Client) {
		c.authExpired = fn
	}
}

// New creates a pipeline client on top of the transport and store.
func New(tr *transport.Transport, store *credentials.Store, opts ...Option) *Client {
	c := &Client{
		transport: tr,
		store:     store,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.refresher = &refresher{transport: tr, store: store, logger: c.logger}
	return c
}

// RequestOption customizes a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	query  url.Values
	header http.Header
}

// WithQuery sets the request's query parameters.
func WithQuery(query url.Values) RequestOption {
	return func(o *requestOptions) {
		o.query = query
	}
}

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.header == nil {
			o.header = http.Header{}
		}
		o.header.Set(key, value)
	}
}

// Request performs one authenticated API call. A non-nil body is
// JSON-encoded once and reused verbatim if the request is retried.
//
// Outcomes:
//   - 2xx: the response is returned.
//   - 401 with a working refresh: the refresher rotates the pair (one
//     exchange shared across concurrent callers) and the request is
//     re-issued a single time with the new credential. That second
//     outcome is final, even if it is another 401.
//   - 401 with a failed refresh: the store is already cleared, the
//     auth-expired callback fires, and an AuthExpiredError wrapping
//     the original 401 is returned.
//   - any other status: an HTTPError carrying the body.
//   - network failure: the transport's error, unchanged and unretried.
func (c *Client) Request(ctx context.Context, method, path string, body any, opts ...RequestOption) (*transport.Response, error) {
	var options requestOptions
	for _, opt := range opts {
		opt(&options)
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = data
	}

	if len(options.query) > 0 {
		path = path + "?" + options.query.Encode()
	}

	header := http.Header{}
	for key, values := range options.header {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	if header.Get(transport.RequestIDHeader) == "" {
		// One id for the logical request, shared with its retry.
		header.Set(transport.RequestIDHeader, uuid.NewString())
	}
	if pair, ok := c.store.Get(); ok {
		header.Set("Authorization", "Bearer "+pair.Access)
	}

	resp, err := c.transport.Do(ctx, method, path, header, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return finish(resp)
	}

	originating := &HTTPError{Status: resp.StatusCode, Body: resp.Body}
	pair, err := c.refresher.Refresh(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// The refresher kept the pair; an abandoned call says
			// nothing about the session.
			return nil, err
		}
		c.logger.Debug("credential refresh failed, session expired",
			"method", method,
			"path", path,
			"error", err.Error(),
		)
		c.signalAuthExpired()
		return nil, NewAuthExpiredError(originating)
	}

	c.logger.Debug("retrying request with refreshed credentials", "method", method, "path", path)
	header.Set("Authorization", "Bearer "+pair.Access)
	retried, err := c.transport.Do(ctx, method, path, header, payload)
	if err != nil {
		return nil, err
	}
	return finish(retried)
}

// DoJSON performs a Request and decodes a successful response into
// out. Pass a nil out to discard the body.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	resp, err := c.Request(ctx, method, path, body, opts...)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

// Refresh forces a credential rotation outside the 401 path. Used by
// explicit refresh commands; concurrent calls share one exchange.
func (c *Client) Refresh(ctx context.Context) (api.Credentials, error) {
	return c.refresher.Refresh(ctx)
}

// Transport exposes the underlying transport for callers that must
// bypass the retry pipeline, such as sign-in and sign-up.
func (c *Client) Transport() *transport.Transport {
	return c.transport
}

func (c *Client) signalAuthExpired() {
	if c.authExpired != nil {
		c.authExpired()
	}
}

// finish maps a completed exchange to the pipeline's result shape:
// success passes through, anything else becomes an HTTPError.
func finish(resp *transport.Response) (*transport.Response, error) {
	if resp.IsSuccess() {
		return resp, nil
	}
	return nil, &HTTPError{Status: resp.StatusCode, Body: resp.Body}
}
