// Package transport is the HTTP client of the rule suggestion and application
// services.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/logging"
	"github.com/agentstation/matchrules/pkg/services"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Service endpoint paths, relative to the base URL.
const (
	SuggestPath = "/suggest"
	ApplyPath   = "/apply"
)

var _ services.Service = (*Client)(nil)

// Client calls both rule services over HTTP.
type Client struct {
	baseURL   string
	http      *http.Client
	auth      Authenticator
	apiKey    string
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithAPIKey sets the API key and the authenticator applying it.
func WithAPIKey(apiKey string, auth Authenticator) Option {
	return func(c *Client) {
		c.apiKey = apiKey
		if auth != nil {
			c.auth = auth
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a client for the services under baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.NewConfigError("transport", "invalid service url "+baseURL, err)
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: DefaultHTTPTimeout},
		auth:      &BearerAuth{},
		userAgent: "matchrules",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Suggest implements services.Suggester.
func (c *Client) Suggest(ctx context.Context, req services.SuggestRequest) (*services.SuggestResponse, error) {
	var resp services.SuggestResponse
	if err := c.post(ctx, services.SuggestService, SuggestPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Apply implements services.Applier.
func (c *Client) Apply(ctx context.Context, req services.ApplyRequest) (*services.ApplyResponse, error) {
	var resp services.ApplyResponse
	if err := c.post(ctx, services.ApplyService, ApplyPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, service, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.WrapParse("json", service+" request", err)
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.WrapResource("create", "request", "POST "+endpoint, err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return c.classify(ctx, service, err)
	}
	return DecodeResponse(resp, service, out)
}

// Do performs an HTTP request with authentication and common headers applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.apiKey != "" {
		c.auth.Apply(req, c.apiKey)
	}

	// Set common headers
	req.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	logging.FromContext(req.Context()).Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("Calling rule service")
	return c.http.Do(req)
}

// classify maps transport failures to typed errors. Deadlines and client
// timeouts become TimeoutError, cancellation keeps context.Canceled.
func (c *Client) classify(ctx context.Context, service string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		timeout := c.http.Timeout.String()
		if _, ok := ctx.Deadline(); ok {
			timeout = ""
		}
		return errors.NewTimeoutError(service, timeout, err.Error())
	case errors.Is(err, context.Canceled):
		return errors.Join(errors.ErrCanceled, err)
	}
	return &errors.APIError{Service: service, Message: "request failed", Err: err}
}
