// Package transport provides the HTTP client used to talk to the portal:
// pluggable authentication, common headers, and decoding of portal error
// responses into typed errors.
package transport

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentstation/layersync/pkg/constants"
	"github.com/agentstation/layersync/pkg/errors"
	"github.com/agentstation/layersync/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client provides HTTP client functionality with authentication.
type Client struct {
	http      *http.Client
	auth      Authenticator
	service   string
	referer   string
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithReferer sets the Referer header. Tokens issued for a referer are only
// accepted on requests that carry it.
func WithReferer(referer string) Option {
	return func(c *Client) {
		c.referer = referer
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithService names the remote service in errors.
func WithService(name string) Option {
	return func(c *Client) {
		c.service = name
	}
}

// New creates a new transport client with the specified authenticator.
func New(auth Authenticator, opts ...Option) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	c := &Client{
		http:      &http.Client{Timeout: DefaultHTTPTimeout},
		auth:      auth,
		service:   "portal",
		userAgent: "layersync",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Service returns the service name used in errors.
func (c *Client) Service() string {
	return c.service
}

// Do performs an HTTP request with the credential applied. Responses with a
// non-2xx status are consumed and returned as *errors.APIError.
func (c *Client) Do(ctx context.Context, req *http.Request, credential string) (*http.Response, error) {
	req = req.WithContext(ctx)
	c.auth.Apply(req, credential)

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}

	endpoint := redact(req)
	logging.FromContext(ctx).Debug().
		Str("method", req.Method).
		Str("endpoint", endpoint).
		Msg("Portal request")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &errors.TimeoutError{Operation: req.Method + " " + endpoint, Message: ctx.Err().Error()}
		}
		return nil, &errors.APIError{
			Service:  c.service,
			Endpoint: endpoint,
			Message:  "request failed",
			Err:      err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, constants.ErrorBodyLimit))
		apiErr := &errors.APIError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Message:    strings.TrimSpace(string(body)),
		}
		if env, ok := parseEnvelope(body); ok {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
			apiErr.Details = env.Details
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}
	return resp, nil
}

// DoJSON performs the request and decodes the JSON body into target.
func (c *Client) DoJSON(ctx context.Context, req *http.Request, credential string, target any) error {
	resp, err := c.Do(ctx, req, credential)
	if err != nil {
		return err
	}
	return DecodeResponse(c.service, resp, target)
}

// redact returns the request URL without query parameters that carry
// credentials.
func redact(req *http.Request) string {
	if req.URL == nil {
		return ""
	}
	u := *req.URL
	q := u.Query()
	for _, k := range []string{"token", "password"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
