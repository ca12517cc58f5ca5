package portal

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/layersync/internal/transport"
	"github.com/agentstation/layersync/pkg/constants"
	"github.com/agentstation/layersync/pkg/errors"
)

// Client calls the portal's sharing REST API on behalf of a Session.
type Client struct {
	base         string // {portal}/sharing/rest
	session      *Session
	http         *transport.Client
	pollInterval time.Duration
	publishType  string
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient   *http.Client
	timeout      time.Duration
	pollInterval time.Duration
	publishType  string
	tokenHeader  bool
}

// WithTokenHeader sends the token in the X-Esri-Authorization header
// instead of the token query parameter.
func WithTokenHeader(enabled bool) Option {
	return func(o *clientOptions) { o.tokenHeader = enabled }
}

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithPollInterval sets how often overwrite job status is checked.
func WithPollInterval(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithPublishFileType sets the fileType sent when republishing. Defaults to csv.
func WithPublishFileType(t string) Option {
	return func(o *clientOptions) {
		if t != "" {
			o.publishType = t
		}
	}
}

// New creates a Client for portalURL (e.g. https://www.arcgis.com or
// https://gis.example.com/portal).
func New(portalURL string, creds Credentials, opts ...Option) (*Client, error) {
	portalURL = strings.TrimRight(portalURL, "/")
	if _, err := url.ParseRequestURI(portalURL); err != nil || portalURL == "" {
		return nil, errors.NewValidationError("portal_url", portalURL, "must be an absolute URL")
	}

	o := &clientOptions{
		timeout:      constants.DefaultHTTPTimeout,
		pollInterval: constants.DefaultPollInterval,
		publishType:  "csv",
	}
	for _, opt := range opts {
		opt(o)
	}

	topts := []transport.Option{
		transport.WithReferer(creds.Referer),
		transport.WithService(portalURL),
	}
	if o.httpClient != nil {
		topts = append(topts, transport.WithHTTPClient(o.httpClient))
	} else {
		topts = append(topts, transport.WithTimeout(o.timeout))
	}

	var auth transport.Authenticator = &transport.TokenAuth{}
	if o.tokenHeader {
		auth = transport.EsriAuth()
	}
	hc := transport.New(auth, topts...)
	session, err := NewSession(portalURL, creds, hc)
	if err != nil {
		return nil, err
	}
	return &Client{
		base:         portalURL + "/sharing/rest",
		session:      session,
		http:         hc,
		pollInterval: o.pollInterval,
		publishType:  o.publishType,
	}, nil
}

// Session returns the client's session.
func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, target any) error {
	token, err := c.session.Token(ctx)
	if err != nil {
		return err
	}
	req, err := transport.NewGetRequest(ctx, c.base+path, params)
	if err != nil {
		return err
	}
	return c.http.DoJSON(ctx, req, token, target)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, target any) error {
	token, err := c.session.Token(ctx)
	if err != nil {
		return err
	}
	req, err := transport.NewFormRequest(ctx, c.base+path, form)
	if err != nil {
		return err
	}
	return c.http.DoJSON(ctx, req, token, target)
}

func (c *Client) postFile(ctx context.Context, path string, fields url.Values, filePath string, target any) error {
	token, err := c.session.Token(ctx)
	if err != nil {
		return err
	}
	req, err := transport.NewMultipartRequest(ctx, c.base+path, fields, "file", filePath)
	if err != nil {
		return err
	}
	return c.http.DoJSON(ctx, req, token, target)
}
