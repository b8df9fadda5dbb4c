// Package dispatch is the single HTTP client every API call goes through.
//
// REQUEST PIPELINE:
//
//	Do → RequestID → LogRequests → auth.Transport → http.Transport → server
//
// The base endpoint is fixed at construction. Bodies are JSON. A non-2xx
// response comes back as *apperror.HTTPError; a request that produced no
// response comes back wrapped with apperror.ErrTransport. Nothing is retried
// and a 401 is returned like any other status.
package dispatch

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

	"github.com/sakif/feedclient/internal/apperror"
	"github.com/sakif/feedclient/internal/auth"
	"github.com/sakif/feedclient/internal/middleware"
)

// maxBody caps how much of a response body is read.
const maxBody = 4 << 20

// Client sends JSON requests to one API endpoint.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
}

type options struct {
	base   http.RoundTripper
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithBaseTransport replaces http.DefaultTransport at the bottom of the
// pipeline. Tests pass an httptest server's transport here.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// WithLogger sets the logger for request logging and stamping warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New builds a Client for baseURL that stamps identities from source the
// way mode prescribes.
//
// No client timeout is set; callers bound a request through its context.
func New(baseURL string, mode auth.Mode, source auth.IdentitySource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("dispatch: parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("dispatch: base URL %q must be http or https", baseURL)
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	stamp := func(next http.RoundTripper) http.RoundTripper {
		return auth.Attach(next, mode, source, o.logger)
	}
	transport := middleware.Chain(o.base,
		middleware.RequestID,
		middleware.LogRequests(o.logger),
		stamp,
	)

	return &Client{
		baseURL: u,
		http:    &http.Client{Transport: transport},
		logger:  o.logger,
	}, nil
}

// BaseURL returns the endpoint the client talks to.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Do sends one request and decodes the JSON response into out.
//
// path is joined onto the base URL; query may be nil; body, when non-nil,
// is encoded as JSON; out may be nil to discard the response body.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("dispatch: encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("dispatch: building %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.Transport(method+" "+path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return apperror.Transport(method+" "+path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("dispatch: decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// Get is Do without a body.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post is Do with POST.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put is Do with PUT.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Delete is Do with DELETE and no body.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}
