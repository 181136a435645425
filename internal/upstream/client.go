// Package upstream is the REST client every SaaS wrapper forwards through.
// It attaches the static credential, issues exactly one request per call and
// turns non-2xx answers into *StatusError values carrying the raw body.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client wraps a resty client bound to one upstream service.
type Client struct {
	service string
	rc      *resty.Client
	logger  *slog.Logger
	secrets *Redactor
}

// Option configures a Client.
type Option func(*Client)

// WithBasicAuth sets HTTP basic credentials on every request.
func WithBasicAuth(user, password string) Option {
	return func(c *Client) {
		c.rc.SetBasicAuth(user, password)
		c.secrets.Add(c.secretName(), password)
	}
}

// WithToken sets "Authorization: <scheme> <token>". An empty token leaves
// the header off so the upstream sees an anonymous caller.
func WithToken(scheme, token string) Option {
	return func(c *Client) {
		if token == "" {
			return
		}
		c.rc.SetAuthScheme(scheme)
		c.rc.SetAuthToken(token)
		c.secrets.Add(c.secretName(), token)
	}
}

// WithHeader sets a static header on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.rc.SetHeader(key, value) }
}

// WithTimeout bounds each request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.rc.SetTimeout(d)
		}
	}
}

// WithLogger sets the logger used for per-request debug lines.
func WithLogger(lg *slog.Logger) Option {
	return func(c *Client) {
		if lg != nil {
			c.logger = lg
		}
	}
}

// New creates a client for service rooted at baseURL.
func New(service, baseURL string, opts ...Option) *Client {
	c := &Client{
		service: service,
		rc: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Accept", "application/json"),
		logger:  slog.Default(),
		secrets: NewRedactor(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Service returns the upstream name used in errors and logs.
func (c *Client) Service() string { return c.service }

func (c *Client) secretName() string {
	return strings.ToUpper(c.service) + "_CREDENTIAL"
}

// Do sends one request and returns the raw response body. If body is non-nil
// it is sent as JSON. A non-2xx status yields a *StatusError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	req := c.rc.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		err = c.secrets.RedactError(err)
		c.logger.DebugContext(ctx, "upstream request failed", "service", c.service, "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%s: %s %s: %w", c.service, method, path, err)
	}
	c.logger.DebugContext(ctx, "upstream request",
		"service", c.service,
		"method", method,
		"path", path,
		"status", resp.StatusCode(),
		"duration", time.Since(start),
	)

	if !resp.IsSuccess() {
		return nil, &StatusError{
			Service:    c.service,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode(),
			Body:       string(resp.Body()),
		}
	}
	return resp.Body(), nil
}

// DoJSON is Do followed by unmarshalling the body into out when both are
// non-empty.
func (c *Client) DoJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	data, err := c.Do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s: %s %s: unmarshal response: %w", c.service, method, path, err)
		}
	}
	return nil
}

// Raw is Do returning the body as a json.RawMessage. An empty body becomes
// JSON null so callers can always embed the result.
func (c *Client) Raw(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	data, err := c.Do(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s: %s %s: response is not JSON", c.service, method, path)
	}
	return json.RawMessage(data), nil
}

// PathEscape joins escaped path segments onto a leading slash.
func PathEscape(segments ...string) string {
	var p string
	for _, s := range segments {
		p += "/" + url.PathEscape(s)
	}
	return p
}
