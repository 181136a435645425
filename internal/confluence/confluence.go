// Package confluence wraps the Confluence Cloud REST API (content and space
// endpoints) with basic auth.
package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/rushi-auxo/fivetran-mcp/internal/config"
	"github.com/rushi-auxo/fivetran-mcp/internal/result"
	"github.com/rushi-auxo/fivetran-mcp/internal/summary"
	"github.com/rushi-auxo/fivetran-mcp/internal/upstream"
)

// DefaultSpaceLimit is the page size of ListSpaces when none is given.
const DefaultSpaceLimit = 10

// Body formats accepted by CreatePage.
const (
	FormatStorage  = "storage"
	FormatMarkdown = "markdown"
)

// ErrNoSpaceKey is returned by CreatePage when CONFLUENCE_SPACE_KEY is unset.
var ErrNoSpaceKey = configError("Missing CONFLUENCE_SPACE_KEY in environment variables")

type configError string

func (e configError) Error() string { return string(e) }
func (e configError) Kind() result.Kind { return result.KindConfig }
func (e configError) Options() []string { return nil }

// SpaceSummary is the reduced view of a space returned by ListSpaces.
type SpaceSummary struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Client talks to one Confluence site.
type Client struct {
	api        *upstream.Client
	spaceKey   string
	summarizer summary.Summarizer
	markdown   goldmark.Markdown
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithSummarizer replaces the default truncating summarizer.
func WithSummarizer(s summary.Summarizer) Option {
	return func(c *Client) { c.summarizer = s }
}

// WithClock sets the time source used for generated page titles.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New builds a client from cfg. Extra upstream options (timeout, logger) are
// passed through to the REST client.
func New(cfg config.Confluence, lg *slog.Logger, upOpts []upstream.Option, opts ...Option) *Client {
	upOpts = append([]upstream.Option{
		upstream.WithBasicAuth(cfg.User, cfg.Token),
		upstream.WithLogger(lg),
	}, upOpts...)
	c := &Client{
		api:        upstream.New("confluence", cfg.BaseURL, upOpts...),
		spaceKey:   cfg.SpaceKey,
		summarizer: summary.New(cfg.SummaryModel, lg),
		markdown:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SummarizePage fetches a page's storage body and returns
// "Summary of page <id>: <summary>".
func (c *Client) SummarizePage(ctx context.Context, pageID string) (string, error) {
	var page struct {
		Body struct {
			Storage struct {
				Value string `json:"value"`
			} `json:"storage"`
		} `json:"body"`
	}
	q := url.Values{"expand": {"body.storage"}}
	if err := c.api.DoJSON(ctx, http.MethodGet, upstream.PathEscape("rest", "api", "content", pageID), q, nil, &page); err != nil {
		return "", fmt.Errorf("confluence: summarize page: %w", err)
	}

	text, err := c.summarizer.Summarize(ctx, page.Body.Storage.Value)
	if err != nil {
		return "", fmt.Errorf("confluence: summarize page: %w", err)
	}
	return fmt.Sprintf("Summary of page %s: %s", pageID, text), nil
}

// CreatePage creates a page titled "Conversation - <timestamp>" in the
// configured space. body is stored verbatim, or rendered from markdown when
// format is FormatMarkdown. Without a space key no request is made.
func (c *Client) CreatePage(ctx context.Context, body, format string) (json.RawMessage, error) {
	if c.spaceKey == "" {
		return nil, ErrNoSpaceKey
	}

	value := body
	switch format {
	case "", FormatStorage:
	case FormatMarkdown:
		var buf bytes.Buffer
		if err := c.markdown.Convert([]byte(body), &buf); err != nil {
			return nil, fmt.Errorf("confluence: create page: render markdown: %w", err)
		}
		value = buf.String()
	default:
		return nil, result.Invalid("format must be %q or %q, got %q", FormatStorage, FormatMarkdown, format)
	}

	payload := map[string]any{
		"type":  "page",
		"title": "Conversation - " + c.now().Format("2006-01-02 15:04:05"),
		"space": map[string]string{"key": c.spaceKey},
		"body": map[string]any{
			"storage": map[string]string{
				"value":          value,
				"representation": "storage",
			},
		},
	}
	raw, err := c.api.Raw(ctx, http.MethodPost, "/rest/api/content", nil, payload)
	if err != nil {
		return nil, fmt.Errorf("confluence: create page: %w", err)
	}
	return raw, nil
}

// ListSpaces returns up to limit spaces as key/name pairs.
func (c *Client) ListSpaces(ctx context.Context, limit int) ([]SpaceSummary, error) {
	if limit <= 0 {
		limit = DefaultSpaceLimit
	}
	var resp struct {
		Results []SpaceSummary `json:"results"`
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.api.DoJSON(ctx, http.MethodGet, "/rest/api/space", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("confluence: list spaces: %w", err)
	}
	if resp.Results == nil {
		return []SpaceSummary{}, nil
	}
	return resp.Results, nil
}
