// Package fivetran wraps the two Fivetran connector endpoints the relay
// forwards to.
package fivetran

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rushi-auxo/fivetran-mcp/internal/config"
	"github.com/rushi-auxo/fivetran-mcp/internal/upstream"
)

// Client calls the Fivetran REST API with key/secret basic auth.
type Client struct {
	api *upstream.Client
}

// New builds a client from cfg.
func New(cfg config.Fivetran, lg *slog.Logger, opts ...upstream.Option) *Client {
	opts = append([]upstream.Option{
		upstream.WithBasicAuth(cfg.APIKey, cfg.APISecret),
		upstream.WithHeader("Content-Type", "application/json"),
		upstream.WithLogger(lg),
	}, opts...)
	return &Client{api: upstream.New("fivetran", cfg.BaseURL, opts...)}
}

// GetConnector returns the connector record for id.
func (c *Client) GetConnector(ctx context.Context, id string) (json.RawMessage, error) {
	raw, err := c.api.Raw(ctx, http.MethodGet, upstream.PathEscape("connectors", id), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fivetran: get connector %s: %w", id, err)
	}
	return raw, nil
}

// ForceSync triggers a sync of connector id, even if one is already running.
func (c *Client) ForceSync(ctx context.Context, id string) (json.RawMessage, error) {
	raw, err := c.api.Raw(ctx, http.MethodPost, upstream.PathEscape("connectors", id, "force"), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fivetran: force sync %s: %w", id, err)
	}
	return raw, nil
}
