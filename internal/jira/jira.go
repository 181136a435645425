// Package jira wraps the Jira Cloud REST API issue, search, comment,
// transition and assignee endpoints.
//
// Two payload variants exist. With the "adf" description format the client
// uses /rest/api/3 and sends descriptions and comments as Atlassian Document
// Format; with "plain" it uses /rest/api/2, which accepts plain strings.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rushi-auxo/fivetran-mcp/internal/config"
	"github.com/rushi-auxo/fivetran-mcp/internal/upstream"
)

// DefaultMaxResults bounds searches when the caller gives no limit.
const DefaultMaxResults = 10

// DefaultIssueType is used by CreateIssue when none is given.
const DefaultIssueType = "Task"

// IssueSummary is the reduced view returned by searches.
type IssueSummary struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
}

// Transition is one legal workflow edge for an issue.
type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TransitionOutcome reports a performed transition.
type TransitionOutcome struct {
	Success      bool   `json:"success"`
	Issue        string `json:"issue"`
	NewStatus    string `json:"new_status,omitempty"`
	TransitionID string `json:"transition_id,omitempty"`
}

// AssignOutcome reports a performed assignment.
type AssignOutcome struct {
	Success bool `json:"success"`
}

// Client calls one Jira site.
type Client struct {
	api    *upstream.Client
	format string
	prefix string
}

// New builds a client from cfg.
func New(cfg config.Jira, lg *slog.Logger, opts ...upstream.Option) *Client {
	opts = append([]upstream.Option{
		upstream.WithBasicAuth(cfg.Email, cfg.APIToken),
		upstream.WithLogger(lg),
	}, opts...)

	format := cfg.DescriptionFormat
	prefix := "/rest/api/3"
	if format == config.FormatPlain {
		prefix = "/rest/api/2"
	} else {
		format = config.FormatADF
	}
	return &Client{
		api:    upstream.New("jira", cfg.BaseURL, opts...),
		format: format,
		prefix: prefix,
	}
}

func (c *Client) path(segments ...string) string {
	return c.prefix + upstream.PathEscape(segments...)
}

// richText renders text for description and comment fields.
func (c *Client) richText(text string) any {
	if c.format == config.FormatPlain {
		return text
	}
	return toADF(text)
}

// CreateIssue creates an issue in project and returns Jira's response.
func (c *Client) CreateIssue(ctx context.Context, projectKey, summary, description, issueType string) (json.RawMessage, error) {
	if issueType == "" {
		issueType = DefaultIssueType
	}
	payload := map[string]any{
		"fields": map[string]any{
			"project":     map[string]string{"key": projectKey},
			"summary":     summary,
			"issuetype":   map[string]string{"name": issueType},
			"description": c.richText(description),
		},
	}
	raw, err := c.api.Raw(ctx, http.MethodPost, c.path("issue"), nil, payload)
	if err != nil {
		return nil, fmt.Errorf("jira: create issue: %w", err)
	}
	return raw, nil
}

// TextQuery builds the JQL used by SearchText.
func TextQuery(keyword string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(keyword)
	return fmt.Sprintf(`text ~ "%s" ORDER BY created DESC`, escaped)
}

// SearchText finds issues whose text matches keyword, newest first.
func (c *Client) SearchText(ctx context.Context, keyword string, maxResults int) ([]IssueSummary, error) {
	return c.SearchJQL(ctx, TextQuery(keyword), maxResults)
}

// SearchJQL runs a raw JQL query.
func (c *Client) SearchJQL(ctx context.Context, jql string, maxResults int) ([]IssueSummary, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	var resp struct {
		Issues []struct {
			Key    string `json:"key"`
			Fields struct {
				Summary string `json:"summary"`
				Status  struct {
					Name string `json:"name"`
				} `json:"status"`
			} `json:"fields"`
		} `json:"issues"`
	}
	q := url.Values{
		"jql":        {jql},
		"maxResults": {strconv.Itoa(maxResults)},
	}
	if err := c.api.DoJSON(ctx, http.MethodGet, c.path("search"), q, nil, &resp); err != nil {
		return nil, fmt.Errorf("jira: search: %w", err)
	}

	out := make([]IssueSummary, 0, len(resp.Issues))
	for _, i := range resp.Issues {
		out = append(out, IssueSummary{
			Key:     i.Key,
			Summary: i.Fields.Summary,
			Status:  i.Fields.Status.Name,
		})
	}
	return out, nil
}

// AddComment posts a comment on an issue.
func (c *Client) AddComment(ctx context.Context, issueKey, comment string) (json.RawMessage, error) {
	payload := map[string]any{"body": c.richText(comment)}
	raw, err := c.api.Raw(ctx, http.MethodPost, c.path("issue", issueKey, "comment"), nil, payload)
	if err != nil {
		return nil, fmt.Errorf("jira: add comment to %s: %w", issueKey, err)
	}
	return raw, nil
}

// ListTransitions returns the transitions currently legal for an issue.
func (c *Client) ListTransitions(ctx context.Context, issueKey string) ([]Transition, error) {
	var resp struct {
		Transitions []Transition `json:"transitions"`
	}
	if err := c.api.DoJSON(ctx, http.MethodGet, c.path("issue", issueKey, "transitions"), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("jira: failed to fetch transitions for %s: %w", issueKey, err)
	}
	if resp.Transitions == nil {
		return []Transition{}, nil
	}
	return resp.Transitions, nil
}

// TransitionByName moves an issue to the transition whose name equals
// status, ignoring case. It fetches the legal transitions first and issues
// no transition request when nothing matches. The two calls are not atomic;
// if the workflow changes in between, the second call's error is returned.
func (c *Client) TransitionByName(ctx context.Context, issueKey, status string) (*TransitionOutcome, error) {
	transitions, err := c.ListTransitions(ctx, issueKey)
	if err != nil {
		return nil, err
	}

	t, err := Match(transitions, status)
	if err != nil {
		return nil, err
	}

	if err := c.doTransition(ctx, issueKey, t.ID); err != nil {
		return nil, err
	}
	return &TransitionOutcome{Success: true, Issue: issueKey, NewStatus: status}, nil
}

// TransitionByID performs a transition without looking it up first.
func (c *Client) TransitionByID(ctx context.Context, issueKey, transitionID string) (*TransitionOutcome, error) {
	if err := c.doTransition(ctx, issueKey, transitionID); err != nil {
		return nil, err
	}
	return &TransitionOutcome{Success: true, Issue: issueKey, TransitionID: transitionID}, nil
}

func (c *Client) doTransition(ctx context.Context, issueKey, transitionID string) error {
	payload := map[string]any{"transition": map[string]string{"id": transitionID}}
	if _, err := c.api.Do(ctx, http.MethodPost, c.path("issue", issueKey, "transitions"), nil, payload); err != nil {
		return fmt.Errorf("jira: failed to transition %s: %w", issueKey, err)
	}
	return nil
}

// Assign sets the assignee of an issue by Atlassian account ID.
func (c *Client) Assign(ctx context.Context, issueKey, accountID string) (*AssignOutcome, error) {
	payload := map[string]string{"accountId": accountID}
	if _, err := c.api.Do(ctx, http.MethodPut, c.path("issue", issueKey, "assignee"), nil, payload); err != nil {
		return nil, fmt.Errorf("jira: assign %s: %w", issueKey, err)
	}
	return &AssignOutcome{Success: true}, nil
}

// GetIssue returns the full issue document.
func (c *Client) GetIssue(ctx context.Context, issueKey string) (json.RawMessage, error) {
	raw, err := c.api.Raw(ctx, http.MethodGet, c.path("issue", issueKey), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("jira: get issue %s: %w", issueKey, err)
	}
	return raw, nil
}
