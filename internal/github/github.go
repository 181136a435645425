// Package github wraps the GitHub REST API pull-request and user endpoints.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rushi-auxo/fivetran-mcp/internal/result"
	"github.com/rushi-auxo/fivetran-mcp/internal/upstream"
)

// Pull request list states.
var States = []string{"open", "closed", "all"}

// Review events accepted by ReviewPullRequest.
var ReviewEvents = []string{"COMMENT", "APPROVE", "REQUEST_CHANGES"}

// PullRequestSummary is the reduced view returned by ListPullRequests.
type PullRequestSummary struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	User   string `json:"user"`
}

// PullRequest holds the fields needed to open a pull request.
type PullRequest struct {
	Title string `json:"title"`
	Head  string `json:"head"` // branch with the changes
	Base  string `json:"base"` // branch to merge into
	Body  string `json:"body"`
}

// Client calls the GitHub REST API. An empty token sends anonymous requests.
type Client struct {
	api *upstream.Client
}

// New creates a client for baseURL (normally https://api.github.com).
func New(baseURL, token string, lg *slog.Logger, opts ...upstream.Option) *Client {
	opts = append([]upstream.Option{
		upstream.WithToken("token", token),
		upstream.WithHeader("Accept", "application/vnd.github.v3+json"),
		upstream.WithLogger(lg),
	}, opts...)
	return &Client{api: upstream.New("github", baseURL, opts...)}
}

// ListPullRequests lists pull requests in state (default "open").
func (c *Client) ListPullRequests(ctx context.Context, owner, repo, state string) ([]PullRequestSummary, error) {
	if state == "" {
		state = "open"
	}
	if !contains(States, state) {
		return nil, result.Invalid("state must be one of %v, got %q", States, state)
	}

	var prs []struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		State  string `json:"state"`
		User   struct {
			Login string `json:"login"`
		} `json:"user"`
	}
	q := url.Values{"state": {state}}
	if err := c.api.DoJSON(ctx, http.MethodGet, upstream.PathEscape("repos", owner, repo, "pulls"), q, nil, &prs); err != nil {
		return nil, fmt.Errorf("github: list pull requests: %w", err)
	}

	out := make([]PullRequestSummary, 0, len(prs))
	for _, pr := range prs {
		out = append(out, PullRequestSummary{
			Number: pr.Number,
			Title:  pr.Title,
			State:  pr.State,
			User:   pr.User.Login,
		})
	}
	return out, nil
}

// CreatePullRequest opens a pull request and returns GitHub's response.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo string, pr PullRequest) (json.RawMessage, error) {
	raw, err := c.api.Raw(ctx, http.MethodPost, upstream.PathEscape("repos", owner, repo, "pulls"), nil, pr)
	if err != nil {
		return nil, fmt.Errorf("github: create pull request: %w", err)
	}
	return raw, nil
}

// CommentOnPullRequest adds a conversation comment. Pull requests share the
// issue comment endpoint.
func (c *Client) CommentOnPullRequest(ctx context.Context, owner, repo string, number int, body string) (json.RawMessage, error) {
	path := upstream.PathEscape("repos", owner, repo, "issues", strconv.Itoa(number), "comments")
	raw, err := c.api.Raw(ctx, http.MethodPost, path, nil, map[string]string{"body": body})
	if err != nil {
		return nil, fmt.Errorf("github: comment on pull request #%d: %w", number, err)
	}
	return raw, nil
}

// ReviewPullRequest submits a review. event defaults to COMMENT.
func (c *Client) ReviewPullRequest(ctx context.Context, owner, repo string, number int, body, event string) (json.RawMessage, error) {
	if event == "" {
		event = "COMMENT"
	}
	if !contains(ReviewEvents, event) {
		return nil, result.Invalid("event must be one of %v, got %q", ReviewEvents, event)
	}

	path := upstream.PathEscape("repos", owner, repo, "pulls", strconv.Itoa(number), "reviews")
	raw, err := c.api.Raw(ctx, http.MethodPost, path, nil, map[string]string{"body": body, "event": event})
	if err != nil {
		return nil, fmt.Errorf("github: review pull request #%d: %w", number, err)
	}
	return raw, nil
}

// GetUser returns a user's public profile.
func (c *Client) GetUser(ctx context.Context, username string) (json.RawMessage, error) {
	raw, err := c.api.Raw(ctx, http.MethodGet, upstream.PathEscape("users", username), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("github: get user %s: %w", username, err)
	}
	return raw, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
