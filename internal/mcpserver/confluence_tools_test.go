package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rushi-auxo/fivetran-mcp/internal/confluence"
	"github.com/rushi-auxo/fivetran-mcp/internal/github"
	"github.com/rushi-auxo/fivetran-mcp/internal/upstream"
)

// --- Mocks ---

type mockConfluence struct {
	summarizeCalled bool
	createCalled    bool
	listLimit       int

	summary    string
	summaryErr error
	page       json.RawMessage
	pageErr    error
	spaces     []confluence.SpaceSummary
	format     string
}

func (m *mockConfluence) SummarizePage(_ context.Context, _ string) (string, error) {
	m.summarizeCalled = true
	return m.summary, m.summaryErr
}

func (m *mockConfluence) CreatePage(_ context.Context, _ string, format string) (json.RawMessage, error) {
	m.createCalled = true
	m.format = format
	return m.page, m.pageErr
}

func (m *mockConfluence) ListSpaces(_ context.Context, limit int) ([]confluence.SpaceSummary, error) {
	m.listLimit = limit
	return m.spaces, nil
}

type mockGitHub struct {
	commentCalled bool
	reviewCalled  bool
	reviewEvent   string
	state         string
	pr            github.PullRequest

	prs     []github.PullRequestSummary
	raw     json.RawMessage
	err     error
	userErr error
}

func (m *mockGitHub) ListPullRequests(_ context.Context, _, _, state string) ([]github.PullRequestSummary, error) {
	m.state = state
	return m.prs, m.err
}

func (m *mockGitHub) CreatePullRequest(_ context.Context, _, _ string, pr github.PullRequest) (json.RawMessage, error) {
	m.pr = pr
	return m.raw, m.err
}

func (m *mockGitHub) CommentOnPullRequest(_ context.Context, _, _ string, _ int, _ string) (json.RawMessage, error) {
	m.commentCalled = true
	return m.raw, m.err
}

func (m *mockGitHub) ReviewPullRequest(_ context.Context, _, _ string, _ int, _, event string) (json.RawMessage, error) {
	m.reviewCalled = true
	m.reviewEvent = event
	return m.raw, m.err
}

func (m *mockGitHub) GetUser(_ context.Context, username string) (json.RawMessage, error) {
	if m.userErr != nil {
		return nil, m.userErr
	}
	return json.RawMessage(fmt.Sprintf(`{"login":%q}`, username)), nil
}

// --- Tests ---

func TestSummarizePage(t *testing.T) {
	conf := &mockConfluence{summary: "Summary of page 42: Runbook"}
	tools := &confluenceTools{conf: conf}

	result, err := tools.handleSummarizePage(context.Background(), makeToolRequest("summarize_page", map[string]any{
		"page_id": "42",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if got := resultText(t, result); got != "Summary of page 42: Runbook" {
		t.Errorf("text = %q", got)
	}
}

func TestSummarizePage_MissingID(t *testing.T) {
	conf := &mockConfluence{}
	tools := &confluenceTools{conf: conf}

	result, err := tools.handleSummarizePage(context.Background(), makeToolRequest("summarize_page", map[string]any{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := decodeError(t, result)
	if doc.Kind != "invalid" {
		t.Errorf("kind = %q, want invalid", doc.Kind)
	}
	if conf.summarizeCalled {
		t.Error("client should not be called without page_id")
	}
}

func TestSummarizePage_UpstreamError(t *testing.T) {
	conf := &mockConfluence{summaryErr: fmt.Errorf("confluence: get page 7: %w", &upstream.StatusError{
		Service:    "confluence",
		StatusCode: 404,
		Body:       `{"message":"No content found with id: 7"}`,
	})}
	tools := &confluenceTools{conf: conf}

	result, err := tools.handleSummarizePage(context.Background(), makeToolRequest("summarize_page", map[string]any{
		"page_id": "7",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := decodeError(t, result)
	if doc.Kind != "upstream" || doc.Status != 404 {
		t.Errorf("doc = %+v", doc)
	}
	if doc.Error != `{"message":"No content found with id: 7"}` {
		t.Errorf("error = %q", doc.Error)
	}
}

func TestCreatePage_NoSpaceKey(t *testing.T) {
	conf := &mockConfluence{pageErr: confluence.ErrNoSpaceKey}
	tools := &confluenceTools{conf: conf}

	result, err := tools.handleCreatePage(context.Background(), makeToolRequest("create_page", map[string]any{
		"body": "hello",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := decodeError(t, result)
	if doc.Kind != "config" {
		t.Errorf("kind = %q, want config", doc.Kind)
	}
	if !strings.Contains(doc.Error, "CONFLUENCE_SPACE_KEY") {
		t.Errorf("error = %q", doc.Error)
	}
}

func TestCreatePage_PassesFormat(t *testing.T) {
	conf := &mockConfluence{page: json.RawMessage(`{"id":"100","title":"Conversation"}`)}
	tools := &confluenceTools{conf: conf}

	result, err := tools.handleCreatePage(context.Background(), makeToolRequest("create_page", map[string]any{
		"body":   "# Notes",
		"format": "markdown",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if conf.format != "markdown" {
		t.Errorf("format = %q, want markdown", conf.format)
	}
	if got := resultText(t, result); got != `{"id":"100","title":"Conversation"}` {
		t.Errorf("text = %s", got)
	}
}

func TestNavigateSpaces_DefaultLimit(t *testing.T) {
	conf := &mockConfluence{spaces: []confluence.SpaceSummary{{Key: "ENG", Name: "Engineering"}}}
	tools := &confluenceTools{conf: conf}

	result, err := tools.handleNavigateSpaces(context.Background(), makeToolRequest("navigate_spaces", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.listLimit != confluence.DefaultSpaceLimit {
		t.Errorf("limit = %d, want %d", conf.listLimit, confluence.DefaultSpaceLimit)
	}
	if got := resultText(t, result); got != `[{"key":"ENG","name":"Engineering"}]` {
		t.Errorf("text = %s", got)
	}
}

func TestNavigateSpaces_Limit(t *testing.T) {
	conf := &mockConfluence{}
	tools := &confluenceTools{conf: conf}

	if _, err := tools.handleNavigateSpaces(context.Background(), makeToolRequest("navigate_spaces", map[string]any{
		"limit": float64(25),
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.listLimit != 25 {
		t.Errorf("limit = %d, want 25", conf.listLimit)
	}
}

func TestListPullRequests(t *testing.T) {
	gh := &mockGitHub{prs: []github.PullRequestSummary{{Number: 7, Title: "Fix sync", State: "open", User: "octocat"}}}
	tools := &confluenceTools{gh: gh}

	result, err := tools.handleListPullRequests(context.Background(), makeToolRequest("list_pull_requests", map[string]any{
		"owner": "acme",
		"repo":  "pipelines",
		"state": "closed",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gh.state != "closed" {
		t.Errorf("state = %q, want closed", gh.state)
	}

	var prs []github.PullRequestSummary
	if err := json.Unmarshal([]byte(resultText(t, result)), &prs); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(prs) != 1 || prs[0].Number != 7 || prs[0].User != "octocat" {
		t.Errorf("prs = %+v", prs)
	}
}

func TestCreatePullRequest_MissingArgs(t *testing.T) {
	gh := &mockGitHub{}
	tools := &confluenceTools{gh: gh}

	result, err := tools.handleCreatePullRequest(context.Background(), makeToolRequest("create_pull_request", map[string]any{
		"owner": "acme",
		"repo":  "pipelines",
		"title": "Add retries",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := decodeError(t, result)
	if doc.Error != "head, base required" {
		t.Errorf("error = %q", doc.Error)
	}
}

func TestCreatePullRequest(t *testing.T) {
	gh := &mockGitHub{raw: json.RawMessage(`{"number":12}`)}
	tools := &confluenceTools{gh: gh}

	result, err := tools.handleCreatePullRequest(context.Background(), makeToolRequest("create_pull_request", map[string]any{
		"owner": "acme",
		"repo":  "pipelines",
		"title": "Add retries",
		"head":  "feature/retries",
		"base":  "main",
		"body":  "Closes #3",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := github.PullRequest{Title: "Add retries", Head: "feature/retries", Base: "main", Body: "Closes #3"}
	if gh.pr != want {
		t.Errorf("pr = %+v, want %+v", gh.pr, want)
	}
	if got := resultText(t, result); got != `{"number":12}` {
		t.Errorf("text = %s", got)
	}
}

func TestCommentOnPullRequest_InvalidNumber(t *testing.T) {
	gh := &mockGitHub{}
	tools := &confluenceTools{gh: gh}

	result, err := tools.handleCommentOnPullRequest(context.Background(), makeToolRequest("comment_on_pull_request", map[string]any{
		"owner":     "acme",
		"repo":      "pipelines",
		"pr_number": float64(0),
		"body":      "LGTM",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := decodeError(t, result)
	if !strings.Contains(doc.Error, "pr_number") {
		t.Errorf("error = %q", doc.Error)
	}
	if gh.commentCalled {
		t.Error("client should not be called with an invalid pr_number")
	}
}

func TestReviewPullRequest(t *testing.T) {
	gh := &mockGitHub{raw: json.RawMessage(`{"id":1,"state":"APPROVED"}`)}
	tools := &confluenceTools{gh: gh}

	result, err := tools.handleReviewPullRequest(context.Background(), makeToolRequest("review_pull_request", map[string]any{
		"owner":     "acme",
		"repo":      "pipelines",
		"pr_number": float64(12),
		"body":      "Ship it",
		"event":     "APPROVE",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if !gh.reviewCalled || gh.reviewEvent != "APPROVE" {
		t.Errorf("review called=%v event=%q", gh.reviewCalled, gh.reviewEvent)
	}
}

func TestReadUserProfile(t *testing.T) {
	tools := &confluenceTools{gh: &mockGitHub{}}

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "github://octocat"

	contents, err := tools.readUserProfile(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content is %T", contents[0])
	}
	if tc.URI != "github://octocat" || tc.Text != `{"login":"octocat"}` {
		t.Errorf("content = %+v", tc)
	}
}

func TestReadUserProfile_Error(t *testing.T) {
	tools := &confluenceTools{gh: &mockGitHub{userErr: &upstream.StatusError{StatusCode: 404, Body: `{"message":"Not Found"}`}}}

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "github://ghost"
	req.Params.Arguments = map[string]any{"username": "ghost"}

	contents, err := tools.readUserProfile(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	var doc errorDoc
	if err := json.Unmarshal([]byte(tc.Text), &doc); err != nil {
		t.Fatalf("content is not JSON: %v", err)
	}
	if doc.Status != 404 || doc.Error != `{"message":"Not Found"}` {
		t.Errorf("doc = %+v", doc)
	}
}

func TestNewConfluence_Tools(t *testing.T) {
	s := NewConfluence(ConfluenceDeps{Confluence: &mockConfluence{}, GitHub: &mockGitHub{}})
	want := []string{
		"summarize_page", "create_page", "navigate_spaces",
		"list_pull_requests", "create_pull_request", "comment_on_pull_request", "review_pull_request",
	}
	if got := s.Tools(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("tools = %v, want %v", got, want)
	}
}
