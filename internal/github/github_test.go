package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushi-auxo/fivetran-mcp/internal/result"
	"github.com/rushi-auxo/fivetran-mcp/internal/upstream"
)

func newTestClient(t *testing.T, token string, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, token, nil)
}

func TestClient_AuthHeader(t *testing.T) {
	var gotAuth, gotAccept string
	c := newTestClient(t, "my-secret-token", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"login":"octocat"}`))
	})

	_, err := c.GetUser(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, "token my-secret-token", gotAuth)
	assert.Equal(t, "application/vnd.github.v3+json", gotAccept)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	var seen bool
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		_, seen = r.Header["Authorization"]
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"login":"octocat"}`))
	})

	_, err := c.GetUser(context.Background(), "octocat")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Empty(t, gotAuth)
}

func TestListPullRequests(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/pulls", r.URL.Path)
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		w.Write([]byte(`[
			{"number": 7, "title": "Add widget", "state": "open", "user": {"login": "alice", "id": 1}, "draft": false},
			{"number": 9, "title": "Fix bug", "state": "open", "user": {"login": "bob"}}
		]`))
	})

	prs, err := c.ListPullRequests(context.Background(), "acme", "widgets", "")
	require.NoError(t, err)
	assert.Equal(t, []PullRequestSummary{
		{Number: 7, Title: "Add widget", State: "open", User: "alice"},
		{Number: 9, Title: "Fix bug", State: "open", User: "bob"},
	}, prs)
}

func TestListPullRequests_UpstreamError(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
	})

	_, err := c.ListPullRequests(context.Background(), "acme", "missing", "closed")
	se, ok := upstream.AsStatus(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, `{"message":"Not Found"}`, se.Body)
}

func TestListPullRequests_BadState(t *testing.T) {
	called := false
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := c.ListPullRequests(context.Background(), "acme", "widgets", "merged")
	var re *result.Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, result.KindInvalid, re.Kind)
	assert.False(t, called)
}

func TestCreatePullRequest(t *testing.T) {
	var body map[string]string
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/widgets/pulls", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"number": 12, "html_url": "https://github.com/acme/widgets/pull/12"}`))
	})

	raw, err := c.CreatePullRequest(context.Background(), "acme", "widgets", PullRequest{
		Title: "Add widget", Head: "feature", Base: "main",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"number": 12, "html_url": "https://github.com/acme/widgets/pull/12"}`, string(raw))
	assert.Equal(t, map[string]string{"title": "Add widget", "head": "feature", "base": "main", "body": ""}, body)
}

func TestCreatePullRequest_Validation(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"Validation Failed"}`))
	})

	_, err := c.CreatePullRequest(context.Background(), "acme", "widgets", PullRequest{Title: "x", Head: "a", Base: "a"})
	r := result.Classify(err)
	assert.Equal(t, result.KindUpstream, r.Kind)
	assert.Equal(t, `{"message":"Validation Failed"}`, r.Message)
}

func TestCommentOnPullRequest(t *testing.T) {
	var body map[string]string
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/issues/7/comments", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 1}`))
	})

	_, err := c.CommentOnPullRequest(context.Background(), "acme", "widgets", 7, "LGTM")
	require.NoError(t, err)
	assert.Equal(t, "LGTM", body["body"])
}

func TestReviewPullRequest(t *testing.T) {
	var body map[string]string
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widgets/pulls/7/reviews", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"id": 80, "state": "COMMENTED"}`))
	})

	_, err := c.ReviewPullRequest(context.Background(), "acme", "widgets", 7, "Looks fine", "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"body": "Looks fine", "event": "COMMENT"}, body)
}

func TestReviewPullRequest_BadEventNoRequest(t *testing.T) {
	called := false
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := c.ReviewPullRequest(context.Background(), "acme", "widgets", 7, "x", "MERGE")
	assert.Equal(t, result.KindInvalid, result.Classify(err).Kind)
	assert.False(t, called)
}
