package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_BasicAuth(t *testing.T) {
	var user, pass string
	var ok bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok = r.BasicAuth()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New("test", srv.URL, WithBasicAuth("me@acme.test", "tok"))
	_, err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "me@acme.test", user)
	assert.Equal(t, "tok", pass)
}

func TestClient_TokenHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New("test", srv.URL, WithToken("token", "abc"))
	_, err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "token abc", got)

	anon := New("test", srv.URL, WithToken("token", ""))
	_, err = anon.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClient_QueryAndBody(t *testing.T) {
	var gotQuery url.Values
	var gotBody map[string]string
	var gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotCT = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	c := New("test", srv.URL)
	var out struct {
		ID string `json:"id"`
	}
	err := c.DoJSON(context.Background(), http.MethodPost, "/things",
		url.Values{"limit": {"5"}}, map[string]string{"name": "x"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "5", gotQuery.Get("limit"))
	assert.Equal(t, "x", gotBody["name"])
	assert.Contains(t, gotCT, "application/json")
	assert.Equal(t, "1", out.ID)
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer srv.Close()

	c := New("github", srv.URL)
	_, err := c.Do(context.Background(), http.MethodGet, "/users/ghost", nil, nil)
	require.Error(t, err)

	se, ok := AsStatus(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, `{"message":"Not Found"}`, se.Body)
	assert.Equal(t, "github", se.Service)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestClient_StatusErrorBodyVerbatim(t *testing.T) {
	const body = "  {\"error\":\"bad request\"}\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := New("jira", srv.URL)
	_, err := c.Do(context.Background(), http.MethodPost, "/issue", nil, map[string]string{"k": "v"})
	se, ok := AsStatus(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, body, se.Body)
}

func TestClient_RawEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New("test", srv.URL)
	raw, err := c.Raw(context.Background(), http.MethodPost, "/x", nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `null`, string(raw))
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New("test", srv.URL)
	_, err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Error(t, err)
	_, ok := AsStatus(err)
	assert.False(t, ok)
}

func TestPathEscape(t *testing.T) {
	assert.Equal(t, "/repos/o/r%2Fx", PathEscape("repos", "o", "r/x"))
	assert.Equal(t, "/issue/ABC-1", PathEscape("issue", "ABC-1"))
}
