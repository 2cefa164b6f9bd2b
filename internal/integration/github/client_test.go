package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/colonyops/evolve/internal/core/evolution"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
	Auth   string
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func newFakeAPI(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*fakeAPI, *Client) {
	t.Helper()
	api := &fakeAPI{handler: handler}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client := New(Config{
		BaseURL: srv.URL,
		Token:   "ghp_test",
		Repo:    "octo/agent",
		Timeout: 5 * time.Second,
	}, zerolog.Nop())
	t.Cleanup(client.http.CloseIdleConnections)

	return api, client
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
	}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &rec.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	if f.handler != nil {
		f.handler(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func TestListTasks(t *testing.T) {
	api, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `[
			{"number": 42, "title": "Add logging", "html_url": "https://github.com/octo/agent/issues/42",
			 "labels": [{"name": "agent-task"}, {"name": "agent-failed"}]},
			{"number": 43, "title": "a PR", "labels": [], "pull_request": {}}
		]`)
	})

	tasks, err := client.ListTasks(context.Background(), "agent-task")
	require.NoError(t, err)

	require.Len(t, tasks, 1)
	assert.Equal(t, 42, tasks[0].Number)
	assert.Equal(t, "Add logging", tasks[0].Title)
	assert.True(t, tasks[0].HasLabel("agent-failed"))
	assert.True(t, tasks[0].HasLabel("agent-task"))

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/repos/octo/agent/issues", req.Path)
	assert.Contains(t, req.Query, "labels=agent-task")
	assert.Contains(t, req.Query, "state=open")
	assert.Equal(t, "Bearer ghp_test", req.Auth)
}

func TestListTasks_Paginates(t *testing.T) {
	api, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			issues := make([]map[string]any, perPage)
			for i := range issues {
				issues[i] = map[string]any{"number": i + 1, "title": "t"}
			}
			_ = json.NewEncoder(w).Encode(issues)
			return
		}
		_, _ = fmt.Fprint(w, `[{"number": 500, "title": "last"}]`)
	})

	tasks, err := client.ListTasks(context.Background(), "agent-task")
	require.NoError(t, err)
	assert.Len(t, tasks, perPage+1)
	assert.Len(t, api.requests, 2)
}

func TestListTasks_WarnsAtPageCap(t *testing.T) {
	api, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		issues := make([]map[string]any, perPage)
		for i := range issues {
			issues[i] = map[string]any{"number": (page-1)*perPage + i + 1, "title": "t"}
		}
		_ = json.NewEncoder(w).Encode(issues)
	})

	var logs bytes.Buffer
	client.log = zerolog.New(&logs)

	tasks, err := client.ListTasks(context.Background(), "agent-task")
	require.NoError(t, err)
	assert.Len(t, tasks, perPage*maxPages)
	assert.Len(t, api.requests, maxPages)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), "page cap")
}

func TestLabelsCommentsAndClose(t *testing.T) {
	api, client := newFakeAPI(t, nil)
	ctx := context.Background()

	require.NoError(t, client.AddLabel(ctx, 7, "agent-failed"))
	require.NoError(t, client.RemoveLabel(ctx, 7, "agent retry"))
	require.NoError(t, client.Comment(ctx, 7, "hello"))
	require.NoError(t, client.Close(ctx, 7))

	require.Len(t, api.requests, 4)

	assert.Equal(t, http.MethodPost, api.requests[0].Method)
	assert.Equal(t, "/repos/octo/agent/issues/7/labels", api.requests[0].Path)
	assert.Equal(t, []any{"agent-failed"}, api.requests[0].Body["labels"])

	assert.Equal(t, http.MethodDelete, api.requests[1].Method)
	assert.Equal(t, "/repos/octo/agent/issues/7/labels/agent retry", api.requests[1].Path)

	assert.Equal(t, "/repos/octo/agent/issues/7/comments", api.requests[2].Path)
	assert.Equal(t, "hello", api.requests[2].Body["body"])

	assert.Equal(t, http.MethodPatch, api.requests[3].Method)
	assert.Equal(t, "/repos/octo/agent/issues/7", api.requests[3].Path)
	assert.Equal(t, "closed", api.requests[3].Body["state"])
}

func TestRemoveLabel_NotFoundIsSuccess(t *testing.T) {
	_, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprint(w, `{"message": "Label does not exist"}`)
	})

	require.NoError(t, client.RemoveLabel(context.Background(), 7, "agent-failed"))
}

func TestOpenPullRequest(t *testing.T) {
	api, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprint(w, `{"number": 9, "html_url": "https://github.com/octo/agent/pull/9"}`)
	})

	pr, err := client.OpenPullRequest(context.Background(), evolution.PullRequestSpec{
		Title: "Agent Evolution v1: Add logging",
		Body:  "body",
		Head:  "evolution-v1",
		Base:  "main",
	})
	require.NoError(t, err)
	assert.Equal(t, 9, pr.Number)
	assert.Equal(t, "https://github.com/octo/agent/pull/9", pr.URL)

	req := api.requests[0]
	assert.Equal(t, "/repos/octo/agent/pulls", req.Path)
	assert.Equal(t, "evolution-v1", req.Body["head"])
	assert.Equal(t, "main", req.Body["base"])
}

func TestAPIError(t *testing.T) {
	_, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = fmt.Fprint(w, `{"message": "A pull request already exists"}`)
	})

	_, err := client.OpenPullRequest(context.Background(), evolution.PullRequestSpec{Head: "b", Base: "main"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "A pull request already exists")
	assert.False(t, IsNotFound(err))
}
