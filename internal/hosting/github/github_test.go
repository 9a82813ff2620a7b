package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
)

type fakeAPI struct {
	t      *testing.T
	srv    *httptest.Server
	mux    *http.ServeMux
	mu     sync.Mutex
	bodies map[string][]byte
	auth   []string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	api := &fakeAPI{t: t, mux: http.NewServeMux(), bodies: map[string][]byte{}}
	api.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.auth = append(api.auth, r.Header.Get("Authorization"))
		if r.Body != nil {
			b, _ := io.ReadAll(r.Body)
			api.bodies[r.Method+" "+r.URL.Path] = b
		}
		api.mu.Unlock()
		api.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(api.srv.Close)
	return api
}

func (a *fakeAPI) handle(pattern string, fn http.HandlerFunc) { a.mux.HandleFunc(pattern, fn) }

func (a *fakeAPI) body(key string) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bodies[key]
}

func (a *fakeAPI) client(t *testing.T) *Client {
	c, err := New(Config{Owner: "acme", Repo: "app", Token: "tok", BaseURL: a.srv.URL})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchIssuesPaginatesAndSkipsPullRequests(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("GET /api/v3/repos/acme/app/issues", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		assert.Equal(t, "created", r.URL.Query().Get("sort"))
		assert.Equal(t, "asc", r.URL.Query().Get("direction"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, 200, []map[string]any{{"number": 3, "title": "three"}})
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/api/v3/repos/acme/app/issues?page=2>; rel="next"`, api.srv.URL))
		writeJSON(w, 200, []map[string]any{
			{"number": 1, "title": "one"},
			{"number": 2, "title": "a pr", "pull_request": map[string]any{"url": "x"}},
		})
	})

	recs, err := api.client(t).Fetch(context.Background(), backup.TypeIssues, nil)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[0].OriginalID)
	assert.Equal(t, "3", recs[1].OriginalID)
	assert.Equal(t, "three", gjson.GetBytes(recs[1].Payload, "title").String())
	assert.Contains(t, api.auth, "Bearer tok")
}

func TestFetchCommentsHonoursScope(t *testing.T) {
	api := newFakeAPI(t)
	var mu sync.Mutex
	var seen []string
	api.handle("GET /api/v3/repos/acme/app/issues/{n}/comments", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.PathValue("n"))
		mu.Unlock()
		writeJSON(w, 200, []map[string]any{{
			"id":        100,
			"body":      "hi",
			"issue_url": api.srv.URL + "/api/v3/repos/acme/app/issues/" + r.PathValue("n"),
		}})
	})

	recs, err := api.client(t).Fetch(context.Background(), backup.TypeIssueComments, &backup.Scope{ParentType: backup.TypeIssues, ParentIDs: []string{"5", "7"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "7"}, seen)
	require.Len(t, recs, 2)
	d, _ := backup.DefaultRegistry().Lookup(backup.TypeIssueComments)
	ref, ok := d.Parent.Extract(recs[1].Payload)
	require.True(t, ok)
	assert.Equal(t, "7", ref)
}

func TestFetchSubIssues(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("GET /api/v3/repos/acme/app/issues/5/sub_issues", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, []map[string]any{{"id": 9008, "number": 8}})
	})
	recs, err := api.client(t).Fetch(context.Background(), backup.TypeSubIssues, &backup.Scope{ParentType: backup.TypeIssues, ParentIDs: []string{"5"}})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "5:8", recs[0].OriginalID)
	assert.Equal(t, int64(5), gjson.GetBytes(recs[0].Payload, "parent_issue_number").Int())
	assert.Equal(t, int64(8), gjson.GetBytes(recs[0].Payload, "sub_issue.number").Int())
}

func TestExistingKeys(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("GET /api/v3/repos/acme/app/labels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, []map[string]any{{"name": "bug"}, {"name": "docs"}})
	})
	api.handle("GET /api/v3/repos/acme/app/milestones", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		writeJSON(w, 200, []map[string]any{{"number": 4, "title": "v2"}, {"number": 2, "title": "v1"}})
	})
	c := api.client(t)

	labels, err := c.ExistingKeys(context.Background(), backup.TypeLabels)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"bug": "bug", "docs": "docs"}, labels)

	ms, err := c.ExistingKeys(context.Background(), backup.TypeMilestones)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"v1": "2", "v2": "4"}, ms)
}

func TestCreateIssueUsesRestoredLabelsAndMilestone(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("POST /api/v3/repos/acme/app/labels", func(w http.ResponseWriter, r *http.Request) {
		var l map[string]any
		require.NoError(t, json.Unmarshal(api.body("POST /api/v3/repos/acme/app/labels"), &l))
		writeJSON(w, 201, l)
	})
	api.handle("POST /api/v3/repos/acme/app/issues", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 201, map[string]any{"number": 41})
	})
	api.handle("PATCH /api/v3/repos/acme/app/issues/41", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"number": 41, "state": "closed"})
	})
	c := api.client(t)
	ctx := context.Background()

	id, err := c.Create(ctx, backup.CreateRequest{
		Type:   backup.TypeLabels,
		Record: backup.Record{OriginalID: "bug", Payload: json.RawMessage(`{"name":"bug (restored bug)","color":"ff0000"}`)},
	})
	require.NoError(t, err)
	assert.Equal(t, "bug (restored bug)", id)

	id, err = c.Create(ctx, backup.CreateRequest{
		Type: backup.TypeIssues,
		Record: backup.Record{OriginalID: "5", Payload: json.RawMessage(
			`{"number":5,"title":"t","state":"closed","labels":[{"name":"bug"}],"milestone":{"number":3}}`)},
		Links: map[string]string{"milestone.number": "12"},
	})
	require.NoError(t, err)
	assert.Equal(t, "41", id)

	sent := api.body("POST /api/v3/repos/acme/app/issues")
	assert.Equal(t, "bug (restored bug)", gjson.GetBytes(sent, "labels.0").String())
	assert.Equal(t, int64(12), gjson.GetBytes(sent, "milestone").Int())
	assert.Equal(t, "closed", gjson.GetBytes(api.body("PATCH /api/v3/repos/acme/app/issues/41"), "state").String())
}

func TestCreateSubIssuePostsDatabaseID(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("GET /api/v3/repos/acme/app/issues/42", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"number": 42, "id": 777})
	})
	api.handle("POST /api/v3/repos/acme/app/issues/40/sub_issues", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 201, map[string]any{"number": 40})
	})
	id, err := api.client(t).Create(context.Background(), backup.CreateRequest{
		Type:   backup.TypeSubIssues,
		Record: backup.Record{OriginalID: "5:8", Payload: json.RawMessage(`{"parent_issue_number":5,"sub_issue":{"number":8}}`)},
		Parent: "40",
		Links:  map[string]string{"sub_issue.number": "42"},
	})
	require.NoError(t, err)
	assert.Equal(t, "40:42", id)
	assert.Equal(t, int64(777), gjson.GetBytes(api.body("POST /api/v3/repos/acme/app/issues/40/sub_issues"), "sub_issue_id").Int())
}

func TestCreateReportsAPIErrors(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("POST /api/v3/repos/acme/app/milestones", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 422, map[string]any{"message": "Validation Failed"})
	})
	_, err := api.client(t).Create(context.Background(), backup.CreateRequest{
		Type:   backup.TypeMilestones,
		Record: backup.Record{OriginalID: "1", Payload: json.RawMessage(`{"title":"v1"}`)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create milestone")
}

func TestUpdateUnsupportedTypes(t *testing.T) {
	api := newFakeAPI(t)
	err := api.client(t).Update(context.Background(), "1", backup.CreateRequest{Type: backup.TypeIssueComments})
	assert.True(t, errors.Is(err, backup.ErrUpdateUnsupported))
}

func TestResolveToken(t *testing.T) {
	// t.Setenv modifies the process environment, so no t.Parallel.
	ctx := context.Background()
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("MY_GH_TOKEN", "")

	vault := func(context.Context) (string, error) { return "from-vault", nil }
	empty := func(context.Context) (string, error) { return "", nil }

	got, err := ResolveToken(ctx, "", vault)
	require.NoError(t, err)
	assert.Equal(t, "from-vault", got)

	_, err = ResolveToken(ctx, "MY_GH_TOKEN", empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MY_GH_TOKEN")

	t.Setenv("MY_GH_TOKEN", "custom")
	got, err = ResolveToken(ctx, "MY_GH_TOKEN", vault)
	require.NoError(t, err)
	assert.Equal(t, "custom", got)
}
