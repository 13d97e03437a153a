package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"samadhan/internal/config"
	"samadhan/internal/db"
	"samadhan/internal/engine"
	"samadhan/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("samadhan"))
	e.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v1",
		Auth: AuthConfig{
			JWTSecret:              "test-secret",
			AllowLegacyActorHeader: true,
			EnableDevLogin:         true,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

var actorHeaders = map[string]string{"X-Actor-Id": "tester"}

func submitBody(description string) map[string]any {
	return map[string]any{
		"title":          "Water trouble",
		"description":    description,
		"submitted_by":   "Rajesh Kumar",
		"contact_number": "9876543210",
		"location":       "Gomti Nagar, Lucknow",
	}
}

func TestSubmitAndFetchGrievance(t *testing.T) {
	ts := newTestServer(t)
	res, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/grievances",
		submitBody("urgent water leakage emergency in our colony"), actorHeaders)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d body = %s", res.StatusCode, data)
	}
	var created GrievanceResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Category != "water_supply" || created.Priority != "critical" {
		t.Fatalf("classification = %s/%s", created.Category, created.Priority)
	}
	if created.CategoryLabel != "Water Supply Department" {
		t.Fatalf("label = %q", created.CategoryLabel)
	}
	if created.Status != "open" {
		t.Fatalf("status = %s", created.Status)
	}

	res, data = doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v1/grievances/"+created.ID, nil, actorHeaders)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d body = %s", res.StatusCode, data)
	}
}

func TestSubmitValidationError(t *testing.T) {
	ts := newTestServer(t)
	body := submitBody("the pipe is broken")
	body["contact_number"] = "  "
	res, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/grievances", body, actorHeaders)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d body = %s", res.StatusCode, data)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != "validation_error" {
		t.Fatalf("code = %q body = %s", envelope.Error.Code, data)
	}
}

func TestInvalidStatusRejected(t *testing.T) {
	ts := newTestServer(t)
	_, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/grievances",
		submitBody("garbage is not collected"), actorHeaders)
	var created GrievanceResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	res, data := doJSON(t, ts.Client(), http.MethodPatch,
		ts.URL+"/v1/grievances/"+created.ID+"/status",
		map[string]any{"status": "archived"}, actorHeaders)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d body = %s", res.StatusCode, data)
	}

	// The record must be untouched.
	res, data = doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v1/grievances/"+created.ID, nil, actorHeaders)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", res.StatusCode)
	}
	var stored GrievanceResponse
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.Status != "open" {
		t.Fatalf("status = %s, want open", stored.Status)
	}
}

func TestUnauthorizedWithoutCredentials(t *testing.T) {
	ts := newTestServer(t)
	res, _ := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v1/grievances", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.StatusCode)
	}
	// Health stays open.
	res, _ = doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", res.StatusCode)
	}
}

func devToken(t *testing.T, ts *testServer, actor string, roles []string) string {
	t.Helper()
	res, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/auth/dev/login",
		map[string]any{"actor_id": actor, "roles": roles}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login status = %d body = %s", res.StatusCode, data)
	}
	var out DevLoginResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return out.Token
}

func TestJWTRoleGating(t *testing.T) {
	ts := newTestServer(t)
	citizen := devToken(t, ts, "citizen-1", nil)
	officer := devToken(t, ts, "officer-1", []string{RoleDepartmentOfficer})

	_, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/grievances",
		submitBody("power outage for days"), map[string]string{"Authorization": "Bearer " + citizen})
	var created GrievanceResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	res, _ := doJSON(t, ts.Client(), http.MethodPatch,
		ts.URL+"/v1/grievances/"+created.ID+"/status",
		map[string]any{"status": "processing"},
		map[string]string{"Authorization": "Bearer " + citizen})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("citizen status change = %d, want 403", res.StatusCode)
	}

	res, data = doJSON(t, ts.Client(), http.MethodPatch,
		ts.URL+"/v1/grievances/"+created.ID+"/status",
		map[string]any{"status": "processing"},
		map[string]string{"Authorization": "Bearer " + officer})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("officer status change = %d body = %s", res.StatusCode, data)
	}
}

func TestSuggestionsAndStats(t *testing.T) {
	ts := newTestServer(t)
	_, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/grievances",
		submitBody("urgent water leakage emergency"), actorHeaders)
	var created GrievanceResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	res, data := doJSON(t, ts.Client(), http.MethodGet,
		ts.URL+"/v1/grievances/"+created.ID+"/suggestions", nil, actorHeaders)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("suggestions status = %d", res.StatusCode)
	}
	var sugg SuggestionsResponse
	if err := json.Unmarshal(data, &sugg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sugg.Suggestions) == 0 {
		t.Fatalf("expected suggestions")
	}
	if sugg.Suggestions[0] != "This is a critical issue requiring immediate attention." {
		t.Fatalf("first suggestion = %q", sugg.Suggestions[0])
	}

	doJSON(t, ts.Client(), http.MethodPatch,
		ts.URL+"/v1/grievances/"+created.ID+"/status",
		map[string]any{"status": "resolved"}, actorHeaders)

	res, data = doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v1/stats", nil, actorHeaders)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %d", res.StatusCode)
	}
	var stats StatsResponse
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Overall.Total != 1 || stats.Overall.Resolved != 1 {
		t.Fatalf("overall = %+v", stats.Overall)
	}
	if len(stats.Departments) != 1 || stats.Departments[0].PercentResolved != 100 {
		t.Fatalf("departments = %+v", stats.Departments)
	}
}

func TestListPagination(t *testing.T) {
	ts := newTestServer(t)
	for _, desc := range []string{
		"no water supply for days",
		"tap water is muddy",
		"water tank overflowing",
	} {
		res, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v1/grievances",
			submitBody(desc), actorHeaders)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("submit %q: %d %s", desc, res.StatusCode, data)
		}
	}

	res, data := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v1/grievances?limit=2", nil, actorHeaders)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", res.StatusCode)
	}
	var page paginatedGrievances
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("page = %d items, cursor %q", len(page.Items), page.NextCursor)
	}

	res, data = doJSON(t, ts.Client(), http.MethodGet,
		ts.URL+"/v1/grievances?limit=2&cursor="+url.QueryEscape(page.NextCursor), nil, actorHeaders)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("second page status = %d body = %s", res.StatusCode, data)
	}
	var second paginatedGrievances
	if err := json.Unmarshal(data, &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(second.Items) != 1 || second.NextCursor != "" {
		t.Fatalf("second page = %d items, cursor %q", len(second.Items), second.NextCursor)
	}
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t)
	res, data := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v1/grievances/does-not-exist", nil, actorHeaders)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d body = %s", res.StatusCode, data)
	}
}
