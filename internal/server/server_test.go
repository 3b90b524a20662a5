package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/devscout/pkg/candidate"
	"github.com/matzehuels/devscout/pkg/discovery"
	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/integrations"
	"github.com/matzehuels/devscout/pkg/rank"
	"github.com/matzehuels/devscout/pkg/registry"
	"github.com/matzehuels/devscout/pkg/store"
)

type fakeSource struct {
	mu    sync.Mutex
	n     int
	err   error
	block chan struct{}
	calls int
}

func (f *fakeSource) Name() candidate.Provenance { return candidate.ProvenanceNPM }

func (f *fakeSource) Fetch(ctx context.Context, _ []string, size, offset int, _ rank.Weights) ([]candidate.Record, error) {
	f.mu.Lock()
	f.calls++
	err, block := f.err, f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	var recs []candidate.Record
	for i := offset; i < min(offset+size, f.n); i++ {
		recs = append(recs, candidate.Record{
			Name:      fmt.Sprintf("pkg%d", i),
			Publisher: &candidate.Person{Username: fmt.Sprintf("dev%d", i)},
			Score:     candidate.Score{Quality: 0.5, Popularity: 0.2},
		})
	}
	return recs, nil
}

func (f *fakeSource) started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls > 0
}

func newTestServer(t *testing.T, src *fakeSource) (*httptest.Server, *Server) {
	t.Helper()
	s := New(Config{
		Sources: registry.Sources{candidate.ProvenanceNPM: src},
		Store:   store.NewMemoryStore(),
		Search:  discovery.Options{PageSize: 10},
		Logger:  log.New(io.Discard),
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, s
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func createSession(t *testing.T, base string) string {
	t.Helper()
	resp := do(t, http.MethodPost, base+"/api/v1/sessions", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session status = %d", resp.StatusCode)
	}
	id := decode[sessionCreated](t, resp).ID
	if id == "" {
		t.Fatal("empty session id")
	}
	return id
}

func TestSearchAndLoadMore(t *testing.T) {
	ts, _ := newTestServer(t, &fakeSource{n: 25})
	id := createSession(t, ts.URL)
	base := ts.URL + "/api/v1/sessions/" + id

	resp := do(t, http.MethodPost, base+"/search", `{"query":"react","registry":"npm","mode":"quality"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d", resp.StatusCode)
	}
	st := decode[discovery.State](t, resp)
	if st.Query != "react" || st.Mode != rank.ModeQuality || len(st.Results) != 10 || !st.HasMore {
		t.Fatalf("search state = %+v", st)
	}

	resp = do(t, http.MethodPost, base+"/more", "")
	st = decode[discovery.State](t, resp)
	if len(st.Results) != 20 || st.Offset != 10 {
		t.Fatalf("after more: results=%d offset=%d", len(st.Results), st.Offset)
	}

	resp = do(t, http.MethodGet, base, "")
	if got := decode[discovery.State](t, resp); len(got.Results) != 20 {
		t.Errorf("GET snapshot results = %d", len(got.Results))
	}
}

func TestSearchValidation(t *testing.T) {
	ts, _ := newTestServer(t, &fakeSource{n: 5})
	base := ts.URL + "/api/v1/sessions/" + createSession(t, ts.URL)

	tests := []struct {
		name string
		body string
		code errs.Code
	}{
		{"bad registry", `{"query":"react","registry":"cargo"}`, errs.ErrCodeInvalidRegistry},
		{"bad mode", `{"query":"react","mode":"fastest"}`, errs.ErrCodeInvalidMode},
		{"bad json", `{"query":`, errs.ErrCodeInvalidInput},
		{"unknown field", `{"q":"react"}`, errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, base+"/search", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if body := decode[errorBody](t, resp); body.Code != tt.code {
				t.Errorf("code = %q, want %q", body.Code, tt.code)
			}
		})
	}
}

func TestSearchUpstreamFailureIsInSnapshot(t *testing.T) {
	src := &fakeSource{err: &errs.RegistryError{Status: 500}}
	ts, _ := newTestServer(t, src)
	base := ts.URL + "/api/v1/sessions/" + createSession(t, ts.URL)

	resp := do(t, http.MethodPost, base+"/search", `{"query":"react"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	st := decode[discovery.State](t, resp)
	if st.Error == nil || st.Error.Code != errs.ErrCodeFetchFailed {
		t.Errorf("Error = %+v, want FETCH_FAILED", st.Error)
	}
}

func TestSearchNotFoundUpstreamIsInSnapshot(t *testing.T) {
	src := &fakeSource{err: fmt.Errorf("%w: https://registry.example/-/v1/search", integrations.ErrNotFound)}
	ts, _ := newTestServer(t, src)
	base := ts.URL + "/api/v1/sessions/" + createSession(t, ts.URL)

	resp := do(t, http.MethodPost, base+"/search", `{"query":"react"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	st := decode[discovery.State](t, resp)
	if st.Error == nil || st.Error.Code != errs.ErrCodeFetchFailed {
		t.Errorf("Error = %+v, want FETCH_FAILED", st.Error)
	}
}

func TestUnknownSession(t *testing.T) {
	ts, _ := newTestServer(t, &fakeSource{})
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/sessions/nope"},
		{http.MethodPost, "/api/v1/sessions/nope/more"},
		{http.MethodDelete, "/api/v1/sessions/nope"},
	} {
		resp := do(t, tc.method, ts.URL+tc.path, "")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", tc.method, tc.path, resp.StatusCode)
		}
	}
}

func TestDeleteSession(t *testing.T) {
	ts, _ := newTestServer(t, &fakeSource{})
	id := createSession(t, ts.URL)
	if resp := do(t, http.MethodDelete, ts.URL+"/api/v1/sessions/"+id, ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, ts.URL+"/api/v1/sessions/"+id, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d", resp.StatusCode)
	}
}

func TestBusySessionConflicts(t *testing.T) {
	block := make(chan struct{})
	src := &fakeSource{n: 20, block: block}
	ts, _ := newTestServer(t, src)
	base := ts.URL + "/api/v1/sessions/" + createSession(t, ts.URL)

	done := make(chan int, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodPost, base+"/search", strings.NewReader(`{"query":"react"}`))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()

	for i := 0; !src.started(); i++ {
		if i > 1000 {
			t.Fatal("search never started")
		}
		time.Sleep(time.Millisecond)
	}

	resp := do(t, http.MethodPost, base+"/more", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("overlapping more status = %d, want 409", resp.StatusCode)
	}
	if body := decode[errorBody](t, resp); body.Code != errs.ErrCodeBusy {
		t.Errorf("code = %q", body.Code)
	}

	close(block)
	if code := <-done; code != http.StatusOK {
		t.Errorf("first search status = %d", code)
	}
}

func TestIdleSessionsExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(Config{
		Sources:     registry.Sources{},
		Store:       store.NewMemoryStore(),
		IdleTimeout: time.Minute,
		Logger:      log.New(io.Discard),
		Now:         func() time.Time { return now },
	})
	id, err := s.newSession()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.session(id); !ok {
		t.Fatal("fresh session missing")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := s.session(id); ok {
		t.Error("idle session still served")
	}
}

func TestSessionLimit(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(Config{
		Sources:     registry.Sources{},
		Store:       store.NewMemoryStore(),
		IdleTimeout: time.Minute,
		MaxSessions: 2,
		Logger:      log.New(io.Discard),
		Now:         func() time.Time { return now },
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	createSession(t, ts.URL)
	createSession(t, ts.URL)

	resp := do(t, http.MethodPost, ts.URL+"/api/v1/sessions", "")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("third session status = %d, want 429", resp.StatusCode)
	}
	if body := decode[errorBody](t, resp); body.Code != errs.ErrCodeRateLimit {
		t.Errorf("code = %q", body.Code)
	}

	// Idle sessions free their slots.
	now = now.Add(2 * time.Minute)
	createSession(t, ts.URL)
}

func TestClassify(t *testing.T) {
	ts, _ := newTestServer(t, &fakeSource{})

	resp := do(t, http.MethodGet, ts.URL+"/api/v1/classify?quality=0.95&popularity=0.5", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decode[rank.Impact](t, resp); got != rank.Classify(0.95, 0.5) {
		t.Errorf("impact = %+v", got)
	}
	resp = do(t, http.MethodGet, ts.URL+"/api/v1/classify?quality=1&popularity=0", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("bounds status = %d, want 200", resp.StatusCode)
	}

	for _, q := range []string{
		"", "?quality=abc&popularity=1", "?quality=1",
		"?quality=NaN&popularity=0.5", "?quality=0.9&popularity=Inf",
		"?quality=1.5&popularity=0.5", "?quality=0.9&popularity=-0.1",
	} {
		resp := do(t, http.MethodGet, ts.URL+"/api/v1/classify"+q, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("classify%s status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestSavedLifecycle(t *testing.T) {
	ts, _ := newTestServer(t, &fakeSource{n: 5})
	id := createSession(t, ts.URL)
	do(t, http.MethodPost, ts.URL+"/api/v1/sessions/"+id+"/search", `{"query":"react"}`)

	resp := do(t, http.MethodPost, ts.URL+"/api/v1/sessions/"+id+"/save", `{"username":"DEV2","labels":["frontend"]}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save status = %d", resp.StatusCode)
	}
	saved := decode[store.Saved](t, resp)
	if saved.Username != "dev2" || saved.Status != store.StatusNew {
		t.Fatalf("saved = %+v", saved)
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/v1/sessions/"+id+"/save", `{"username":"ghost"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("save unknown status = %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPatch, ts.URL+"/api/v1/saved/dev2", `{"status":"contacted"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d", resp.StatusCode)
	}
	if got := decode[store.Saved](t, resp); got.Status != store.StatusContacted {
		t.Errorf("status = %q", got.Status)
	}

	resp = do(t, http.MethodPatch, ts.URL+"/api/v1/saved/dev2", `{"status":"ghosted"}`)
	if body := decode[errorBody](t, resp); resp.StatusCode != http.StatusBadRequest || body.Code != errs.ErrCodeInvalidStatus {
		t.Errorf("bad status = %d %q", resp.StatusCode, body.Code)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/saved?status=contacted&label=FRONTEND", "")
	if list := decode[[]store.Saved](t, resp); len(list) != 1 {
		t.Errorf("filtered list = %d", len(list))
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/saved/export?format=csv", "")
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "dev2") {
		t.Errorf("export missing username:\n%s", body)
	}

	if resp := do(t, http.MethodGet, ts.URL+"/api/v1/saved/export?format=xml", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("export xml status = %d", resp.StatusCode)
	}

	if resp := do(t, http.MethodDelete, ts.URL+"/api/v1/saved/dev2", ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, ts.URL+"/api/v1/saved/dev2", "")
	if body := decode[errorBody](t, resp); resp.StatusCode != http.StatusNotFound || body.Code != errs.ErrCodeNotFound {
		t.Errorf("get deleted = %d %q", resp.StatusCode, body.Code)
	}
}

func TestCreateSavedDirectly(t *testing.T) {
	ts, _ := newTestServer(t, &fakeSource{})
	body := `{"candidate":{"record":{"name":"left-pad","source":"npm","publisher":{"username":"azer"}}},"labels":["legacy"]}`
	resp := do(t, http.MethodPost, ts.URL+"/api/v1/saved", body)
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, b)
	}
	if got := decode[store.Saved](t, resp); got.Username != "azer" {
		t.Errorf("username = %q, want taken from publisher", got.Username)
	}
}
