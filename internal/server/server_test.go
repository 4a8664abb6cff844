package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lazypower/charmlink/internal/engine"
	"github.com/lazypower/charmlink/internal/store"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func testServerAt(t *testing.T, now time.Time) *Server {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(engine.New(db), Options{
		Version: "test-version",
		Now:     func() time.Time { return now },
	})
}

func testServer(t *testing.T) *Server {
	t.Helper()
	return testServerAt(t, fixedNow)
}

// call issues a request as user (no identity header when empty).
func call(t *testing.T, srv *Server, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	w := call(t, srv, "GET", "/api/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := decodeBody[map[string]any](t, w)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
	if body["driver"] != "sqlite" {
		t.Errorf("driver = %v, want sqlite", body["driver"])
	}
}

func TestMissingIdentity(t *testing.T) {
	srv := testServer(t)

	routes := []struct {
		method string
		path   string
	}{
		{"GET", "/api/charms"},
		{"POST", "/api/charms"},
		{"GET", "/api/habits/abc"},
		{"POST", "/api/habits/abc/log"},
		{"GET", "/api/habits/abc/graph"},
	}

	for _, rt := range routes {
		w := call(t, srv, rt.method, rt.path, "", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want %d", rt.method, rt.path, w.Code, http.StatusUnauthorized)
			continue
		}
		body := decodeBody[ErrorResponse](t, w)
		if body.Kind != engine.KindUnauthorized {
			t.Errorf("%s %s: kind = %q", rt.method, rt.path, body.Kind)
		}
	}
}

func TestCustomUserHeader(t *testing.T) {
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	srv := New(engine.New(db), Options{UserHeader: "X-Auth-Subject"})

	req := httptest.NewRequest("GET", "/api/charms", nil)
	req.Header.Set("X-Auth-Subject", "u1")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t)

	call(t, srv, "POST", "/api/charms", "u1", `{"product_type":"habit"}`)

	w := call(t, srv, "GET", "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	out := w.Body.String()
	for _, want := range []string{
		`charmlink_engine_operations_total{op="create_charm",result="ok"} 1`,
		`charmlink_http_requests_total{method="POST",route="/api/charms",status="201"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}
