package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	body   string
}

type fakeGCS struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body)})
	status := f.status
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"denied"}}`, status)
		return
	}
	switch r.Method {
	case http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"No such object"}}`))
	default:
		_, _ = w.Write([]byte(`{"name":"x","items":[]}`))
	}
}

func (f *fakeGCS) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, fake *fakeGCS) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	client, err := newClient(context.Background(), "evidence", srv.URL,
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	return client, srv
}

func TestUploadSendsObjectAndMedia(t *testing.T) {
	t.Parallel()

	fake := &fakeGCS{}
	client, srv := newTestClient(t, fake)

	err := client.Upload(context.Background(), "assignments/approval/a.png", "image/png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	req := fake.last()
	if req.method != http.MethodPost || req.path != "/upload/storage/v1/b/evidence/o" {
		t.Fatalf("unexpected request %s %s", req.method, req.path)
	}
	if !strings.Contains(req.query, "uploadType=multipart") {
		t.Fatalf("expected multipart upload, got %q", req.query)
	}
	for _, want := range []string{"png-bytes", `"name":"assignments/approval/a.png"`, `"cacheControl"`} {
		if !strings.Contains(req.body, want) {
			t.Fatalf("upload body missing %q: %s", want, req.body)
		}
	}
	if got := client.PublicURL("assignments/approval/a b.png"); got != srv.URL+"/evidence/assignments/approval/a%20b.png" {
		t.Fatalf("unexpected public url %q", got)
	}
}

func TestUploadSurfacesErrorStatus(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, &fakeGCS{status: http.StatusForbidden})
	err := client.Upload(context.Background(), "x.png", "image/png", []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
	if err := client.Upload(context.Background(), "", "image/png", []byte("x")); err == nil {
		t.Fatal("expected empty object name to be rejected")
	}
}

func TestPingAndDeleteMissing(t *testing.T) {
	t.Parallel()

	fake := &fakeGCS{}
	client, _ := newTestClient(t, fake)

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
	if req := fake.last(); req.path != "/storage/v1/b/evidence/o" || !strings.Contains(req.query, "maxResults=1") {
		t.Fatalf("unexpected ping request %+v", req)
	}
	if err := client.Delete(context.Background(), "missing.png"); err != nil {
		t.Fatalf("Delete of missing object should succeed, got %v", err)
	}
}

func TestNilClientFailsClosed(t *testing.T) {
	t.Parallel()

	var client *Client
	if client.Bucket() != "" {
		t.Fatal("nil client has no bucket")
	}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected nil client ping to fail")
	}
}
