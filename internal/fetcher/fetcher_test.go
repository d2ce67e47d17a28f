package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/didact/internal/apperr"
)

func TestFetchLocalPathAndFileURI(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "intro.didact.md")
	if err := os.WriteFile(p, []byte("# Intro"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := New(time.Second)

	for _, ref := range []string{p, "file://" + filepath.ToSlash(p)} {
		got, err := f.Fetch(context.Background(), ref)
		if err != nil {
			t.Fatalf("Fetch(%s): %v", ref, err)
		}
		if string(got) != "# Intro" {
			t.Errorf("Fetch(%s) = %q", ref, got)
		}
	}
}

func TestFetchMissingLocalFile(t *testing.T) {
	f := New(time.Second)
	_, err := f.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.didact.md"))
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestFetchHTTP(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("= Remote"))
	}))
	defer srv.Close()

	f := NewWithClient(srv.Client())
	got, err := f.Fetch(context.Background(), srv.URL+"/t.didact.adoc")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(got) != "= Remote" {
		t.Errorf("body = %q", got)
	}

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	var fe *apperr.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Status != http.StatusNotFound {
		t.Errorf("status = %d", fe.Status)
	}
	if calls != 2 {
		t.Errorf("expected exactly one attempt per fetch, got %d calls", calls)
	}
}

func TestFetchHTTP_OversizedDocumentFails(t *testing.T) {
	body := "# Big\n\n[last](didact://?commandId=didact.closeNamedTerminal&text=t)\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	f := NewWithClient(srv.Client())
	f.maxBytes = int64(len(body)) - 1
	got, err := f.Fetch(context.Background(), srv.URL+"/big.didact.md")
	var fe *apperr.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v (%d bytes)", err, len(got))
	}
	if got != nil {
		t.Errorf("partial body returned: %q", got)
	}

	f.maxBytes = int64(len(body))
	got, err = f.Fetch(context.Background(), srv.URL+"/big.didact.md")
	if err != nil || string(got) != body {
		t.Errorf("body at the limit = %q, %v", got, err)
	}
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(time.Second).Fetch(context.Background(), url+"/x.didact.md")
	var fe *apperr.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.Status != 0 {
		t.Errorf("transport error should carry no status, got %d", fe.Status)
	}
}

func TestResolve(t *testing.T) {
	cases := []struct {
		base, ref, want string
	}{
		{"https://example.com/t/intro.didact.md?x=1", "project.json", "https://example.com/t/project.json"},
		{"/docs/t/intro.didact.md", "project.json", filepath.Join("/docs/t", "project.json")},
		{"/docs/t/intro.didact.md", "https://x.io/p.json", "https://x.io/p.json"},
		{"/docs/t/intro.didact.md", "/abs/p.json", "/abs/p.json"},
		{"", "rel.json", "rel.json"},
	}
	for _, c := range cases {
		if got := Resolve(c.base, c.ref); got != c.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", c.base, c.ref, got, c.want)
		}
	}
}
