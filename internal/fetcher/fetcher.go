// Package fetcher resolves tutorial document references into raw markup.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/didact/internal/apperr"
)

// maxBodyBytes bounds a single fetched document.
const maxBodyBytes = 10 << 20

// Fetcher reads documents from local paths, file:// and http(s):// URIs.
// Every call re-reads the source; nothing is cached.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// New returns a Fetcher whose HTTP requests are bounded by timeout.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}, maxBytes: maxBodyBytes}
}

// NewWithClient returns a Fetcher using the given HTTP client.
func NewWithClient(client *http.Client) *Fetcher {
	return &Fetcher{client: client, maxBytes: maxBodyBytes}
}

// Fetch returns the raw text behind ref.
func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if IsRemote(ref) {
		return f.fetchHTTP(ctx, ref)
	}
	p, err := LocalPath(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &apperr.NotFoundError{Path: p}
		}
		return nil, fmt.Errorf("fetcher: read %s: %w", p, err)
	}
	return data, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, &apperr.FetchError{URI: ref, Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &apperr.FetchError{URI: ref, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperr.FetchError{URI: ref, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &apperr.FetchError{URI: ref, Err: err}
	}
	if int64(len(data)) > f.maxBytes {
		return nil, &apperr.FetchError{URI: ref, Err: fmt.Errorf("document exceeds %d bytes", f.maxBytes)}
	}
	return data, nil
}

// IsRemote reports whether ref is an http(s) URI.
func IsRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// LocalPath converts a bare path or file:// URI into a filesystem path.
func LocalPath(ref string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(ref), "file://") {
		return filepath.Clean(ref), nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("fetcher: parse %s: %w", ref, err)
	}
	p := u.Path
	if u.Host != "" && u.Host != "localhost" {
		p = "//" + u.Host + p
	}
	return filepath.FromSlash(p), nil
}

// Resolve resolves ref relative to the document at base. Absolute references
// (URIs or absolute paths) are returned unchanged.
func Resolve(base, ref string) string {
	if ref == "" || IsRemote(ref) || strings.HasPrefix(strings.ToLower(ref), "file://") || filepath.IsAbs(ref) {
		return ref
	}
	if IsRemote(base) {
		u, err := url.Parse(base)
		if err != nil {
			return ref
		}
		u.Path = path.Join(path.Dir(u.Path), ref)
		u.RawQuery = ""
		u.Fragment = ""
		return u.String()
	}
	if base == "" {
		return ref
	}
	dir, err := LocalPath(base)
	if err != nil {
		return ref
	}
	return filepath.Join(filepath.Dir(dir), ref)
}
