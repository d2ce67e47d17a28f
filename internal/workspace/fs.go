// Package workspace is the file-system root that scaffolds and workspace
// checks operate on.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/didact/internal/apperr"
	"github.com/starford/didact/internal/checksum"
)

// FS is a workspace folder. The root may not exist yet; an empty root means
// no workspace is configured.
type FS struct {
	root string // absolute path, or "" when undefined
}

// New returns an FS rooted at root. The directory is not required to exist.
func New(root string) (*FS, error) {
	if root == "" {
		return &FS{}, nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolve root: %w", err)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute workspace path, or "" when undefined.
func (f *FS) Root() string { return f.root }

// Defined reports whether a workspace root is configured.
func (f *FS) Defined() bool { return f.root != "" }

// Exists reports whether the workspace root is an existing directory.
func (f *FS) Exists() bool {
	if f.root == "" {
		return false
	}
	info, err := os.Stat(f.root)
	return err == nil && info.IsDir()
}

// Create makes the workspace root directory. It is a no-op when the folder
// already exists.
func (f *FS) Create() error {
	if f.root == "" {
		return &apperr.NoWorkspaceError{}
	}
	if err := os.MkdirAll(f.root, 0o755); err != nil {
		return &apperr.NoWorkspaceError{Root: f.root, Err: err}
	}
	return nil
}

// safePath resolves a relative path against the workspace root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if f.root == "" {
		return "", &apperr.NoWorkspaceError{}
	}
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("workspace: absolute paths not allowed: %s: %w", rel, apperr.ErrInvalid)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("workspace: path escapes root: %s: %w", rel, apperr.ErrInvalid)
	}
	return abs, nil
}

// Read returns the raw bytes of a workspace file.
func (f *FS) Read(rel string) ([]byte, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &apperr.NotFoundError{Path: rel}
		}
		return nil, fmt.Errorf("workspace: read %s: %w", rel, err)
	}
	return data, nil
}

// MkdirAll creates a directory (and parents) below the root.
func (f *FS) MkdirAll(rel string) error {
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("workspace: mkdir %s: %w", rel, err)
	}
	return nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(rel string, content []byte) error {
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("workspace: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".didact-tmp-*")
	if err != nil {
		return fmt.Errorf("workspace: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("workspace: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("workspace: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("workspace: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("workspace: rename: %w", err)
	}
	success = true
	return nil
}

// WriteResult says what WriteNew did with a file.
type WriteResult int

const (
	Created WriteResult = iota
	// Unchanged means the file already held identical content.
	Unchanged
	// Conflict means the file exists with different content and was left alone.
	Conflict
)

// WriteNew writes content only if rel does not exist. An existing file with
// the same checksum is reported Unchanged; any other existing file is a
// Conflict and is never overwritten.
func (f *FS) WriteNew(rel string, content []byte) (WriteResult, error) {
	existing, err := f.Read(rel)
	switch {
	case err == nil:
		if checksum.Same(existing, content) {
			return Unchanged, nil
		}
		return Conflict, nil
	case errors.Is(err, apperr.ErrNotFound):
	default:
		return 0, err
	}
	if err := f.Write(rel, content); err != nil {
		return 0, err
	}
	return Created, nil
}
