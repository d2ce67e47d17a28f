// Package testutil provides shared test helpers for settings databases,
// workspaces and tutorial files.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/didact/internal/settings"
	"github.com/starford/didact/internal/workspace"
)

// TestDB creates a temporary SQLite settings database that is automatically
// cleaned up.
func TestDB(t *testing.T) *settings.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "didact-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := settings.Open(dbFile.Name(), "test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace returns a workspace rooted at a fresh, not yet created,
// directory below t.TempDir().
func TestWorkspace(t *testing.T) *workspace.FS {
	t.Helper()
	ws, err := workspace.New(filepath.Join(t.TempDir(), "workspace"))
	if err != nil {
		t.Fatal(err)
	}
	return ws
}

// WriteFile writes content to dir/name, creating parents, and returns the
// full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// Eventually polls cond every 20ms until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}
