package library

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/didact/internal/registry"
	"github.com/starford/didact/internal/settings"
	"github.com/starford/didact/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newLibrary(t *testing.T) (*Library, *registry.Registry, string) {
	t.Helper()
	dir := t.TempDir()
	reg := registry.New(settings.NewMemory(), registry.DefaultKey)
	lib, err := New(dir, "Local", reg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	return lib, reg, dir
}

func TestIsTutorialFile(t *testing.T) {
	for name, want := range map[string]bool{
		"intro.didact.md":   true,
		"Intro.DIDACT.ADOC": true,
		"readme.md":         false,
		"notes.adoc":        false,
	} {
		if got := IsTutorialFile(name); got != want {
			t.Errorf("IsTutorialFile(%q) = %v", name, got)
		}
	}
}

func TestSync_RegistersTutorials(t *testing.T) {
	lib, reg, dir := newLibrary(t)
	ctx := context.Background()
	testutil.WriteFile(t, dir, "camel.didact.md", "---\nname: Camel Intro\ncategory: Integration\n---\n# Camel\n")
	testutil.WriteFile(t, dir, "nested/kafka.didact.adoc", "= Kafka\n")
	testutil.WriteFile(t, dir, "README.md", "# not a tutorial\n")

	added, err := lib.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(added) != 2 {
		t.Fatalf("added = %+v", added)
	}
	uri, ok, _ := reg.ResolveURI(ctx, "Camel Intro", "Integration")
	if !ok || uri != filepath.Join(dir, "camel.didact.md") {
		t.Errorf("camel uri = %q, %v", uri, ok)
	}
	if _, ok, _ := reg.ResolveURI(ctx, "kafka", "Local"); !ok {
		t.Error("file without frontmatter should use file name and default category")
	}

	again, err := lib.Sync(ctx)
	if err != nil || len(again) != 0 {
		t.Errorf("second sync = %v, %v", again, err)
	}
}

func TestSync_AlreadyRegisteredIsNotAnError(t *testing.T) {
	lib, reg, dir := newLibrary(t)
	ctx := context.Background()
	if err := reg.Register(ctx, "dup", "elsewhere.md", "Local"); err != nil {
		t.Fatal(err)
	}
	testutil.WriteFile(t, dir, "dup.didact.md", "# Dup\n")
	added, err := lib.Sync(ctx)
	if err != nil || len(added) != 0 {
		t.Errorf("sync = %v, %v", added, err)
	}
}

func TestSync_MissingDirectory(t *testing.T) {
	reg := registry.New(settings.NewMemory(), "")
	lib, err := New(filepath.Join(t.TempDir(), "absent"), "Local", reg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if added, err := lib.Sync(context.Background()); err != nil || len(added) != 0 {
		t.Errorf("sync = %v, %v", added, err)
	}
}

func TestWatch_RegistersNewFiles(t *testing.T) {
	lib, reg, dir := newLibrary(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go lib.Watch(ctx, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	testutil.WriteFile(t, dir, "live.didact.md", "---\nname: Live\n---\n# Live\n")

	testutil.Eventually(t, 5*time.Second, func() bool {
		_, ok, _ := reg.ResolveURI(context.Background(), "Live", "Local")
		return ok
	}, "watcher did not register new tutorial")
	testutil.Eventually(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:live.didact.md" {
				return true
			}
		}
		return false
	}, "created event not delivered")

	if err := os.Remove(filepath.Join(dir, "live.didact.md")); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, 5*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "deleted:live.didact.md" {
				return true
			}
		}
		return false
	}, "deleted event not delivered")
}
