package internal

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/didact/internal/dispatch"
	"github.com/starford/didact/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Settings.Path = filepath.Join(dir, "state", "didact.db")
	cfg.Tutorials.Dir = filepath.Join(dir, "tutorials")
	cfg.Workspace.Root = filepath.Join(dir, "ws")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestOpen_SyncsLibraryAndPersists(t *testing.T) {
	cfg := testConfig(t)
	testutil.WriteFile(t, cfg.Tutorials.Dir, "hello.didact.md", "---\nname: Hello\ncategory: Basics\n---\n# Hello\n")

	ctx := context.Background()
	eng, err := Open(ctx, WithConfig(cfg), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	list, err := eng.Service.Registry().List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "Hello" || list[0].Category != "Basics" {
		t.Fatalf("registry = %+v", list)
	}
	if err := eng.Close(); err != nil {
		t.Fatal(err)
	}

	// A second engine on the same settings file sees the registration.
	eng, err = Open(ctx, WithConfig(cfg), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()
	uri, ok, err := eng.Service.Registry().ResolveURI(ctx, "Hello", "Basics")
	if err != nil || !ok || filepath.Base(uri) != "hello.didact.md" {
		t.Errorf("resolve = %q %v %v", uri, ok, err)
	}
}

func TestOpen_RequiresConfig(t *testing.T) {
	if _, err := Open(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestOpen_ReporterAndCapabilities(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extensions.Installed = []string{"redhat.java"}

	var mu sync.Mutex
	var got []dispatch.Outcome
	rep := dispatch.ReporterFunc(func(_ context.Context, o dispatch.Outcome) {
		mu.Lock()
		got = append(got, o)
		mu.Unlock()
	})

	ctx := context.Background()
	eng, err := Open(ctx, WithConfig(cfg), WithLogOutput(io.Discard), WithReporter(rep))
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	o, err := eng.Service.Execute(ctx, "", "vscode.didact.extensionRequirementCheck", []string{"java-ext", "redhat.java"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if o.Requirement == nil || !o.Requirement.Satisfied {
		t.Errorf("outcome = %+v", o)
	}
	o, _ = eng.Service.Execute(ctx, "", "didact.createWorkspaceFolder", nil, nil)
	if o.State != dispatch.Succeeded {
		t.Errorf("create workspace = %+v", o)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Errorf("reported = %d", len(got))
	}
}

func TestFanOut(t *testing.T) {
	if fanOut(nil) != nil {
		t.Error("no reporters should give nil")
	}
	n := 0
	r := dispatch.ReporterFunc(func(context.Context, dispatch.Outcome) { n++ })
	fanOut([]dispatch.Reporter{r, nil, r}).Report(context.Background(), dispatch.Outcome{})
	if n != 2 {
		t.Errorf("calls = %d", n)
	}
}
