package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/didact/internal/dispatch"
	"github.com/starford/didact/internal/fetcher"
	"github.com/starford/didact/internal/library"
	"github.com/starford/didact/internal/probe"
	"github.com/starford/didact/internal/registry"
	"github.com/starford/didact/internal/scaffold"
	"github.com/starford/didact/internal/settings"
	"github.com/starford/didact/internal/terminal"
	"github.com/starford/didact/internal/tutorial"
	"github.com/starford/didact/internal/workspace"
)

var errConfigRequired = errors.New("config is required")

// globalScope keys settings when no workspace is configured.
const globalScope = "global"

// Engine is the wired tutorial engine shared by the server, the MCP runner
// and the CLI commands.
type Engine struct {
	Config    *Config
	Logger    *slog.Logger
	Service   *tutorial.Service
	Terminals *terminal.Manager
	// Library is nil when no tutorials directory is configured.
	Library *library.Library

	db *settings.DB
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// newEngine opens the settings database and wires every component.
// reporters and notifier may be nil.
func newEngine(cfg *Config, logger *slog.Logger, notifier tutorial.Notifier, reporters ...dispatch.Reporter) (*Engine, error) {
	ws, err := workspace.New(cfg.Workspace.Root)
	if err != nil {
		return nil, fmt.Errorf("init workspace: %w", err)
	}
	scope := globalScope
	if ws.Defined() {
		scope = ws.Root()
	}

	if dir := filepath.Dir(cfg.Settings.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create settings dir: %w", err)
		}
	}
	db, err := settings.Open(cfg.Settings.Path, scope)
	if err != nil {
		return nil, fmt.Errorf("init settings: %w", err)
	}

	f := fetcher.New(cfg.Fetch.Timeout)
	terms := terminal.NewManager(cfg.Terminal.Shell, logger)

	disp := dispatch.New(
		dispatch.WithLogger(logger),
		dispatch.WithNotificationsDisabled(cfg.Notifications.Disabled),
		dispatch.WithReporter(fanOut(reporters)),
	)
	if err := disp.RegisterBuiltins(dispatch.Backends{
		Terminals:  terms,
		Prober:     probe.New(cfg.Probe.Shell, cfg.Probe.Timeout, logger),
		Workspace:  ws,
		Scaffolder: scaffold.New(ws, f, logger),
		Extensions: dispatch.NewCatalog(cfg.Extensions.Installed),
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("register capabilities: %w", err)
	}

	reg := registry.New(db, cfg.Settings.Key)
	svc := tutorial.NewService(reg, f, disp, notifier, logger)
	if err := svc.RegisterCapabilities(); err != nil {
		db.Close()
		return nil, fmt.Errorf("register capabilities: %w", err)
	}

	e := &Engine{Config: cfg, Logger: logger, Service: svc, Terminals: terms, db: db}
	if cfg.Tutorials.Dir != "" {
		e.Library, err = library.New(cfg.Tutorials.Dir, cfg.Tutorials.DefaultCategory, svc, logger)
		if err != nil {
			e.Close()
			return nil, err
		}
	}
	return e, nil
}

// Open wires an engine for one-shot CLI use and registers the library
// contents. Logs go to stderr unless redirected. The caller must Close it.
func Open(ctx context.Context, opts ...Option) (*Engine, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	out := app.logOut
	if out == nil {
		out = os.Stderr
	}
	logger := newLogger(app.config, out)

	e, err := newEngine(app.config, logger, nil, app.reporter)
	if err != nil {
		return nil, err
	}
	e.syncLibrary(ctx)
	return e, nil
}

func (e *Engine) syncLibrary(ctx context.Context) {
	if e.Library == nil {
		return
	}
	added, err := e.Library.Sync(ctx)
	if err != nil {
		e.Logger.Warn("library sync failed", slog.String("error", err.Error()))
		return
	}
	e.Logger.Info("library synced",
		slog.String("root", e.Library.Root()),
		slog.Int("registered", len(added)),
	)
}

// Close stops every terminal and closes the settings database.
func (e *Engine) Close() error {
	e.Terminals.CloseAll()
	return e.db.Close()
}

// fanOut combines reporters, skipping nils. It returns nil for none.
func fanOut(rs []dispatch.Reporter) dispatch.Reporter {
	var live []dispatch.Reporter
	for _, r := range rs {
		if r != nil {
			live = append(live, r)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return dispatch.ReporterFunc(func(ctx context.Context, o dispatch.Outcome) {
		for _, r := range live {
			r.Report(ctx, o)
		}
	})
}
