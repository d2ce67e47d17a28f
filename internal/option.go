package internal

import (
	"io"

	"github.com/starford/didact/internal/dispatch"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	version  string
	logOut   io.Writer
	reporter dispatch.Reporter
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithLogOutput redirects the JSON log. The MCP runner needs stdout for the
// protocol and logs to stderr regardless.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}

// WithReporter receives every dispatch outcome, alongside the SSE broker
// when serving.
func WithReporter(r dispatch.Reporter) Option {
	return func(a *application) {
		a.reporter = r
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, errConfigRequired
	}
	return app, nil
}
