// Package probe runs requirement checks: a shell command whose combined
// output must contain an expected string.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Result is the outcome of one probe. Satisfied is false for non-zero exits,
// timeouts, launch failures and missing expected text alike; Err records the
// cause when there was one.
type Result struct {
	Satisfied bool          `json:"satisfied"`
	ExitCode  int           `json:"exitCode"`
	Output    string        `json:"output"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// Runner executes probe commands through a shell.
type Runner struct {
	shell   string
	timeout time.Duration
	logger  *slog.Logger
}

// New returns a Runner. An empty shell means /bin/sh.
func New(shell string, timeout time.Duration, logger *slog.Logger) *Runner {
	if shell == "" {
		shell = "/bin/sh"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{shell: shell, timeout: timeout, logger: logger}
}

// Check runs command and reports whether it exited 0 with expected somewhere
// in its combined output. An empty expected string only requires exit 0.
func (r *Runner) Check(ctx context.Context, command, expected string) Result {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, r.shell, "-c", command)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	// Children of the shell may hold the pipe open after it is killed.
	cmd.WaitDelay = time.Second
	err := cmd.Run()

	res := Result{Output: out.String(), Duration: time.Since(start)}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("probe: %q: %w", command, ctx.Err())
		}
		res.Err = err
		r.logger.Debug("probe failed",
			slog.String("command", command),
			slog.Int("exit_code", res.ExitCode),
			slog.String("error", err.Error()),
		)
		return res
	}
	res.Satisfied = strings.Contains(res.Output, expected)
	return res
}
