// Package terminal manages named, long-lived shell sessions that tutorials
// send commands to.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/starford/didact/internal/apperr"
)

const (
	maxOutput    = 64 << 10
	closeTimeout = 3 * time.Second
)

// ErrClosed is returned when writing to a terminal whose shell has exited.
var ErrClosed = errors.New("terminal closed")

// Manager owns the named terminals. All methods are safe for concurrent use.
type Manager struct {
	shell  string
	logger *slog.Logger

	mu    sync.Mutex
	terms map[string]*session
}

type session struct {
	name  string
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *outputBuffer
	done  chan struct{}
}

// NewManager returns a Manager that starts terminals with shell
// (default /bin/sh).
func NewManager(shell string, logger *slog.Logger) *Manager {
	if shell == "" {
		shell = "/bin/sh"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{shell: shell, logger: logger, terms: make(map[string]*session)}
}

// Start opens the terminal called name. It reports false when a live
// terminal of that name already existed, which is left untouched.
func (m *Manager) Start(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.terms[name]; ok && s.alive() {
		return false, nil
	}
	s, err := m.spawn(name)
	if err != nil {
		return false, err
	}
	m.terms[name] = s
	return true, nil
}

func (m *Manager) spawn(name string) (*session, error) {
	cmd := exec.Command(m.shell)
	cmd.SysProcAttr = sysProcAttr()
	out := newOutputBuffer(maxOutput)
	cmd.Stdout = out
	cmd.Stderr = out
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("terminal: %s: stdin: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("terminal: %s: start: %w", name, err)
	}
	s := &session{name: name, cmd: cmd, stdin: stdin, out: out, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		close(s.done)
		attrs := []any{slog.String("terminal", name)}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		m.logger.Info("terminal exited", attrs...)
		m.mu.Lock()
		if m.terms[name] == s {
			delete(m.terms, name)
		}
		m.mu.Unlock()
	}()
	if err := prepareShell(stdin); err != nil {
		_ = killGroup(cmd)
		return nil, fmt.Errorf("terminal: %s: init: %w", name, err)
	}
	m.logger.Info("terminal started", slog.String("terminal", name), slog.Int("pid", cmd.Process.Pid))
	return s, nil
}

func (s *session) alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Send writes text followed by a newline to the named terminal, starting it
// first if needed.
func (m *Manager) Send(name, text string) error {
	if _, err := m.Start(name); err != nil {
		return err
	}
	m.mu.Lock()
	s, ok := m.terms[name]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("terminal: %s: %w", name, ErrClosed)
	}
	if _, err := io.WriteString(s.stdin, text+"\n"); err != nil {
		return fmt.Errorf("terminal: %s: send: %w", name, err)
	}
	return nil
}

// Interrupt delivers an interrupt to whatever the named terminal is running.
// The shell itself keeps reading input.
func (m *Manager) Interrupt(name string) error {
	s, err := m.get(name)
	if err != nil {
		return err
	}
	if err := interruptGroup(s.cmd); err != nil {
		return fmt.Errorf("terminal: %s: interrupt: %w", name, err)
	}
	return nil
}

// Close ends the named terminal and waits briefly for it to exit.
func (m *Manager) Close(name string) error {
	s, err := m.get(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.terms[name] == s {
		delete(m.terms, name)
	}
	m.mu.Unlock()
	return s.close()
}

func (s *session) close() error {
	_ = s.stdin.Close()
	select {
	case <-s.done:
		return nil
	case <-time.After(100 * time.Millisecond):
	}
	if err := killGroup(s.cmd); err != nil && s.alive() {
		return fmt.Errorf("terminal: %s: kill: %w", s.name, err)
	}
	select {
	case <-s.done:
		return nil
	case <-time.After(closeTimeout):
		return fmt.Errorf("terminal: %s: did not exit after kill", s.name)
	}
}

// CloseAll ends every terminal. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*session, 0, len(m.terms))
	for _, s := range m.terms {
		all = append(all, s)
	}
	m.terms = make(map[string]*session)
	m.mu.Unlock()
	for _, s := range all {
		if err := s.close(); err != nil {
			m.logger.Warn("close terminal", slog.String("terminal", s.name), slog.String("error", err.Error()))
		}
	}
}

// Names lists the live terminals, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.terms))
	for name, s := range m.terms {
		if s.alive() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Output returns the most recent output of the named terminal.
func (m *Manager) Output(name string) (string, error) {
	s, err := m.get(name)
	if err != nil {
		return "", err
	}
	return s.out.String(), nil
}

func (m *Manager) get(name string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.terms[name]
	if !ok || !s.alive() {
		return nil, fmt.Errorf("terminal %q: %w", name, apperr.ErrNotFound)
	}
	return s, nil
}

// outputBuffer keeps the last max bytes written to it.
type outputBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newOutputBuffer(max int) *outputBuffer {
	return &outputBuffer{max: max}
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *outputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
