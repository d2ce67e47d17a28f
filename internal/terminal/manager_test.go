package terminal

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/didact/internal/apperr"
	"github.com/starford/didact/internal/testutil"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager("", nil)
	t.Cleanup(m.CloseAll)
	return m
}

func outputContains(m *Manager, name, want string) func() bool {
	return func() bool {
		out, err := m.Output(name)
		return err == nil && strings.Contains(out, want)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	m := newManager(t)
	created, err := m.Start("T1")
	if err != nil || !created {
		t.Fatalf("first Start = %v, %v", created, err)
	}
	created, err = m.Start("T1")
	if err != nil || created {
		t.Errorf("second Start = %v, %v", created, err)
	}
	if got := m.Names(); len(got) != 1 || got[0] != "T1" {
		t.Errorf("names = %v", got)
	}
}

func TestSendAutoStarts(t *testing.T) {
	m := newManager(t)
	if err := m.Send("T2", "echo hello-from-didact"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	testutil.Eventually(t, 5*time.Second, outputContains(m, "T2", "hello-from-didact"), "echo output")
}

func TestInterruptStopsForegroundJob(t *testing.T) {
	m := newManager(t)
	if err := m.Send("T3", "echo started; sleep 30"); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, 5*time.Second, outputContains(m, "T3", "started"), "job start")
	time.Sleep(200 * time.Millisecond)

	if err := m.Interrupt("T3"); err != nil {
		t.Fatalf("Interrupt: %v", err)
	}
	if err := m.Send("T3", "echo after-interrupt"); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, 5*time.Second, outputContains(m, "T3", "after-interrupt"), "shell survives interrupt")
}

func TestCloseRemovesTerminal(t *testing.T) {
	m := newManager(t)
	if _, err := m.Start("T4"); err != nil {
		t.Fatal(err)
	}
	if err := m.Close("T4"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(m.Names()) != 0 {
		t.Errorf("names after close = %v", m.Names())
	}
}

func TestUnknownTerminal(t *testing.T) {
	m := newManager(t)
	if err := m.Interrupt("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Interrupt err = %v", err)
	}
	if err := m.Close("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Close err = %v", err)
	}
}

func TestOutputBufferKeepsTail(t *testing.T) {
	b := newOutputBuffer(4)
	b.Write([]byte("abc"))
	b.Write([]byte("def"))
	if got := b.String(); got != "cdef" {
		t.Errorf("buffer = %q", got)
	}
}
