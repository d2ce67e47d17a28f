package apperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTypedErrorsUnwrapToSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{&NotFoundError{Path: "a.md"}, ErrNotFound},
		{&DuplicateTutorialError{Name: "a", Category: "b"}, ErrAlreadyExists},
		{&ScaffoldError{Msg: "conflicting files", Conflicts: []string{"x"}}, ErrConflict},
		{&DispatchError{Capability: "didact.nope", Msg: "unknown capability"}, ErrInvalid},
	}
	for _, c := range cases {
		wrapped := fmt.Errorf("outer: %w", c.err)
		if !errors.Is(wrapped, c.want) {
			t.Errorf("%T does not unwrap to %v", c.err, c.want)
		}
	}
}

func TestErrorsAs(t *testing.T) {
	err := fmt.Errorf("open: %w", &FetchError{URI: "http://x", Status: 404})
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatal("expected FetchError")
	}
	if fe.Status != 404 {
		t.Errorf("status = %d", fe.Status)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestScaffoldErrorExposesCauseAndConflict(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("outer: %w", &ScaffoldError{Msg: "partial", Conflicts: []string{"a.txt"}, Err: cause})
	if !errors.Is(err, ErrConflict) {
		t.Error("conflict hidden by cause")
	}
	if !errors.Is(err, cause) {
		t.Error("cause hidden by conflict")
	}
	if errors.Is(&ScaffoldError{Msg: "bad description"}, ErrConflict) {
		t.Error("no conflicts should not match ErrConflict")
	}
}

func TestScaffoldErrorListsConflicts(t *testing.T) {
	err := &ScaffoldError{Msg: "existing files differ", Conflicts: []string{"a.txt", "src/b.txt"}}
	if got := err.Error(); got != "scaffold: existing files differ: a.txt, src/b.txt" {
		t.Errorf("Error() = %q", got)
	}
}
