// Package apperr defines the error taxonomy shared across didact packages.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalid       = errors.New("invalid")
)

// ParseError reports malformed markup. Msg is the converter's raw message and
// is meant to be shown to the tutorial author verbatim.
type ParseError struct {
	Format string
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Format, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FetchError reports an unreachable remote document.
type FetchError struct {
	URI    string
	Status int // 0 for transport errors
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URI, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URI, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotFoundError reports a missing local document.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return "document not found: " + e.Path }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DuplicateTutorialError reports a registration conflict on (name, category).
type DuplicateTutorialError struct {
	Name     string
	Category string
}

func (e *DuplicateTutorialError) Error() string {
	return fmt.Sprintf("tutorial %q already registered in category %q", e.Name, e.Category)
}

func (e *DuplicateTutorialError) Unwrap() error { return ErrAlreadyExists }

// ScaffoldError reports a failed or partially applied project scaffold.
// Conflicts lists workspace-relative paths that already existed with different
// content and were left untouched.
type ScaffoldError struct {
	Msg       string
	Conflicts []string
	Err       error
}

func (e *ScaffoldError) Error() string {
	if len(e.Conflicts) > 0 {
		return fmt.Sprintf("scaffold: %s: %s", e.Msg, strings.Join(e.Conflicts, ", "))
	}
	if e.Err != nil {
		return fmt.Sprintf("scaffold: %s: %v", e.Msg, e.Err)
	}
	return "scaffold: " + e.Msg
}

// Unwrap exposes both the cause and, when files conflicted, ErrConflict.
func (e *ScaffoldError) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if len(e.Conflicts) > 0 {
		errs = append(errs, ErrConflict)
	}
	return errs
}

// NoWorkspaceError reports that no workspace folder is available or creatable.
type NoWorkspaceError struct {
	Root string
	Err  error
}

func (e *NoWorkspaceError) Error() string {
	if e.Root == "" {
		return "no workspace folder configured"
	}
	return fmt.Sprintf("workspace folder %s unavailable: %v", e.Root, e.Err)
}

func (e *NoWorkspaceError) Unwrap() error { return e.Err }

// DispatchError reports an unknown or malformed action target.
type DispatchError struct {
	Capability string
	Msg        string
}

func (e *DispatchError) Error() string {
	if e.Capability == "" {
		return "dispatch: " + e.Msg
	}
	return fmt.Sprintf("dispatch %s: %s", e.Capability, e.Msg)
}

func (e *DispatchError) Unwrap() error { return ErrInvalid }
