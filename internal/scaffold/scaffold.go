// Package scaffold materialises a JSON project description into the
// workspace.
//
// A description looks like
//
//	{"name": "demo", "folders": [{"name": "src", "files": [
//	    {"name": "main.txt", "content": "hello {{.Name}}"},
//	    {"name": "logo.png", "copy": "assets/logo.png"}]}]}
//
// The root name is the project name exposed to templates; its folders and
// files are created directly under the workspace root. File content is a
// text/template; copy references are fetched relative to the description.
package scaffold

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"text/template"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/didact/internal/apperr"
	"github.com/starford/didact/internal/fetcher"
	"github.com/starford/didact/internal/workspace"
)

// Description is the root of a scaffold document.
type Description struct {
	Name    string   `json:"name"`
	Folders []Folder `json:"folders"`
	Files   []File   `json:"files"`
}

// Validate checks names and file sources throughout the tree.
func (d Description) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Folders),
		validation.Field(&d.Files),
	)
}

// Folder is a directory with nested folders and files.
type Folder struct {
	Name    string   `json:"name"`
	Folders []Folder `json:"folders"`
	Files   []File   `json:"files"`
}

// Validate checks the folder name and its children.
func (f Folder) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.By(plainName)),
		validation.Field(&f.Folders),
		validation.Field(&f.Files),
	)
}

// File is created either from inline Content or by copying Copy.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
	Copy    string `json:"copy,omitempty"`
}

// Validate checks the file name and that at most one source is set.
func (f File) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.By(plainName)),
		validation.Field(&f.Copy, validation.When(f.Content != "",
			validation.Empty.Error("cannot be combined with content"))),
	)
}

func plainName(v any) error {
	s, _ := v.(string)
	if s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return errors.New("must be a plain file name")
	}
	return nil
}

// Parse decodes and validates a description.
func Parse(data []byte) (*Description, error) {
	var d Description
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &apperr.ScaffoldError{Msg: "malformed project description", Err: err}
	}
	if err := d.Validate(); err != nil {
		return nil, &apperr.ScaffoldError{Msg: "invalid project description", Err: err}
	}
	return &d, nil
}

// Report lists what Apply did, as workspace-relative slash paths.
type Report struct {
	Folders   []string `json:"folders"`
	Created   []string `json:"created"`
	Unchanged []string `json:"unchanged"`
	Conflicts []string `json:"conflicts"`
}

// Fetcher loads descriptions and copied files.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Scaffolder applies descriptions to a workspace.
type Scaffolder struct {
	ws      *workspace.FS
	fetcher Fetcher
	logger  *slog.Logger
}

// New returns a Scaffolder writing into ws.
func New(ws *workspace.FS, f Fetcher, logger *slog.Logger) *Scaffolder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scaffolder{ws: ws, fetcher: f, logger: logger}
}

type templateData struct {
	Name      string
	Workspace string
}

// ScaffoldFrom fetches the description at ref and applies it. Copy sources
// resolve relative to ref.
func (s *Scaffolder) ScaffoldFrom(ctx context.Context, ref string) (*Report, error) {
	data, err := s.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, &apperr.ScaffoldError{Msg: "load project description " + ref, Err: err}
	}
	d, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, d, ref)
}

// Apply creates every folder and file of d. Existing files with identical
// content are skipped; files with different content are never overwritten
// and are returned as a ScaffoldError listing the conflicts alongside the
// report.
func (s *Scaffolder) Apply(ctx context.Context, d *Description, base string) (*Report, error) {
	if !s.ws.Defined() {
		return nil, &apperr.ScaffoldError{Msg: "no workspace folder", Err: &apperr.NoWorkspaceError{}}
	}
	if err := s.ws.Create(); err != nil {
		return nil, &apperr.ScaffoldError{Msg: "create workspace folder", Err: err}
	}

	a := &applier{
		s:    s,
		base: base,
		data: templateData{Name: d.Name, Workspace: s.ws.Root()},
		rep:  &Report{},
	}
	if err := a.files(ctx, "", d.Files); err != nil {
		return a.rep, err
	}
	if err := a.folders(ctx, "", d.Folders); err != nil {
		return a.rep, err
	}
	if len(a.rep.Conflicts) > 0 {
		return a.rep, &apperr.ScaffoldError{Msg: "files already exist with different content", Conflicts: a.rep.Conflicts}
	}
	s.logger.Info("project scaffolded",
		slog.String("project", d.Name),
		slog.Int("created", len(a.rep.Created)),
		slog.Int("unchanged", len(a.rep.Unchanged)),
	)
	return a.rep, nil
}

type applier struct {
	s    *Scaffolder
	base string
	data templateData
	rep  *Report
}

func (a *applier) folders(ctx context.Context, dir string, folders []Folder) error {
	for _, f := range folders {
		p := path.Join(dir, f.Name)
		if err := a.s.ws.MkdirAll(p); err != nil {
			return &apperr.ScaffoldError{Msg: "create folder " + p, Err: err}
		}
		a.rep.Folders = append(a.rep.Folders, p)
		if err := a.files(ctx, p, f.Files); err != nil {
			return err
		}
		if err := a.folders(ctx, p, f.Folders); err != nil {
			return err
		}
	}
	return nil
}

func (a *applier) files(ctx context.Context, dir string, files []File) error {
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := path.Join(dir, f.Name)
		content, err := a.content(ctx, f)
		if err != nil {
			return &apperr.ScaffoldError{Msg: "prepare " + p, Err: err}
		}
		res, err := a.s.ws.WriteNew(p, content)
		if err != nil {
			return &apperr.ScaffoldError{Msg: "write " + p, Err: err}
		}
		switch res {
		case workspace.Created:
			a.rep.Created = append(a.rep.Created, p)
		case workspace.Unchanged:
			a.rep.Unchanged = append(a.rep.Unchanged, p)
		case workspace.Conflict:
			a.rep.Conflicts = append(a.rep.Conflicts, p)
		}
	}
	return nil
}

func (a *applier) content(ctx context.Context, f File) ([]byte, error) {
	if f.Copy != "" {
		return a.s.fetcher.Fetch(ctx, fetcher.Resolve(a.base, f.Copy))
	}
	tmpl, err := template.New(f.Name).Option("missingkey=error").Parse(f.Content)
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, a.data); err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	return buf.Bytes(), nil
}
