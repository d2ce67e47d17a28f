package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/didact/internal/actions"
	"github.com/starford/didact/internal/apperr"
	"github.com/starford/didact/internal/fetcher"
	"github.com/starford/didact/internal/probe"
	"github.com/starford/didact/internal/scaffold"
)

// Terminals controls named terminals.
type Terminals interface {
	Start(name string) (bool, error)
	Send(name, text string) error
	Interrupt(name string) error
	Close(name string) error
}

// Prober runs requirement probe commands.
type Prober interface {
	Check(ctx context.Context, command, expected string) probe.Result
}

// Workspace is the folder scaffolds write into.
type Workspace interface {
	Root() string
	Exists() bool
	Create() error
}

// Scaffolder materialises project descriptions.
type Scaffolder interface {
	ScaffoldFrom(ctx context.Context, ref string) (*scaffold.Report, error)
}

// Extensions answers whether an extension is installed.
type Extensions interface {
	Installed(id string) bool
}

// Catalog is a fixed set of installed extension ids, matched
// case-insensitively.
type Catalog map[string]struct{}

// NewCatalog builds a Catalog from ids.
func NewCatalog(ids []string) Catalog {
	c := make(Catalog, len(ids))
	for _, id := range ids {
		c[strings.ToLower(strings.TrimSpace(id))] = struct{}{}
	}
	return c
}

// Installed reports whether id is in the catalog.
func (c Catalog) Installed(id string) bool {
	_, ok := c[strings.ToLower(strings.TrimSpace(id))]
	return ok
}

// Backends are the collaborators of the built-in capabilities. A nil backend
// leaves its capabilities unregistered.
type Backends struct {
	Terminals  Terminals
	Prober     Prober
	Workspace  Workspace
	Scaffolder Scaffolder
	Extensions Extensions
}

// UnsatisfiedError reports a requirement that did not hold during
// validate-all.
type UnsatisfiedError struct {
	ID     string
	Detail string
}

func (e *UnsatisfiedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("requirement %s unsatisfied", e.ID)
	}
	return fmt.Sprintf("requirement %s unsatisfied: %s", e.ID, e.Detail)
}

// ValidationSummary is the result of validateAllRequirements.
type ValidationSummary struct {
	Total       int      `json:"total"`
	Satisfied   int      `json:"satisfied"`
	Unsatisfied []string `json:"unsatisfied"`
}

// RegisterBuiltins registers the didact.* capabilities backed by b.
func (d *Dispatcher) RegisterBuiltins(b Backends) error {
	var caps []Capability
	if b.Scaffolder != nil {
		caps = append(caps, Capability{Name: actions.ScaffoldProject, Handler: scaffoldProject(b.Scaffolder)})
	}
	if b.Prober != nil {
		caps = append(caps, Capability{Name: actions.RequirementCheck, MinParams: 2, Handler: requirementCheck(b.Prober)})
	}
	if b.Extensions != nil {
		caps = append(caps, Capability{Name: actions.ExtensionRequirementCheck, MinParams: 2, Handler: extensionCheck(b.Extensions)})
	}
	if b.Workspace != nil {
		caps = append(caps,
			Capability{Name: actions.WorkspaceFolderExistsCheck, MinParams: 1, Handler: workspaceExists(b.Workspace)},
			Capability{Name: actions.CreateWorkspaceFolder, Handler: createWorkspace(b.Workspace)},
		)
	}
	if t := b.Terminals; t != nil {
		caps = append(caps,
			Capability{Name: actions.StartTerminalWithName, MinParams: 1, Handler: func(_ context.Context, c Call) (any, error) {
				created, err := t.Start(c.Action.Params[0])
				return map[string]any{"terminal": c.Action.Params[0], "created": created}, err
			}},
			Capability{Name: actions.SendNamedTerminalAString, MinParams: 2, Handler: func(_ context.Context, c Call) (any, error) {
				return nil, t.Send(c.Action.Params[0], c.Action.Params[1])
			}},
			Capability{Name: actions.SendNamedTerminalCtrlC, MinParams: 1, Handler: func(_ context.Context, c Call) (any, error) {
				return nil, t.Interrupt(c.Action.Params[0])
			}},
			Capability{Name: actions.CloseNamedTerminal, MinParams: 1, Handler: func(_ context.Context, c Call) (any, error) {
				return nil, t.Close(c.Action.Params[0])
			}},
		)
	}
	caps = append(caps,
		Capability{Name: actions.ValidateAllRequirements, Handler: d.validateAll},
		Capability{Name: actions.GatherAllRequirements, Handler: func(_ context.Context, c Call) (any, error) {
			return actions.Requirements(c.Document), nil
		}},
		Capability{Name: actions.GatherAllCommands, Handler: func(_ context.Context, c Call) (any, error) {
			return actions.Commands(c.Document), nil
		}},
	)
	for _, c := range caps {
		if err := d.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func scaffoldProject(s Scaffolder) Handler {
	return func(ctx context.Context, c Call) (any, error) {
		ref := c.Action.Named["projectFilePath"]
		if len(c.Action.Params) > 0 && c.Action.Params[0] != "" {
			ref = c.Action.Params[0]
		}
		if ref == "" {
			return nil, &apperr.DispatchError{Capability: c.Action.Capability, Msg: "no project description given"}
		}
		return s.ScaffoldFrom(ctx, fetcher.Resolve(c.Source, ref))
	}
}

func requirementCheck(p Prober) Handler {
	return func(ctx context.Context, c Call) (any, error) {
		params := c.Action.Params
		expected := ""
		if len(params) > 2 {
			expected = params[2]
		}
		res := p.Check(ctx, params[1], expected)
		st := RequirementStatus{ID: params[0], Satisfied: res.Satisfied}
		switch {
		case res.Err != nil:
			st.Detail = res.Err.Error()
		case !res.Satisfied:
			st.Detail = fmt.Sprintf("output of %q did not contain %q", params[1], expected)
		}
		return st, nil
	}
}

func extensionCheck(e Extensions) Handler {
	return func(_ context.Context, c Call) (any, error) {
		id, ext := c.Action.Params[0], c.Action.Params[1]
		st := RequirementStatus{ID: id, Satisfied: e.Installed(ext)}
		if !st.Satisfied {
			st.Detail = "extension " + ext + " is not installed"
		}
		return st, nil
	}
}

func workspaceExists(w Workspace) Handler {
	return func(_ context.Context, c Call) (any, error) {
		st := RequirementStatus{ID: c.Action.Params[0], Satisfied: w.Exists()}
		if !st.Satisfied {
			st.Detail = "no workspace folder"
		}
		return st, nil
	}
}

func createWorkspace(w Workspace) Handler {
	return func(_ context.Context, _ Call) (any, error) {
		if err := w.Create(); err != nil {
			return nil, err
		}
		return map[string]string{"root": w.Root()}, nil
	}
}

// validateAll probes every requirement of the calling document. Each probe
// is dispatched and reported on its own; every unsatisfied requirement is
// returned, joined.
func (d *Dispatcher) validateAll(ctx context.Context, c Call) (any, error) {
	reqs := actions.Requirements(c.Document)
	sum := ValidationSummary{Total: len(reqs)}
	var errs []error
	for _, r := range reqs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		o := d.Dispatch(ctx, Call{Action: r, Source: c.Source, Document: c.Document})
		switch {
		case o.State == Failed:
			sum.Unsatisfied = append(sum.Unsatisfied, r.RequirementID())
			errs = append(errs, &UnsatisfiedError{ID: r.RequirementID(), Detail: o.Error})
		case o.Requirement != nil && !o.Requirement.Satisfied:
			sum.Unsatisfied = append(sum.Unsatisfied, o.Requirement.ID)
			errs = append(errs, &UnsatisfiedError{ID: o.Requirement.ID, Detail: o.Requirement.Detail})
		default:
			sum.Satisfied++
		}
	}
	return sum, errors.Join(errs...)
}
