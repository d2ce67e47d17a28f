// Package dispatch invokes the capability named by an action link and
// reports the outcome against that link.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/didact/internal/apperr"
	"github.com/starford/didact/internal/models"
)

// State is a dispatch lifecycle stage.
type State string

const (
	Pending             State = "pending"
	ResolvingParameters State = "resolving_parameters"
	Invoking            State = "invoking"
	Succeeded           State = "succeeded"
	Failed              State = "failed"
)

// Call is one action to dispatch together with the document it came from.
type Call struct {
	Action models.Action
	// RunID groups the calls of one Run; empty for single dispatches.
	RunID string
	// Source is the URI of the calling tutorial; relative parameters resolve
	// against it.
	Source string
	// Document holds every action of the calling tutorial, for the batch
	// capabilities.
	Document []models.Action
}

// Handler performs a capability. The returned value is attached to the
// outcome as its result.
type Handler func(ctx context.Context, call Call) (any, error)

// Capability is a named dispatch target.
type Capability struct {
	Name      string
	MinParams int
	Handler   Handler
}

// RequirementStatus is the badge update produced by a requirement probe.
type RequirementStatus struct {
	ID        string `json:"id"`
	Satisfied bool   `json:"satisfied"`
	Detail    string `json:"detail,omitempty"`
}

// Outcome is the settled result of a dispatch, attributable to its link via
// Index and Href.
type Outcome struct {
	Index       int                `json:"index"`
	Href        string             `json:"href"`
	Capability  string             `json:"capability"`
	Source      string             `json:"source,omitempty"`
	RunID       string             `json:"runId,omitempty"`
	State       State              `json:"state"`
	Trace       []State            `json:"trace"`
	Notice      string             `json:"notice,omitempty"`
	Error       string             `json:"error,omitempty"`
	Result      any                `json:"result,omitempty"`
	Requirement *RequirementStatus `json:"requirement,omitempty"`
	Err         error              `json:"-"`
}

// Reporter receives every settled outcome.
type Reporter interface {
	Report(ctx context.Context, o Outcome)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, o Outcome)

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, o Outcome) { f(ctx, o) }

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithReporter sets the outcome reporter.
func WithReporter(r Reporter) Option {
	return func(d *Dispatcher) { d.reporter = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithNotificationsDisabled suppresses success notices. Failure detail is
// always reported.
func WithNotificationsDisabled(disabled bool) Option {
	return func(d *Dispatcher) { d.quiet = disabled }
}

// Dispatcher holds the capability table.
type Dispatcher struct {
	mu   sync.RWMutex
	caps map[string]Capability

	reporter Reporter
	logger   *slog.Logger
	quiet    bool
}

// New returns an empty Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{caps: make(map[string]Capability)}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

var capabilityName = regexp.MustCompile(`^[A-Za-z_][\w-]*(\.[\w-]+)+$`)

// Register adds or replaces a capability.
func (d *Dispatcher) Register(c Capability) error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Match(capabilityName)),
		validation.Field(&c.MinParams, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("dispatch: register %q: %w", c.Name, err)
	}
	if c.Handler == nil {
		return fmt.Errorf("dispatch: register %q: nil handler", c.Name)
	}
	d.mu.Lock()
	d.caps[c.Name] = c
	d.mu.Unlock()
	return nil
}

// Capabilities lists registered capability names, sorted.
func (d *Dispatcher) Capabilities() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.caps))
	for name := range d.caps {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs one action to settlement and reports the outcome. It never
// returns an error; failures are carried in the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) Outcome {
	a := call.Action
	o := Outcome{
		Index:      a.Index,
		Href:       a.Href,
		Capability: a.Capability,
		Source:     call.Source,
		RunID:      call.RunID,
		State:      Pending,
		Trace:      []State{Pending},
	}
	step := func(s State) {
		o.State = s
		o.Trace = append(o.Trace, s)
	}

	step(ResolvingParameters)
	c, err := d.resolve(a)
	if err == nil {
		step(Invoking)
		o.Result, err = invoke(ctx, c, call)
	}
	if err != nil {
		step(Failed)
		o.Err = err
		o.Error = err.Error()
		o.Notice = failureNotice(a, err)
		d.logger.Warn("action failed",
			slog.String("capability", a.Capability),
			slog.Int("index", a.Index),
			slog.String("source", call.Source),
			slog.String("error", err.Error()),
		)
	} else {
		step(Succeeded)
		if rs, ok := o.Result.(RequirementStatus); ok {
			o.Requirement = &rs
		}
		if !d.quiet {
			o.Notice = successNotice(a)
		}
	}

	if d.reporter != nil {
		d.reporter.Report(ctx, o)
	}
	return o
}

// Run dispatches seq one action at a time, in order, on behalf of the
// document whose actions are doc (seq itself when doc is nil). A failed
// action never stops the run; cancelling ctx stops before the next action and
// leaves completed side effects in place. It returns the outcomes of the
// actions dispatched, all sharing a fresh run ID.
func (d *Dispatcher) Run(ctx context.Context, source string, doc, seq []models.Action) []Outcome {
	if doc == nil {
		doc = seq
	}
	runID := uuid.NewString()
	out := make([]Outcome, 0, len(seq))
	for _, a := range seq {
		if ctx.Err() != nil {
			d.logger.Info("run cancelled",
				slog.String("run", runID),
				slog.String("source", source),
				slog.Int("dispatched", len(out)),
				slog.Int("remaining", len(seq)-len(out)),
			)
			break
		}
		out = append(out, d.Dispatch(ctx, Call{Action: a, Source: source, Document: doc, RunID: runID}))
	}
	return out
}

func (d *Dispatcher) resolve(a models.Action) (Capability, error) {
	if err := validation.Validate(a.Capability, validation.Required, validation.Match(capabilityName)); err != nil {
		return Capability{}, &apperr.DispatchError{Capability: a.Capability, Msg: "malformed capability name: " + err.Error()}
	}
	d.mu.RLock()
	c, ok := d.caps[a.Capability]
	d.mu.RUnlock()
	if !ok {
		return Capability{}, &apperr.DispatchError{Capability: a.Capability, Msg: "unknown capability"}
	}
	if len(a.Params) < c.MinParams {
		return Capability{}, &apperr.DispatchError{
			Capability: a.Capability,
			Msg:        fmt.Sprintf("expected at least %d parameters, got %d", c.MinParams, len(a.Params)),
		}
	}
	if err := validation.Validate(a.Params[:c.MinParams], validation.Each(validation.Required)); err != nil {
		return Capability{}, &apperr.DispatchError{Capability: a.Capability, Msg: "parameters: " + err.Error()}
	}
	return c, nil
}

func invoke(ctx context.Context, c Capability, call Call) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch %s: panic: %v", c.Name, r)
		}
	}()
	return c.Handler(ctx, call)
}

func successNotice(a models.Action) string {
	if msg := a.Named["completion"]; msg != "" {
		return msg
	}
	return "Didact action completed: " + a.Capability
}

func failureNotice(a models.Action, err error) string {
	if msg := a.Named["error"]; msg != "" {
		return fmt.Sprintf("%s (%v)", msg, err)
	}
	return err.Error()
}
