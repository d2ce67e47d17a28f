package api

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/didact/internal/actions"
	"github.com/starford/didact/internal/dispatch"
)

// Dispatch handles POST /api/dispatch.
//
// A settled outcome is always 200, failed or not: the failure belongs to the
// link, not to the request.
//
//	@Summary		Dispatch one action link of a tutorial
//	@Tags			actions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DispatchRequest	true	"Action index or href"
//	@Success		200		{object}	dispatch.Outcome
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dispatch [post]
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if !decode(w, r, &req) {
		return
	}
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Href, validation.When(req.Index == nil, validation.Required.Error("index or href is required"))),
	)
	if invalid(w, err) {
		return
	}

	var o dispatch.Outcome
	if req.Index != nil {
		o, err = h.svc.Dispatch(r.Context(), req.URI, *req.Index)
	} else {
		o, err = h.svc.DispatchLink(r.Context(), req.URI, req.Href)
	}
	if err != nil {
		writeError(w, "dispatch", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Run handles POST /api/run.
//
//	@Summary		Dispatch several actions of a tutorial in order
//	@Tags			actions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RunRequest	true	"Indexes; empty runs every command link"
//	@Success		200		{object}	RunResponse
//	@Security		BearerAuth
//	@Router			/run [post]
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if !decode(w, r, &req) {
		return
	}
	outcomes, err := h.svc.Run(r.Context(), req.URI, req.Indexes)
	if err != nil {
		writeError(w, "run", err)
		return
	}
	resp := RunResponse{Outcomes: outcomes}
	if resp.Outcomes == nil {
		resp.Outcomes = []dispatch.Outcome{}
	}
	for _, o := range outcomes {
		if o.State == dispatch.Failed {
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Execute handles POST /api/execute: a capability invoked outside any link.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if !decode(w, r, &req) {
		return
	}
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Capability, validation.Required),
	)
	if invalid(w, err) {
		return
	}
	o, err := h.svc.Execute(r.Context(), req.URI, req.Capability, req.Params, req.Named)
	if err != nil {
		writeError(w, "execute", err)
		return
	}
	writeOutcome(w, o)
}

// ValidateRequirements handles POST /api/requirements/validate?uri=.
//
//	@Summary		Probe every requirement of a tutorial
//	@Tags			actions
//	@Produce		json
//	@Param			uri	query		string	false	"Tutorial URI; empty means the current tutorial"
//	@Success		200	{object}	dispatch.Outcome
//	@Security		BearerAuth
//	@Router			/requirements/validate [post]
func (h *Handler) ValidateRequirements(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.ValidateAll(r.Context(), r.URL.Query().Get("uri"))
	if err != nil {
		writeError(w, "validate requirements", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Scaffold handles POST /api/scaffold.
func (h *Handler) Scaffold(w http.ResponseWriter, r *http.Request) {
	var req ScaffoldRequest
	if !decode(w, r, &req) {
		return
	}
	err := validation.ValidateStruct(&req,
		validation.Field(&req.ProjectFile, validation.Required),
	)
	if invalid(w, err) {
		return
	}
	o, err := h.svc.Execute(r.Context(), req.URI, actions.ScaffoldProject, []string{req.ProjectFile}, nil)
	if err != nil {
		writeError(w, "scaffold", err)
		return
	}
	writeOutcome(w, o)
}

// ListTerminals handles GET /api/terminals.
func (h *Handler) ListTerminals(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	if h.terms != nil {
		names = append(names, h.terms.Names()...)
	}
	writeJSON(w, http.StatusOK, TerminalListResponse{Terminals: names})
}

// StartTerminal handles POST /api/terminals.
func (h *Handler) StartTerminal(w http.ResponseWriter, r *http.Request) {
	var req TerminalRequest
	if !decode(w, r, &req) {
		return
	}
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required),
	)
	if invalid(w, err) {
		return
	}
	h.terminal(w, r, actions.StartTerminalWithName, req.Name)
}

// SendTerminal handles POST /api/terminals/{name}/send.
func (h *Handler) SendTerminal(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if !decode(w, r, &req) {
		return
	}
	if !trimmed(req.Text) {
		writeJSON(w, http.StatusBadRequest, errorBody("text: cannot be blank."))
		return
	}
	h.terminal(w, r, actions.SendNamedTerminalAString, pathParam(r, "name"), req.Text)
}

// InterruptTerminal handles POST /api/terminals/{name}/interrupt.
func (h *Handler) InterruptTerminal(w http.ResponseWriter, r *http.Request) {
	h.terminal(w, r, actions.SendNamedTerminalCtrlC, pathParam(r, "name"))
}

// CloseTerminal handles DELETE /api/terminals/{name}.
func (h *Handler) CloseTerminal(w http.ResponseWriter, r *http.Request) {
	h.terminal(w, r, actions.CloseNamedTerminal, pathParam(r, "name"))
}

// terminal routes terminal operations through the dispatcher so they are
// reported like any other action.
func (h *Handler) terminal(w http.ResponseWriter, r *http.Request, capability string, params ...string) {
	o, err := h.svc.Execute(r.Context(), "", capability, params, nil)
	if err != nil {
		writeError(w, "terminal", err)
		return
	}
	writeOutcome(w, o)
}

// TerminalOutput handles GET /api/terminals/{name}/output.
func (h *Handler) TerminalOutput(w http.ResponseWriter, r *http.Request) {
	if h.terms == nil {
		writeJSON(w, http.StatusNotFound, errorBody("terminals unavailable"))
		return
	}
	name := pathParam(r, "name")
	out, err := h.terms.Output(name)
	if err != nil {
		writeError(w, "terminal output", err)
		return
	}
	writeJSON(w, http.StatusOK, TerminalOutputResponse{Name: name, Output: out})
}
