package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/didact/internal/models"
	"github.com/starford/didact/internal/tutorial"
)

// Terminals is the read side of the terminal manager.
type Terminals interface {
	Names() []string
	Output(name string) (string, error)
}

// Handler holds API route handlers.
type Handler struct {
	svc   *tutorial.Service
	terms Terminals
}

// NewHandler creates a new Handler.
func NewHandler(svc *tutorial.Service, terms Terminals) *Handler {
	return &Handler{svc: svc, terms: terms}
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return false
	}
	return true
}

func invalid(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}
	writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	return true
}

// pathParam extracts a URL parameter, accepting encoded values.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListTutorials handles GET /api/tutorials.
//
//	@Summary		List registered tutorials in registration order
//	@Tags			tutorials
//	@Produce		json
//	@Success		200	{object}	TutorialListResponse
//	@Security		BearerAuth
//	@Router			/tutorials [get]
func (h *Handler) ListTutorials(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Registry().List(r.Context())
	if err != nil {
		writeError(w, "list tutorials", err)
		return
	}
	if items == nil {
		items = []models.Tutorial{}
	}
	writeJSON(w, http.StatusOK, TutorialListResponse{Tutorials: items})
}

// RegisterTutorial handles POST /api/tutorials.
//
//	@Summary		Register a tutorial under a name and category
//	@Tags			tutorials
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RegisterTutorialRequest	true	"Tutorial to register"
//	@Success		201		{object}	models.Tutorial
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tutorials [post]
func (h *Handler) RegisterTutorial(w http.ResponseWriter, r *http.Request) {
	var req RegisterTutorialRequest
	if !decode(w, r, &req) {
		return
	}
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required),
		validation.Field(&req.URI, validation.Required),
	)
	if invalid(w, err) {
		return
	}
	if err := h.svc.Register(r.Context(), req.Name, req.URI, req.Category); err != nil {
		writeError(w, "register tutorial", err)
		return
	}
	writeJSON(w, http.StatusCreated, models.Tutorial{Name: req.Name, Category: req.Category, SourceURI: req.URI})
}

// ClearTutorials handles DELETE /api/tutorials.
func (h *Handler) ClearTutorials(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearRegistry(r.Context()); err != nil {
		writeError(w, "clear registry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories handles GET /api/categories.
//
//	@Summary		List distinct categories
//	@Tags			tutorials
//	@Produce		json
//	@Success		200	{array}	string
//	@Security		BearerAuth
//	@Router			/categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Registry().Categories(r.Context())
	if err != nil {
		writeError(w, "list categories", err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// ListCategoryTutorials handles GET /api/categories/{category}.
func (h *Handler) ListCategoryTutorials(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.Registry().Tutorials(r.Context(), pathParam(r, "category"))
	if err != nil {
		writeError(w, "list category", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// Tree handles GET /api/tree.
//
//	@Summary		Fully expanded category, tutorial and heading tree
//	@Tags			tree
//	@Produce		json
//	@Success		200	{object}	TreeResponse
//	@Security		BearerAuth
//	@Router			/tree [get]
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.svc.Tree().Expand(r.Context())
	if err != nil {
		writeError(w, "expand tree", err)
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{Nodes: nodes})
}

// RefreshTree handles POST /api/tree/refresh.
func (h *Handler) RefreshTree(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Refresh(r.Context()); err != nil {
		writeError(w, "refresh tree", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Open handles POST /api/open.
//
//	@Summary		Open a tutorial and make it current
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenRequest	true	"URI, or registered name and category"
//	@Success		200		{object}	Document
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/open [post]
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if !decode(w, r, &req) {
		return
	}
	err := validation.ValidateStruct(&req,
		validation.Field(&req.URI, validation.When(req.Name == "", validation.Required.Error("uri or name is required"))),
	)
	if invalid(w, err) {
		return
	}

	var doc *tutorial.Document
	if req.URI != "" {
		doc, err = h.svc.Open(r.Context(), req.URI)
	} else {
		doc, err = h.svc.Start(r.Context(), req.Name, req.Category)
	}
	if err != nil {
		writeError(w, "open tutorial", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Current handles GET /api/current.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	doc := h.svc.Current()
	if doc == nil {
		writeJSON(w, http.StatusNotFound, errorBody("no tutorial open"))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetDocument handles GET /api/document?uri=.
//
//	@Summary		Parse a tutorial without opening it
//	@Tags			documents
//	@Produce		json
//	@Param			uri	query		string	false	"Tutorial URI; empty means the current tutorial"
//	@Success		200	{object}	Document
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/document [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		h.Current(w, r)
		return
	}
	doc, err := h.svc.Load(r.Context(), uri)
	if err != nil {
		writeError(w, "load document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// RenderDocument handles GET /api/document/html?uri=.
func (h *Handler) RenderDocument(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.RenderHTML(r.Context(), r.URL.Query().Get("uri"))
	if err != nil {
		writeError(w, "render document", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}

// Requirements handles GET /api/document/requirements?uri=.
func (h *Handler) Requirements(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Requirements(r.Context(), r.URL.Query().Get("uri"))
	if err != nil {
		writeError(w, "gather requirements", err)
		return
	}
	writeJSON(w, http.StatusOK, ActionListResponse{Actions: list})
}

// Commands handles GET /api/document/commands?uri=.
func (h *Handler) Commands(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Commands(r.Context(), r.URL.Query().Get("uri"))
	if err != nil {
		writeError(w, "gather commands", err)
		return
	}
	writeJSON(w, http.StatusOK, ActionListResponse{Actions: list})
}

// Capabilities handles GET /api/capabilities.
func (h *Handler) Capabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Capabilities())
}

// trimmed reports whether s has content after trimming.
func trimmed(s string) bool { return strings.TrimSpace(s) != "" }
