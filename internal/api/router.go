package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/didact/internal/tutorial"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// terms, if non-nil, backs the terminal listing and output routes.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *tutorial.Service, terms Terminals, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, terms)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Registry.
	r.Get("/tutorials", h.ListTutorials)
	r.Post("/tutorials", h.RegisterTutorial)
	r.Delete("/tutorials", h.ClearTutorials)
	r.Get("/categories", h.ListCategories)
	r.Get("/categories/{category}", h.ListCategoryTutorials)

	// Tree view.
	r.Get("/tree", h.Tree)
	r.Post("/tree/refresh", h.RefreshTree)

	// Documents.
	r.Post("/open", h.Open)
	r.Get("/current", h.Current)
	r.Get("/document", h.GetDocument)
	r.Get("/document/html", h.RenderDocument)
	r.Get("/document/requirements", h.Requirements)
	r.Get("/document/commands", h.Commands)

	// Actions.
	r.Get("/capabilities", h.Capabilities)
	r.Post("/dispatch", h.Dispatch)
	r.Post("/run", h.Run)
	r.Post("/execute", h.Execute)
	r.Post("/requirements/validate", h.ValidateRequirements)
	r.Post("/scaffold", h.Scaffold)

	// Terminals.
	r.Get("/terminals", h.ListTerminals)
	r.Post("/terminals", h.StartTerminal)
	r.Post("/terminals/{name}/send", h.SendTerminal)
	r.Post("/terminals/{name}/interrupt", h.InterruptTerminal)
	r.Delete("/terminals/{name}", h.CloseTerminal)
	r.Get("/terminals/{name}/output", h.TerminalOutput)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
