package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/didact/internal/apperr"
	"github.com/starford/didact/internal/dispatch"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps the error taxonomy onto HTTP. Unknown errors are internal
// and their text is not exposed.
func statusFor(err error) (int, string) {
	var (
		pe *apperr.ParseError
		fe *apperr.FetchError
		nw *apperr.NoWorkspaceError
	)
	switch {
	case errors.As(err, &pe):
		return http.StatusUnprocessableEntity, pe.Error()
	case errors.As(err, &fe):
		return http.StatusBadGateway, fe.Error()
	case errors.As(err, &nw):
		return http.StatusPreconditionFailed, nw.Error()
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, apperr.ErrAlreadyExists), errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, apperr.ErrInvalid):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(w http.ResponseWriter, op string, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorBody(msg))
}

// writeOutcome answers a direct capability call: a failed outcome takes the
// status of its error, with the outcome as the body.
func writeOutcome(w http.ResponseWriter, o dispatch.Outcome) {
	status := http.StatusOK
	if o.State == dispatch.Failed && o.Err != nil {
		status, _ = statusFor(o.Err)
	}
	writeJSON(w, status, o)
}
