package web

// errors.go turns handler errors into responses.
//
// The technical error is logged with the request ID; the client gets the
// core.MapError message as JSON, or as an HTML fragment for HTMX requests.

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/sellerdash/internal/core"
	"github.com/JonMunkholm/sellerdash/internal/importer"
	"github.com/JonMunkholm/sellerdash/internal/logging"
	"github.com/JonMunkholm/sellerdash/internal/store"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var pe *importer.ParseError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, importer.ErrPresetNotFound),
		errors.Is(err, core.ErrPresetsDisabled):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, importer.ErrWrongStage), errors.Is(err, store.ErrDuplicateSKU),
		errors.Is(err, importer.ErrDuplicatePreset):
		return http.StatusConflict
	case errors.As(err, &pe), errors.Is(err, importer.ErrMappingIncomplete), errors.Is(err, importer.ErrNoValidRows):
		return http.StatusUnprocessableEntity
	case errors.Is(err, importer.ErrUnknownColumn), errors.Is(err, importer.ErrUnknownField),
		errors.Is(err, core.ErrNoSelection), errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, importer.ErrPresetName), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// errBadRequest wraps request decoding failures.
var errBadRequest = errors.New("bad request")

// respondError logs err and writes the user-facing message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= 500 {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
			log.Error("render error alert", "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
