package server

import (
	"errors"
	"net/http"

	"c4arch/assistant"
	"c4arch/canvas"
	"c4arch/client"
	"c4arch/codepanel"
	"c4arch/diagram"
	"c4arch/editor"
	"c4arch/export"
	"c4arch/session"
	"c4arch/workspace"
)

// localErrors are validation failures decided without a network call.
var localErrors = []error{
	codepanel.ErrApplyDisabled,
	workspace.ErrEmptyRequirements,
	assistant.ErrEmptyMessage,
	assistant.ErrNoSuggestion,
	client.ErrPasswordMismatch,
	client.ErrMissingCredentials,
	editor.ErrEntityNotFound,
	editor.ErrNoDiagram,
	editor.ErrInvalidAction,
	canvas.ErrIncompleteConnection,
	canvas.ErrUnknownElement,
	canvas.ErrReadOnly,
	diagram.ErrInvalidSnapshot,
	export.ErrEmptyDiagram,
	errUnknownFormat,
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, workspace.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, client.ErrRemote):
		return http.StatusBadGateway
	}
	for _, local := range localErrors {
		if errors.Is(err, local) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// writeError writes {error}. Remote failures carry the generic notice
// rather than upstream detail.
func (s *Server) writeError(w http.ResponseWriter, err error, notice string) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusBadGateway:
		if notice != "" {
			msg = notice
		} else {
			msg = "The diagram service is unavailable. Please try again."
		}
	case http.StatusInternalServerError:
		s.logger.Error("request failed", "error", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
