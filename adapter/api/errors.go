package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fleetworks/workshop/internal/appointments/domain"
)

// KindBadRequest marks malformed input that never reached the domain.
const KindBadRequest = "bad_request"

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindSlotConflict, domain.KindStaleState,
		domain.KindTerminalStateViolation, domain.KindInvalidTransition:
		return http.StatusConflict
	case domain.KindBackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Domain errors keep their kind and code; anything
// else is reported as an internal error without leaking its text.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		writeJSON(w, StatusFor(de.Kind), ErrorResponse{Error: ErrorBody{
			Kind:    string(de.Kind),
			Code:    de.Code,
			Field:   de.Field,
			Message: de.Message,
		}})
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: ErrorBody{
			Kind:    string(domain.KindBackendUnavailable),
			Code:    "timeout",
			Message: "the request timed out",
		}})
		return
	}

	logger.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: ErrorBody{
		Kind:    "internal",
		Message: http.StatusText(http.StatusInternalServerError),
	}})
}

func writeBadRequest(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
		Kind:    KindBadRequest,
		Code:    "invalid_input",
		Field:   field,
		Message: message,
	}})
}
