// Package handler turns HTTP requests into service calls and service
// results into JSON responses.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/family-catalog/internal/apperror"
)

// maxJSONBody caps request bodies decoded by decodeJSON.
const maxJSONBody = 1 << 20

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorKind maps an error onto its HTTP status and machine-readable kind.
// Anything that is not an *apperror.AppError is an internal error, and its
// text never reaches the client.
func errorKind(err error) (int, string, bool) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, "internal_error", false
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error", true
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", true
	case errors.Is(err, apperror.ErrNotWhitelisted):
		return http.StatusForbidden, "not_whitelisted", true
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden", true
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found", true
	case errors.Is(err, apperror.ErrAccountCreation):
		return http.StatusConflict, "account_creation_failed", true
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict", true
	case errors.Is(err, apperror.ErrLookupFailed):
		return http.StatusServiceUnavailable, "lookup_failed", true
	case errors.Is(err, apperror.ErrUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable", true
	}
	return http.StatusInternalServerError, "internal_error", false
}

func writeError(w http.ResponseWriter, err error) {
	status, kind, known := errorKind(err)
	if !known {
		slog.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, status, ErrorResponse{Error: kind, Message: "An internal error occurred"})
		return
	}

	var appErr *apperror.AppError
	errors.As(err, &appErr)
	writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message})
}

// decodeJSON reads a JSON body into dst and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON: "+err.Error())
	}
	return nil
}
