package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError so the API has one
// success shape and one error shape:
//
//	{"error": "insufficient_funds", "code": "NOT_ENOUGH_MONEY", "message": "..."}
//
// Clients switch on "code". "error" is the coarse kind, "message" is for humans.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/idle-clicker/internal/apperror"
)

// maxBodyBytes caps JSON request bodies. Credentials and role edits are tiny.
const maxBodyBytes = 64 << 10

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON sends data with the given status. Headers go out before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already sent, all we can do is log
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorMapping ties a sentinel to its HTTP status and error kind. Order
// matters only in that the first match wins.
var errorMapping = []struct {
	sentinel error
	status   int
	kind     string
}{
	{apperror.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperror.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{apperror.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperror.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperror.ErrConflict, http.StatusConflict, "conflict"},
	{apperror.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
	{apperror.ErrSeedFailed, http.StatusBadGateway, "seed_failed"},
}

// writeError maps a domain error to its HTTP status and sends it.
//
// The service layer never knows about status codes; this is the only place
// sentinels become HTTP. Anything unrecognised is a 500 whose message hides
// the cause (it may contain SQL or file paths) and is logged instead.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		for _, m := range errorMapping {
			if errors.Is(err, m.sentinel) {
				if m.status >= http.StatusInternalServerError {
					logger.Error("upstream failure", slog.String("error", err.Error()))
				}
				writeJSON(w, m.status, ErrorResponse{
					Error:   m.kind,
					Code:    appErr.Code,
					Message: appErr.Message,
				})
				return
			}
		}
	}

	logger.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Code:    apperror.CodeInternal,
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a single JSON object into dst. Malformed or oversized
// bodies become a VALIDATION_ERROR on field "body".
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}
