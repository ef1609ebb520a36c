// Package httpx maps service outcomes onto the JSON wire surface. It is the
// only place that turns the error taxonomy into status codes, so handlers
// stay a thin translation layer.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"skald/backend/internal/platform/apperror"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error maps err onto the wire: NotFound → 404, Forbidden → 403,
// ValidationError → 409 with the offending field, everything else → 500.
// Internal causes are logged, never serialized.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		JSON(w, http.StatusNotFound, errorBody{Error: errorDetail{Kind: "not_found"}})
	case errors.Is(err, apperror.ErrForbidden):
		JSON(w, http.StatusForbidden, errorBody{Error: errorDetail{Kind: "forbidden"}})
	default:
		if ve, ok := apperror.IsValidation(err); ok {
			JSON(w, http.StatusConflict, errorBody{Error: errorDetail{Kind: "validation_conflict", Field: ve.Field}})
			return
		}
		logger.Error("internal error", zap.Error(err))
		JSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{Kind: "internal"}})
	}
}

// Unauthorized writes a 401 without detail; used for failed logins so the
// response never reveals whether the username exists.
func Unauthorized(w http.ResponseWriter) {
	JSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{Kind: "unauthorized"}})
}

// Decode parses the request body as JSON into v. Returns false after writing
// a 400 response when the body is malformed.
func Decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		JSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{Kind: "bad_request"}})
		return false
	}
	return true
}
