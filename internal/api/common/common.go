// Package common holds shared helpers for the REST API handlers.
package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/docuvault/docuvault-server/internal/model"
)

// WriteJSONResponse writes a JSON response with the given data.
func WriteJSONResponse(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// WriteErrorResponse writes a standardized error response.
func WriteErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	errorResp := map[string]string{
		"error": message,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}

// WriteServiceError maps a service-layer error to an HTTP response:
// access-control failures become 403, missing records 404, uniqueness and
// domain-rule violations 400, anything else 500.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case model.IsAccessControlError(err):
		WriteErrorResponse(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, model.ErrNotFound):
		WriteErrorResponse(w, "not found", http.StatusNotFound)
	case model.IsNotUniqueError(err), model.IsModelError(err):
		WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
	default:
		WriteErrorResponse(w, "internal server error", http.StatusInternalServerError)
	}
}
