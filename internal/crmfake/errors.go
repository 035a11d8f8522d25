package crmfake

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/johnwards/crmproxy/internal/api"
)

// HubSpot error categories.
const (
	CategoryValidationError       = "VALIDATION_ERROR"
	CategoryObjectNotFound        = "OBJECT_NOT_FOUND"
	CategoryInvalidAuthentication = "INVALID_AUTHENTICATION"
	CategoryRateLimits            = "RATE_LIMITS"
	CategoryInternalError         = "INTERNAL_ERROR"
)

// Error is HubSpot's error body.
type Error struct {
	Status        string        `json:"status"`
	Message       string        `json:"message"`
	CorrelationID string        `json:"correlationId"`
	Category      string        `json:"category"`
	Context       any           `json:"context,omitempty"`
	Errors        []ErrorDetail `json:"errors,omitempty"`
}

// ErrorDetail is one entry of Error.Errors or of a batch's errors list.
type ErrorDetail struct {
	Status   string              `json:"status,omitempty"`
	Category string              `json:"category,omitempty"`
	Message  string              `json:"message"`
	Context  map[string][]string `json:"context,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json;charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, category, message string) {
	writeJSON(w, status, Error{
		Status:        "error",
		Message:       message,
		CorrelationID: api.CorrelationID(r.Context()),
		Category:      category,
	})
}

// writeStoreError maps store errors onto HubSpot statuses and categories.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, r, http.StatusNotFound, CategoryObjectNotFound, "resource not found: "+err.Error())
	case errors.Is(err, ErrUnknownType):
		writeError(w, r, http.StatusBadRequest, CategoryValidationError, err.Error())
	case errors.Is(err, ErrInvalidAssociation):
		writeError(w, r, http.StatusBadRequest, CategoryValidationError, "One or more associations are invalid: "+err.Error())
	case errors.Is(err, ErrValidation):
		writeError(w, r, http.StatusBadRequest, CategoryValidationError, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, CategoryInternalError, err.Error())
	}
}
