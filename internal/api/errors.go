package api

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Error is the uniform error envelope: {"error": string, "details": any|null}.
type Error struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Details any    `json:"details"`
}

func (e *Error) Error() string { return e.Message }

// upstreamError is implemented by failures that carry a remote status and body.
type upstreamError interface {
	error
	StatusCode() int
	UpstreamMessage() string
	Details() any
}

// NewValidationError creates a 400 error.
func NewValidationError(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// NewNotFoundError creates a 404 error.
func NewNotFoundError(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

// NewInternalError creates a 500 error.
func NewInternalError(message string, details any) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: message, Details: details}
}

// FromError classifies err into an envelope. Upstream failures keep their
// status and body; deadline overruns become 504; anything else is a 500.
func FromError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var up upstreamError
	if errors.As(err, &up) {
		status := up.StatusCode()
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return &Error{Status: status, Message: up.UpstreamMessage(), Details: up.Details()}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Status: http.StatusGatewayTimeout, Message: "Upstream request timed out"}
	}

	return NewInternalError(err.Error(), nil)
}

// WriteError writes an Error as a JSON response with its status code.
func WriteError(w http.ResponseWriter, apiErr *Error) {
	status := apiErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteJSON(w, status, apiErr)
}

// Fail logs err against the request and writes its envelope.
func Fail(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	apiErr := FromError(err)
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("correlationId", CorrelationID(r.Context())),
		zap.Int("status", apiErr.Status),
		zap.Error(err),
	}
	if apiErr.Details != nil {
		fields = append(fields, zap.Any("details", apiErr.Details))
	}
	if apiErr.Status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Warn("request failed", fields...)
	}
	WriteError(w, apiErr)
}
