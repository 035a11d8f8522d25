package hubspot

import (
	"encoding/json"
	"fmt"
)

// Error is a non-2xx response from the HubSpot API. The body is kept verbatim
// so the gateway can relay it.
type Error struct {
	Operation string
	Status    int
	Message   string
	Body      []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("hubspot %s: %s", e.Operation, e.Message)
}

// StatusCode returns the upstream HTTP status.
func (e *Error) StatusCode() int { return e.Status }

// UpstreamMessage returns HubSpot's message, or a generic status line.
func (e *Error) UpstreamMessage() string { return e.Message }

// Details returns the upstream body as a JSON value, or as a string when the
// body is not JSON. An empty body yields nil.
func (e *Error) Details() any {
	if len(e.Body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(e.Body, &v); err != nil {
		return string(e.Body)
	}
	return v
}

// newError builds an Error, preferring HubSpot's own "message" field.
func newError(op string, status int, body []byte) *Error {
	msg := fmt.Sprintf("Request failed with status code %d", status)
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		msg = payload.Message
	}
	return &Error{Operation: op, Status: status, Message: msg, Body: body}
}
