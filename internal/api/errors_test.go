package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/johnwards/crmproxy/internal/api"
	"github.com/johnwards/crmproxy/internal/hubspot"
	"github.com/johnwards/crmproxy/internal/insight"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
		details any
	}{
		{
			name:    "api error passes through",
			err:     api.NewNotFoundError("No deal pipelines found"),
			status:  http.StatusNotFound,
			message: "No deal pipelines found",
		},
		{
			name: "wrapped hubspot error keeps status and body",
			err: fmt.Errorf("list contacts: %w", &hubspot.Error{
				Operation: "list_contacts",
				Status:    http.StatusTooManyRequests,
				Message:   "You have reached your secondly limit.",
				Body:      []byte(`{"category":"RATE_LIMITS"}`),
			}),
			status:  http.StatusTooManyRequests,
			message: "You have reached your secondly limit.",
			details: map[string]any{"category": "RATE_LIMITS"},
		},
		{
			name:    "hubspot non-JSON body becomes string details",
			err:     &hubspot.Error{Status: http.StatusBadGateway, Message: "Request failed with status code 502", Body: []byte("<html>bad gateway</html>")},
			status:  http.StatusBadGateway,
			message: "Request failed with status code 502",
			details: "<html>bad gateway</html>",
		},
		{
			name:    "model error",
			err:     &insight.UpstreamError{Status: http.StatusServiceUnavailable, Message: "overloaded", Detail: []any{"x"}},
			status:  http.StatusServiceUnavailable,
			message: "overloaded",
			details: []any{"x"},
		},
		{
			name:    "upstream status outside error range",
			err:     &insight.UpstreamError{Status: 0, Message: "transport"},
			status:  http.StatusBadGateway,
			message: "transport",
		},
		{
			name:    "deadline",
			err:     fmt.Errorf("hubspot list_contacts: %w", context.DeadlineExceeded),
			status:  http.StatusGatewayTimeout,
			message: "Upstream request timed out",
		},
		{
			name:    "anything else",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			message: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := api.FromError(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.message, got.Message)
			assert.Equal(t, tt.details, got.Details)
		})
	}
}

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	api.WriteError(rec, api.NewValidationError("Missing contactData"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing contactData","details":null}`, rec.Body.String())
}

func TestWriteErrorDefaultsTo500(t *testing.T) {
	rec := httptest.NewRecorder()
	api.WriteError(rec, &api.Error{Message: "x"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFailLogsByStatus(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)
	req := httptest.NewRequest(http.MethodGet, "/api/contacts", http.NoBody)

	api.Fail(httptest.NewRecorder(), req, log, api.NewValidationError("bad"))
	api.Fail(httptest.NewRecorder(), req, log, &hubspot.Error{Status: 500, Message: "down", Body: []byte(`{"message":"down"}`)})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, map[string]any{"message": "down"}, entries[1].ContextMap()["details"])
}
