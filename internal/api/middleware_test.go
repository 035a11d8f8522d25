package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/johnwards/crmproxy/internal/api"
	"github.com/johnwards/crmproxy/internal/metrics"
)

func TestRecoveryMiddleware(t *testing.T) {
	handler := api.Chain(
		http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			panic("test panic")
		}),
		api.RequestID(),
		api.Recovery(zaptest.NewLogger(t)),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contacts", http.NoBody))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error","details":null}`, rec.Body.String())
}

func TestRequestIDMiddleware(t *testing.T) {
	var capturedID string
	handler := api.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedID = api.CorrelationID(r.Context())
			w.WriteHeader(http.StatusOK)
		}),
		api.RequestID(),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	require.NotEmpty(t, capturedID)
	assert.Equal(t, capturedID, rec.Header().Get("X-Correlation-Id"))
	_, err := uuid.Parse(capturedID)
	assert.NoError(t, err)
}

func TestRequestIDKeepsCallerID(t *testing.T) {
	const incoming = "0b8e5f3c-7c1a-4d43-9d0e-2c6a8f1b9e77"
	handler := api.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, incoming, api.CorrelationID(r.Context()))
		}),
		api.RequestID(),
	)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("X-Correlation-Id", incoming)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, incoming, rec.Header().Get("X-Correlation-Id"))
}

func TestRequestIDReplacesGarbage(t *testing.T) {
	handler := api.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), api.RequestID())

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("X-Correlation-Id", "<script>")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get("X-Correlation-Id"))
}

func TestCORSPreflight(t *testing.T) {
	called := false
	handler := api.Chain(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }),
		api.CORS(),
	)

	req := httptest.NewRequest(http.MethodOptions, "/api/deals", http.NoBody)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSSimpleRequest(t *testing.T) {
	handler := api.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) }),
		api.CORS(),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contacts", http.NoBody))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestJSONContentTypeMiddleware(t *testing.T) {
	handler := api.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
		api.JSONContentType(),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contacts", http.NoBody))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/index.html", http.NoBody))
	assert.Empty(t, rec.Header().Get("Content-Type"))
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/contacts/{contactId}/deals", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	handler := api.Chain(mux, api.RequestID(), api.Logging(zap.New(core)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contacts/9/deals", http.NoBody))
	require.Equal(t, http.StatusAccepted, rec.Code)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET /api/contacts/{contactId}/deals", fields["route"])
	assert.Equal(t, "/api/contacts/9/deals", fields["path"])
	assert.EqualValues(t, http.StatusAccepted, fields["status"])
	assert.Equal(t, rec.Header().Get("X-Correlation-Id"), fields["correlationId"])
}

func TestLoggingUnmatchedRoute(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := api.Chain(http.NotFoundHandler(), api.Logging(zap.New(core)))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", http.NoBody))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "unmatched", entries[0].ContextMap()["route"])
	assert.EqualValues(t, http.StatusNotFound, entries[0].ContextMap()["status"])
}

func TestAccessLogSkipsMetrics(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /crm/v3/objects/{objectType}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	handler := api.Chain(mux, api.RequestID(), api.AccessLog(zap.New(core), zap.DebugLevel))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/crm/v3/objects/contacts", http.NoBody))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, "GET /crm/v3/objects/{objectType}", entries[0].ContextMap()["route"])
	assert.EqualValues(t, http.StatusUnauthorized, entries[0].ContextMap()["status"])
	assert.Zero(t, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET /crm/v3/objects/{objectType}", "401")))
}

func TestAccessLogBelowLevelIsSilent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := api.Chain(http.NotFoundHandler(), api.AccessLog(zap.New(core), zap.DebugLevel))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Zero(t, logs.Len())
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := api.Chain(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }),
		mw("first"), mw("second"), mw("third"),
	)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, []string{"first", "second", "third", "handler"}, order)
}
