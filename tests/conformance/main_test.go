// Package conformance_test drives the gateway end to end: the real gateway
// handler, the HubSpot client pointed at the CRM emulator and the insight
// service pointed at a scripted model endpoint, all in-process.
package conformance_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/johnwards/crmproxy/internal/crmfake"
	"github.com/johnwards/crmproxy/internal/gateway"
	"github.com/johnwards/crmproxy/internal/hubspot"
	"github.com/johnwards/crmproxy/internal/insight"
	"github.com/johnwards/crmproxy/internal/testhelpers"
)

const crmToken = "pat-na1-conformance"

type env struct {
	gatewayURL string
	crmURL     string
	crm        *crmfake.Server
	gemini     *testhelpers.Gemini
}

// newEnv starts a fresh emulator, model endpoint and gateway for one test.
func newEnv(t *testing.T, replies ...testhelpers.GeminiReply) *env {
	t.Helper()
	return newEnvWithTimeout(t, 5*time.Second, replies...)
}

func newEnvWithTimeout(t *testing.T, timeout time.Duration, replies ...testhelpers.GeminiReply) *env {
	t.Helper()
	log := zaptest.NewLogger(t)

	crmSrv, crm := testhelpers.NewCRM(t, crmToken)
	gem := testhelpers.NewGemini(t, replies...)

	gen, err := insight.NewGemini(context.Background(), insight.GeminiConfig{
		APIKey:  "test-key",
		BaseURL: gem.URL + "/",
		Timeout: timeout,
	})
	require.NoError(t, err)

	h := gateway.New(gateway.Deps{
		CRM:      hubspot.New(crmSrv.URL, crmToken, hubspot.WithTimeout(timeout), hubspot.WithLogger(log)),
		Insights: insight.NewService(gen, log),
		Logger:   log,
	})
	gw := httptest.NewServer(h)
	t.Cleanup(gw.Close)

	return &env{gatewayURL: gw.URL, crmURL: crmSrv.URL, crm: crm, gemini: gem}
}

// call makes a request against the gateway and returns status and body.
func (e *env) call(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	return send(t, method, e.gatewayURL+path, "", body)
}

// crmCall makes an authenticated request directly against the emulator.
func (e *env) crmCall(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	return send(t, method, e.crmURL+path, crmToken, body)
}

// fault makes the emulator fail the next matching request.
func (e *env) fault(t *testing.T, f crmfake.Fault) {
	t.Helper()
	status, body := e.crmCall(t, http.MethodPost, "/_crmfake/faults", f)
	require.Equal(t, http.StatusNoContent, status, string(body))
}

func send(t *testing.T, method, url, token string, body any) (int, []byte) {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "%s %s", method, url)
	defer func() { _ = resp.Body.Close() }()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), "body=%s", b)
	return v
}

// assertEnvelope checks the gateway error shape {"error": string, "details": any}.
func assertEnvelope(t *testing.T, b []byte, message string) map[string]any {
	t.Helper()
	body := decode[map[string]any](t, b)
	assert.Len(t, body, 2, "envelope keys: %v", body)
	assert.Contains(t, body, "details")
	assert.Equal(t, message, body["error"])
	return body
}

type object struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
}

type collection struct {
	Results []object `json:"results"`
}

func (e *env) createContact(t *testing.T, props map[string]any) object {
	t.Helper()
	status, body := e.call(t, http.MethodPost, "/api/contacts", map[string]any{"properties": props})
	require.Equal(t, http.StatusOK, status, string(body))
	return decode[object](t, body)
}

func (e *env) createDeal(t *testing.T, props map[string]any, contactID string) object {
	t.Helper()
	status, body := e.call(t, http.MethodPost, "/api/deals", map[string]any{"dealProperties": props, "contactId": contactID})
	require.Equal(t, http.StatusOK, status, string(body))
	return decode[object](t, body)
}
