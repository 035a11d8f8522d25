package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies accepted by the gateway.
const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("empty request body")

// encodeFailure is written when a response value cannot be marshalled.
var encodeFailure = []byte(`{"error":"Failed to encode response","details":null}` + "\n")

// WriteJSON marshals v as JSON and writes it to w with the given status code.
// The status is only sent once v has marshalled; otherwise the caller gets a
// 500 envelope.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("failed to encode JSON response", zap.Int("status", status), zap.Error(err))
		WriteRaw(w, http.StatusInternalServerError, encodeFailure)
		return
	}
	WriteRaw(w, status, append(b, '\n'))
}

// WriteRaw relays an upstream JSON body byte for byte.
func WriteRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// DecodeJSON decodes the request body into v. Unknown fields are allowed.
// An empty body is reported as an error.
func DecodeJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// CollectionResponse is the {results: [...]} list shape used by HubSpot.
type CollectionResponse struct {
	Results []any `json:"results"`
}

// IsAPIPath reports whether path belongs to the JSON API surface.
func IsAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}
