package admin

import (
	"net/http"
	"time"
)

// RegisterRoutes registers the operational endpoints on the mux.
func RegisterRoutes(mux *http.ServeMux) {
	h := &Handler{now: time.Now}

	mux.HandleFunc("GET /health", h.Health)
}
