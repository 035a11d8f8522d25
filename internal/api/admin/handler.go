package admin

import (
	"net/http"
	"time"

	"github.com/johnwards/crmproxy/internal/api"
)

// Handler serves the operational endpoints.
type Handler struct {
	now func() time.Time
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Health reports liveness. It never calls upstream.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	api.WriteJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
	})
}
