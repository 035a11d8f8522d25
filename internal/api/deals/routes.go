package deals

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/johnwards/crmproxy/internal/domain"
)

// CRM is the slice of the HubSpot client the deal routes need.
type CRM interface {
	ListDeals(ctx context.Context) (json.RawMessage, error)
	CreateDeal(ctx context.Context, props domain.Properties, contactID string) (json.RawMessage, error)
}

// RegisterRoutes registers the deal routes on the mux.
func RegisterRoutes(mux *http.ServeMux, crm CRM, log *zap.Logger) {
	h := &Handler{crm: crm, log: log}

	mux.HandleFunc("GET /api/deals", h.List)
	mux.HandleFunc("POST /api/deals", h.Create)
}
