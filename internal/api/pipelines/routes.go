package pipelines

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/johnwards/crmproxy/internal/domain"
)

// CRM lists the account's deal pipelines.
type CRM interface {
	DealPipelines(ctx context.Context) ([]domain.Pipeline, error)
}

// RegisterRoutes registers the deal stage route on the mux.
func RegisterRoutes(mux *http.ServeMux, crm CRM, log *zap.Logger) {
	h := &Handler{crm: crm, log: log}

	mux.HandleFunc("GET /api/deal-stages", h.DealStages)
}
