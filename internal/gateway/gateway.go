// Package gateway assembles the HTTP surface of the proxy: API routes,
// operational endpoints, static assets and the middleware chain.
package gateway

import (
	"io/fs"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/johnwards/crmproxy/internal/api"
	"github.com/johnwards/crmproxy/internal/api/admin"
	"github.com/johnwards/crmproxy/internal/api/contacts"
	"github.com/johnwards/crmproxy/internal/api/deals"
	"github.com/johnwards/crmproxy/internal/api/insights"
	"github.com/johnwards/crmproxy/internal/api/pipelines"
	"github.com/johnwards/crmproxy/internal/api/ui"
)

// CRM is everything the gateway needs from HubSpot. *hubspot.Client
// satisfies it.
type CRM interface {
	contacts.CRM
	deals.CRM
	pipelines.CRM
}

// Deps are the collaborators built once at startup.
type Deps struct {
	CRM      CRM
	Insights insights.Analyzer
	Logger   *zap.Logger
	// Assets holds the pre-built front end; nil disables static serving.
	Assets fs.FS
}

// New returns the gateway handler.
func New(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	mux := http.NewServeMux()

	contacts.RegisterRoutes(mux, d.CRM, log)
	deals.RegisterRoutes(mux, d.CRM, log)
	pipelines.RegisterRoutes(mux, d.CRM, log)
	insights.RegisterRoutes(mux, d.Insights, log)

	admin.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	ui.RegisterRoutes(mux, d.Assets)

	return api.Chain(mux,
		api.RequestID(),
		api.Recovery(log),
		api.CORS(),
		api.JSONContentType(),
		api.Logging(log),
	)
}
