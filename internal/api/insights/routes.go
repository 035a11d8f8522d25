package insights

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/johnwards/crmproxy/internal/domain"
)

// Analyzer scores a lead from its contact data.
type Analyzer interface {
	Analyze(ctx context.Context, contactData json.RawMessage) (*domain.Insight, error)
}

// RegisterRoutes registers the insight route on the mux.
func RegisterRoutes(mux *http.ServeMux, analyzer Analyzer, log *zap.Logger) {
	h := &Handler{analyzer: analyzer, log: log}

	mux.HandleFunc("POST /api/ai-insight", h.Create)
}
