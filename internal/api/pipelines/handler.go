package pipelines

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/johnwards/crmproxy/internal/api"
)

// Handler serves pipeline stage lookups.
type Handler struct {
	crm CRM
	log *zap.Logger
}

// DealStages returns the stages of the first deal pipeline as {label, id}
// pairs in CRM order. Other pipelines are ignored.
func (h *Handler) DealStages(w http.ResponseWriter, r *http.Request) {
	pipelines, err := h.crm.DealPipelines(r.Context())
	if err != nil {
		api.Fail(w, r, h.log, err)
		return
	}
	if len(pipelines) == 0 {
		api.Fail(w, r, h.log, api.NewNotFoundError("No deal pipelines found"))
		return
	}
	api.WriteJSON(w, http.StatusOK, pipelines[0].DealStages())
}
