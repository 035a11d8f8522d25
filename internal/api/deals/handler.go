package deals

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/johnwards/crmproxy/internal/api"
	"github.com/johnwards/crmproxy/internal/domain"
)

// Handler serves the deal routes.
type Handler struct {
	crm CRM
	log *zap.Logger
}

// List relays the first page of deals.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	raw, err := h.crm.ListDeals(r.Context())
	if err != nil {
		api.Fail(w, r, h.log, err)
		return
	}
	api.WriteRaw(w, http.StatusOK, raw)
}

type createRequest struct {
	DealProperties domain.Properties `json:"dealProperties"`
	ContactID      string            `json:"contactId"`
}

// Create creates a deal, associated with contactId when one is given.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.Fail(w, r, h.log, api.NewValidationError("Invalid request body"))
		return
	}

	raw, err := h.crm.CreateDeal(r.Context(), req.DealProperties, req.ContactID)
	if err != nil {
		api.Fail(w, r, h.log, err)
		return
	}
	api.WriteRaw(w, http.StatusOK, raw)
}
