package contacts

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/johnwards/crmproxy/internal/api"
	"github.com/johnwards/crmproxy/internal/domain"
)

// Handler serves the contact routes by proxying to HubSpot.
type Handler struct {
	crm CRM
	log *zap.Logger
}

// List relays the first page of contacts as HubSpot returned it.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	raw, err := h.crm.ListContacts(r.Context())
	if err != nil {
		api.Fail(w, r, h.log, err)
		return
	}
	api.WriteRaw(w, http.StatusOK, raw)
}

type createRequest struct {
	Properties domain.Properties `json:"properties"`
}

// Create forwards the property bag to HubSpot. Required fields are the
// caller's concern; HubSpot's validation error is relayed if any are missing.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.Fail(w, r, h.log, api.NewValidationError("Invalid request body"))
		return
	}

	raw, err := h.crm.CreateContact(r.Context(), req.Properties)
	if err != nil {
		api.Fail(w, r, h.log, err)
		return
	}
	api.WriteRaw(w, http.StatusOK, raw)
}

// ListDeals resolves the contact's deal associations, then hydrates them in
// one batch read. No batch call is made when there are no associations.
func (h *Handler) ListDeals(w http.ResponseWriter, r *http.Request) {
	contactID := r.PathValue("contactId")

	ids, err := h.crm.ContactDealIDs(r.Context(), contactID)
	if err != nil {
		api.Fail(w, r, h.log, err)
		return
	}
	if len(ids) == 0 {
		api.WriteJSON(w, http.StatusOK, api.CollectionResponse{Results: []any{}})
		return
	}

	raw, err := h.crm.BatchReadDeals(r.Context(), ids)
	if err != nil {
		api.Fail(w, r, h.log, err)
		return
	}
	api.WriteRaw(w, http.StatusOK, raw)
}
