package contacts

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/johnwards/crmproxy/internal/domain"
)

// CRM is the slice of the HubSpot client the contact routes need.
type CRM interface {
	ListContacts(ctx context.Context) (json.RawMessage, error)
	CreateContact(ctx context.Context, props domain.Properties) (json.RawMessage, error)
	ContactDealIDs(ctx context.Context, contactID string) ([]string, error)
	BatchReadDeals(ctx context.Context, ids []string) (json.RawMessage, error)
}

// RegisterRoutes registers the contact routes on the mux.
func RegisterRoutes(mux *http.ServeMux, crm CRM, log *zap.Logger) {
	h := &Handler{crm: crm, log: log}

	mux.HandleFunc("GET /api/contacts", h.List)
	mux.HandleFunc("POST /api/contacts", h.Create)
	mux.HandleFunc("GET /api/contacts/{contactId}/deals", h.ListDeals)
}
