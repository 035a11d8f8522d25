package insights

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/johnwards/crmproxy/internal/api"
	"github.com/johnwards/crmproxy/internal/insight"
)

// Handler serves AI lead insights.
type Handler struct {
	analyzer Analyzer
	log      *zap.Logger
}

type createRequest struct {
	ContactData json.RawMessage `json:"contactData"`
}

// Create generates a fresh insight for the posted contact data.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.Fail(w, r, h.log, api.NewValidationError("Invalid request body"))
		return
	}
	if insight.IsEmpty(req.ContactData) {
		api.Fail(w, r, h.log, api.NewValidationError("Missing contactData"))
		return
	}

	in, err := h.analyzer.Analyze(r.Context(), req.ContactData)
	switch {
	case err == nil:
		api.WriteJSON(w, http.StatusOK, in)
	case errors.Is(err, insight.ErrNoContactData):
		api.Fail(w, r, h.log, api.NewValidationError("Missing contactData"))
	case errors.Is(err, insight.ErrParse):
		// The offending text was already logged by the service.
		api.WriteError(w, api.NewInternalError("Failed to parse JSON from AI response", nil))
	default:
		api.Fail(w, r, h.log, err)
	}
}
