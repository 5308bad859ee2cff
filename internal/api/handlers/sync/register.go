package sync

import (
	"net/http"

	apierrors "github.com/vitaliisemenov/journal-sync/internal/api/errors"
	"github.com/vitaliisemenov/journal-sync/internal/api/middleware"
	"github.com/vitaliisemenov/journal-sync/internal/core"
)

type registerResponse struct {
	Status   string `json:"status"`
	ClientID string `json:"clientId"`
}

// Register handles POST /api/sync/register?client_id=...&client_name=...
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		apierrors.WriteError(w, apierrors.ValidationError("client_id is required").WithRequestID(requestID))
		return
	}

	name := r.URL.Query().Get("client_name")
	if name == "" {
		name = defaultClientName(clientID)
	}

	now := h.clock.Now()
	existing, found, err := h.store.GetClient(r.Context(), clientID)
	if err != nil {
		h.logger.Error("get client failed", "error", err, "request_id", requestID)
		apierrors.WriteError(w, apierrors.InternalError("failed to load client").WithRequestID(requestID))
		return
	}

	client := core.Client{ID: clientID, Name: name, FirstSeenAt: now, LastSeenAt: now}
	if found {
		client.FirstSeenAt = existing.FirstSeenAt
		client.Name = existing.Name
	}

	if err := h.store.UpsertClient(r.Context(), client); err != nil {
		h.logger.Error("upsert client failed", "error", err, "request_id", requestID)
		apierrors.WriteError(w, apierrors.InternalError("failed to register client").WithRequestID(requestID))
		return
	}

	h.sendJSON(w, http.StatusOK, registerResponse{Status: "ok", ClientID: clientID})
}
