package sync

import (
	"net/http"

	apierrors "github.com/vitaliisemenov/journal-sync/internal/api/errors"
	"github.com/vitaliisemenov/journal-sync/internal/api/middleware"
	"github.com/vitaliisemenov/journal-sync/internal/core"
)

type conflictsResponse struct {
	Conflicts []core.ConflictRecord `json:"conflicts"`
}

// Conflicts handles GET /api/sync/conflicts?client_id=...
func (h *Handlers) Conflicts(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		apierrors.WriteError(w, apierrors.ValidationError("client_id is required").WithRequestID(requestID))
		return
	}

	records, err := h.store.ListConflicts(r.Context(), clientID)
	if err != nil {
		h.logger.Error("list conflicts failed", "error", err, "request_id", requestID, "client_id", clientID)
		apierrors.WriteError(w, apierrors.InternalError("failed to load conflicts").WithRequestID(requestID))
		return
	}
	if records == nil {
		records = []core.ConflictRecord{}
	}

	h.sendJSON(w, http.StatusOK, conflictsResponse{Conflicts: records})
}
