package sync

import (
	"net/http"

	apierrors "github.com/vitaliisemenov/journal-sync/internal/api/errors"
	"github.com/vitaliisemenov/journal-sync/internal/api/middleware"
)

type statusResponse struct {
	LastModified *string `json:"lastModified"`
}

// Status handles GET /api/sync/status
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	lastModified, ok, err := h.store.GetSyncMetadata(r.Context())
	if err != nil {
		h.logger.Error("get sync metadata failed", "error", err, "request_id", requestID)
		apierrors.WriteError(w, apierrors.InternalError("failed to load sync metadata").WithRequestID(requestID))
		return
	}

	resp := statusResponse{}
	if ok {
		resp.LastModified = &lastModified
	}
	h.sendJSON(w, http.StatusOK, resp)
}
