package sync

import (
	"net/http"

	apierrors "github.com/vitaliisemenov/journal-sync/internal/api/errors"
	"github.com/vitaliisemenov/journal-sync/internal/api/middleware"
)

type snapshotResponse struct {
	Config          []map[string]any                       `json:"config"`
	Days            map[string]map[string]map[string]any `json:"days"`
	DeletedTrackers []string                                `json:"deletedTrackers,omitempty"`
	ServerTime      string                                  `json:"serverTime"`
}

// Full handles GET /api/sync/full
func (h *Handlers) Full(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	snap, err := h.assembler.Full(r.Context())
	if err != nil {
		h.logger.Error("full snapshot failed", "error", err, "request_id", requestID)
		apierrors.WriteError(w, apierrors.InternalError("failed to build full snapshot").WithRequestID(requestID))
		return
	}

	h.sendJSON(w, http.StatusOK, snapshotResponse{
		Config:     snap.Config,
		Days:       snap.Days,
		ServerTime: snap.ServerTime,
	})
}

// Delta handles GET /api/sync/delta?since=...&client_id=...
func (h *Handlers) Delta(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	since := r.URL.Query().Get("since")
	clientID := r.URL.Query().Get("client_id")
	if since == "" || clientID == "" {
		apierrors.WriteError(w, apierrors.ValidationError("since and client_id are required").WithRequestID(requestID))
		return
	}

	snap, err := h.assembler.Delta(r.Context(), since)
	if err != nil {
		h.logger.Error("delta snapshot failed", "error", err, "request_id", requestID)
		apierrors.WriteError(w, apierrors.InternalError("failed to build delta snapshot").WithRequestID(requestID))
		return
	}

	h.sendJSON(w, http.StatusOK, snapshotResponse{
		Config:          snap.Config,
		Days:            snap.Days,
		DeletedTrackers: snap.DeletedTrackers,
		ServerTime:      snap.ServerTime,
	})
}
