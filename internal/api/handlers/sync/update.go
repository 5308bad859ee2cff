package sync

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/vitaliisemenov/journal-sync/internal/api/errors"
	"github.com/vitaliisemenov/journal-sync/internal/api/middleware"
	"github.com/vitaliisemenov/journal-sync/internal/core"
)

type updateRequest struct {
	ClientID string                                    `json:"clientId"`
	Config   []map[string]any                           `json:"config"`
	Days     map[string]map[string]map[string]any `json:"days"`
}

type updateResponse struct {
	Success       bool                                    `json:"success"`
	Conflicts     []core.ConflictDescriptor               `json:"conflicts"`
	AppliedConfig []map[string]any                         `json:"appliedConfig"`
	AppliedDays   map[string]map[string]map[string]any `json:"appliedDays"`
	LastModified  *string                                 `json:"lastModified"`
}

// Update handles POST /api/sync/update
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteError(w, apierrors.ValidationError("malformed request body: "+err.Error()).WithRequestID(requestID))
		return
	}
	if req.ClientID == "" {
		apierrors.WriteError(w, apierrors.ValidationError("clientId is required").WithRequestID(requestID))
		return
	}

	batch := core.UpdateBatch{ClientID: req.ClientID, Config: req.Config, Days: req.Days}
	result, err := h.engine.ApplyBatch(r.Context(), batch)
	if err != nil {
		h.logger.Error("apply batch failed", "error", err, "request_id", requestID, "client_id", req.ClientID)
		apierrors.WriteError(w, apierrors.InternalError("failed to apply update").WithRequestID(requestID))
		return
	}

	h.sendJSON(w, http.StatusOK, updateResponse{
		Success:       result.Success,
		Conflicts:     result.Conflicts,
		AppliedConfig: result.AppliedConfig,
		AppliedDays:   result.AppliedDays,
		LastModified:  result.LastModified,
	})
}
