package sync

import (
	"encoding/json"
	"errors"
	"net/http"

	apierrors "github.com/vitaliisemenov/journal-sync/internal/api/errors"
	"github.com/vitaliisemenov/journal-sync/internal/api/middleware"
	"github.com/vitaliisemenov/journal-sync/internal/core"
)

type resolveConflictResponse struct {
	Status     string `json:"status"`
	Resolution string `json:"resolution"`
	EntityID   string `json:"entityId"`
}

// ResolveConflict handles POST /api/sync/resolve-conflict
func (h *Handlers) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()

	entityType := q.Get("entity_type")
	entityID := q.Get("entity_id")
	resolution := core.ConflictResolution(q.Get("resolution"))
	clientID := q.Get("client_id")

	if entityType == "" || entityID == "" || clientID == "" {
		apierrors.WriteError(w, apierrors.ValidationError("entity_type, entity_id, and client_id are required").WithRequestID(requestID))
		return
	}
	if resolution != core.ResolutionClient && resolution != core.ResolutionServer {
		apierrors.WriteError(w, apierrors.ValidationError("resolution must be 'client' or 'server'").WithRequestID(requestID))
		return
	}

	var payload map[string]any
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			apierrors.WriteError(w, apierrors.ValidationError("malformed request body: "+err.Error()).WithRequestID(requestID))
			return
		}
	}

	err := h.resolver.Resolve(r.Context(), entityType, entityID, resolution, clientID, payload)
	if err != nil {
		var notFoundTracker core.ErrTrackerNotFound
		var notFoundEntry core.ErrEntryNotFound
		var unknownType core.ErrUnknownEntityType
		var malformedID core.ErrMalformedEntityID
		switch {
		case errors.As(err, &notFoundTracker), errors.As(err, &notFoundEntry):
			apierrors.WriteError(w, apierrors.NotFoundError(entityType).WithRequestID(requestID))
		case errors.As(err, &unknownType), errors.As(err, &malformedID):
			apierrors.WriteError(w, apierrors.ValidationError(err.Error()).WithRequestID(requestID))
		default:
			h.logger.Error("resolve conflict failed", "error", err, "request_id", requestID, "entity_id", entityID)
			apierrors.WriteError(w, apierrors.InternalError("failed to resolve conflict").WithRequestID(requestID))
		}
		return
	}

	h.sendJSON(w, http.StatusOK, resolveConflictResponse{
		Status:     "ok",
		Resolution: string(resolution),
		EntityID:   entityID,
	})
}
