// Package sync implements the HTTP handlers for the device synchronization
// protocol: register, status, full, delta, update, resolve-conflict,
// conflicts.
package sync

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vitaliisemenov/journal-sync/internal/api/middleware"
	"github.com/vitaliisemenov/journal-sync/internal/core"
)

// Handlers provides HTTP handlers for the sync protocol endpoints.
type Handlers struct {
	store    core.Store
	clock    core.Clock
	engine   *core.SyncEngine
	assembler *core.DeltaAssembler
	resolver *core.ResolutionHandler
	logger   *slog.Logger
}

// New creates sync protocol handlers wired to the given domain
// components.
func New(store core.Store, clock core.Clock, engine *core.SyncEngine, assembler *core.DeltaAssembler, resolver *core.ResolutionHandler, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:     store,
		clock:     clock,
		engine:    engine,
		assembler: assembler,
		resolver:  resolver,
		logger:    logger,
	}
}

func (h *Handlers) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(middleware.APIVersionHeader, "1.0.0")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

// defaultClientName derives a client's display name from the prefix of
// its id before the first hyphen, matching the register endpoint's
// documented default.
func defaultClientName(clientID string) string {
	if i := strings.IndexByte(clientID, '-'); i > 0 {
		return clientID[:i]
	}
	return clientID
}
