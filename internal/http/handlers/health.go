package handlers

import (
	"net/http"
	"time"

	"github.com/hongminglow/record-archive/internal/http/respond"
	"github.com/hongminglow/record-archive/internal/ids"
)

// HealthHandler serves liveness and system info endpoints.
type HealthHandler struct {
	startedAt   time.Time
	archiveDir  string
	authEnabled bool
	clock       ids.Clock
}

// NewHealthHandler creates a health endpoint handler.
func NewHealthHandler(startedAt time.Time, archiveDir string, authEnabled bool) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, archiveDir: archiveDir, authEnabled: authEnabled, clock: ids.SystemClock{}}
}

// Register wires the handler into a ServeMux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /api/v2/check/health", h.handleCheck)
	mux.HandleFunc("GET /api/v2/system/info", h.handleInfo)
}

func (h *HealthHandler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, map[string]any{
		"status":       "ok",
		"archive_dir":  h.archiveDir,
		"auth_enabled": h.authEnabled,
		"uptime":       time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}

func (h *HealthHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, map[string]any{"ok": true, "ts": h.clock.NowMS()})
}

func (h *HealthHandler) handleInfo(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, map[string]any{"name": "record-archive", "mode": "archive", "ts": h.clock.NowMS()})
}
