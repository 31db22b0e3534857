package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hongminglow/record-archive/internal/http/respond"
	"github.com/hongminglow/record-archive/internal/middleware"
	"github.com/hongminglow/record-archive/internal/service"
)

// SettingsHandler serves the system settings record.
type SettingsHandler struct {
	svc *service.Service
	log *slog.Logger
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(svc *service.Service, log *slog.Logger) *SettingsHandler {
	return &SettingsHandler{svc: svc, log: log}
}

// Register attaches settings routes to the mux.
func (h *SettingsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v2/system/settings", h.handleGet)
	mux.HandleFunc("PUT /api/v2/system/settings", h.handlePut)
}

func (h *SettingsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	cur, err := h.svc.GetSettings(r.Context(), middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	respond.OK(w, cur)
}

func (h *SettingsHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	patch := map[string]any{}
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	cur, err := h.svc.PutSettings(r.Context(), patch, middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	respond.OK(w, cur)
}
