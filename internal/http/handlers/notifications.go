package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hongminglow/record-archive/internal/http/respond"
	"github.com/hongminglow/record-archive/internal/middleware"
	"github.com/hongminglow/record-archive/internal/models/dto"
	"github.com/hongminglow/record-archive/internal/service"
)

// NotificationHandler serves the caller's notification feed.
type NotificationHandler struct {
	svc *service.Service
	log *slog.Logger
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(svc *service.Service, log *slog.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, log: log}
}

// Register attaches notification routes to the mux.
func (h *NotificationHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v2/notification/find/{$}", h.handleFind)
	mux.HandleFunc("POST /api/v2/notification/mark_seen", h.handleMarkSeen)
}

func (h *NotificationHandler) handleFind(w http.ResponseWriter, r *http.Request) {
	var req dto.FindRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	items, err := h.svc.FindNotifications(r.Context(), req.Where, middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	respond.OK(w, dto.FindResponse{Items: items})
}

func (h *NotificationHandler) handleMarkSeen(w http.ResponseWriter, r *http.Request) {
	var req dto.MarkSeenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	n, err := h.svc.MarkNotificationsSeen(r.Context(), req.IDs, req.All, middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	respond.OK(w, dto.MarkSeenResponse{Updated: n})
}
