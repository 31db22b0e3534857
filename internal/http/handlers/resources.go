package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hongminglow/record-archive/internal/http/respond"
	"github.com/hongminglow/record-archive/internal/middleware"
	"github.com/hongminglow/record-archive/internal/models/dto"
	"github.com/hongminglow/record-archive/internal/service"
)

// ResourceHandler exposes generic CRUD over any named collection.
type ResourceHandler struct {
	svc *service.Service
	log *slog.Logger
}

// NewResourceHandler constructs the handler.
func NewResourceHandler(svc *service.Service, log *slog.Logger) *ResourceHandler {
	return &ResourceHandler{svc: svc, log: log}
}

// Register attaches the catch-all collection routes. Fixed paths registered by
// other handlers take precedence as more specific patterns.
func (h *ResourceHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v2/{resource}/find/{$}", h.handleFind)
	mux.HandleFunc("GET /api/v2/{resource}/{id}/{$}", h.handleGet)
	mux.HandleFunc("POST /api/v2/{resource}/{$}", h.handleCreate)
	mux.HandleFunc("PUT /api/v2/{resource}/{id}/{$}", h.handleUpdate)
	mux.HandleFunc("DELETE /api/v2/{resource}/{id}/{$}", h.handleDelete)
}

func (h *ResourceHandler) handleFind(w http.ResponseWriter, r *http.Request) {
	var req dto.FindRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	items, err := h.svc.Find(r.Context(), r.PathValue("resource"), req.Where, middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	respond.OK(w, dto.FindResponse{Items: items})
}

func (h *ResourceHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), r.PathValue("resource"), r.PathValue("id"), middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	respond.OK(w, rec)
}

func (h *ResourceHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	rec, err := h.svc.Create(r.Context(), r.PathValue("resource"), payload, middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	respond.OK(w, rec)
}

func (h *ResourceHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	rec, err := h.svc.Update(r.Context(), r.PathValue("resource"), r.PathValue("id"), payload, middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	respond.OK(w, rec)
}

func (h *ResourceHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.Delete(r.Context(), r.PathValue("resource"), r.PathValue("id"), middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	respond.OK(w, dto.DeleteResponse{Deleted: deleted})
}
