package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hongminglow/record-archive/internal/access"
	"github.com/hongminglow/record-archive/internal/http/respond"
	"github.com/hongminglow/record-archive/internal/middleware"
	"github.com/hongminglow/record-archive/internal/models/dto"
	"github.com/hongminglow/record-archive/internal/service"
)

// AuthHandler owns register/login/me endpoints.
type AuthHandler struct {
	svc *service.Service
	log *slog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc *service.Service, log *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v2/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/v2/auth/login", h.handleLogin)
	mux.HandleFunc("GET /api/v2/auth/me", h.handleMe)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	resp, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "user created successfully", resp)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	resp, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", resp)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	caller := middleware.IdentityFrom(r.Context())
	if caller == nil {
		writeError(w, h.log, r, access.ErrNotAuthenticated)
		return
	}
	respond.OK(w, map[string]any{"user": caller})
}
