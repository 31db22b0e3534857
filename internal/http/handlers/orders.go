package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hongminglow/record-archive/internal/http/respond"
	"github.com/hongminglow/record-archive/internal/middleware"
	"github.com/hongminglow/record-archive/internal/models"
	"github.com/hongminglow/record-archive/internal/models/dto"
	"github.com/hongminglow/record-archive/internal/service"
)

// OrderHandler serves the order workflow and the store wizard.
type OrderHandler struct {
	svc *service.Service
	log *slog.Logger
}

// NewOrderHandler constructs the handler.
func NewOrderHandler(svc *service.Service, log *slog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, log: log}
}

// Register attaches order workflow and store wizard routes to the mux.
func (h *OrderHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v2/orders/create", h.handleCreate)
	mux.HandleFunc("POST /api/v2/order/{id}/approve", h.transition(h.svc.ApproveOrder))
	mux.HandleFunc("POST /api/v2/order/{id}/reject", h.transition(h.svc.RejectOrder))
	mux.HandleFunc("POST /api/v2/store-wizard", h.handleWizard)
}

func (h *OrderHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	order, err := h.svc.CreateOrder(r.Context(), req.StoreID, req.LineItems, middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "order created", order)
}

type orderTransition func(ctx context.Context, orderID string, caller *models.Identity) (models.Record, error)

func (h *OrderHandler) transition(fn orderTransition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := fn(r.Context(), r.PathValue("id"), middleware.IdentityFrom(r.Context()))
		if err != nil {
			writeError(w, h.log, r, err)
			return
		}
		respond.OK(w, order)
	}
}

func (h *OrderHandler) handleWizard(w http.ResponseWriter, r *http.Request) {
	var req dto.WizardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	resp, err := h.svc.StoreWizard(r.Context(), req, middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "store created", resp)
}
