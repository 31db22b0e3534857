package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hongminglow/record-archive/internal/access"
	"github.com/hongminglow/record-archive/internal/ids"
	"github.com/hongminglow/record-archive/internal/models"
	"github.com/hongminglow/record-archive/internal/storage"
)

// Order states.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// CreateOrder places an order against storeID on behalf of caller. The order
// starts approved when order_auto_approve is set, pending otherwise.
func (s *Service) CreateOrder(ctx context.Context, storeID string, lineItems []map[string]any, caller *models.Identity) (models.Record, error) {
	if err := access.RequireRole(caller, access.AnyRole...); err != nil {
		return nil, err
	}
	st, err := s.store.Get(ctx, ResourceStores, storeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: store_id %q", ErrInvalidReference, storeID)
		}
		return nil, err
	}

	status := StatusPending
	if s.autoApprove(ctx) {
		status = StatusApproved
	}

	items := make([]any, 0, len(lineItems))
	for _, li := range lineItems {
		items = append(items, li)
	}
	order := models.Record{
		models.FieldID:        ids.NewID("ord"),
		"store_id":            storeID,
		"customer_user_id":    caller.ID,
		"status":              status,
		"line_items":          items,
		models.FieldCreatedAt: s.clock.NowMS(),
	}
	storeOwner := st.String(models.FieldOwner)
	if storeOwner != "" {
		order[models.FieldOwner] = storeOwner
	}

	order, err = s.store.Upsert(ctx, ResourceOrders, order)
	if err != nil {
		return nil, err
	}
	s.log.Info("order created", "order_id", order.ID(), "store_id", storeID, "status", status)

	s.emitEvent(ctx, "order.created", map[string]any{"order_id": order.ID(), "status": status})
	if storeOwner != "" {
		s.notify(ctx, storeOwner, "New order", fmt.Sprintf("Order %s is %s", order.ID(), status), map[string]any{"order_id": order.ID()})
	}
	return order, nil
}

// ApproveOrder moves an order to approved. Repeating it re-stamps approved_at.
func (s *Service) ApproveOrder(ctx context.Context, orderID string, caller *models.Identity) (models.Record, error) {
	return s.transitionOrder(ctx, orderID, StatusApproved, caller)
}

// RejectOrder moves an order to rejected. Repeating it re-stamps rejected_at.
func (s *Service) RejectOrder(ctx context.Context, orderID string, caller *models.Identity) (models.Record, error) {
	return s.transitionOrder(ctx, orderID, StatusRejected, caller)
}

func (s *Service) transitionOrder(ctx context.Context, orderID, status string, caller *models.Identity) (models.Record, error) {
	if err := access.RequireRole(caller, access.Writers...); err != nil {
		return nil, err
	}
	order, err := s.store.Update(ctx, ResourceOrders, orderID, func(order models.Record) (models.Record, error) {
		if order == nil {
			return nil, fmt.Errorf("order %s: %w", orderID, storage.ErrNotFound)
		}
		if err := access.CheckWrite(*caller, ResourceOrders, order); err != nil {
			return nil, err
		}
		order["status"] = status
		order[status+"_at"] = s.clock.NowMS()
		return order, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("order "+status, "order_id", orderID, "by", caller.ID)

	s.emitEvent(ctx, "order."+status, map[string]any{"order_id": orderID})
	if customer := order.String("customer_user_id"); customer != "" {
		title := "Order " + status
		s.notify(ctx, customer, title, fmt.Sprintf("Order %s %s", orderID, status), map[string]any{"order_id": orderID})
	}
	return order, nil
}
