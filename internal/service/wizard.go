package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/hongminglow/record-archive/internal/access"
	"github.com/hongminglow/record-archive/internal/ids"
	"github.com/hongminglow/record-archive/internal/models"
	"github.com/hongminglow/record-archive/internal/models/dto"
)

const (
	defaultCurrency          = "ILS"
	defaultLowStockThreshold = 3
)

// StoreWizard creates a store together with its categories and products.
// Every created record carries the store's owner.
func (s *Service) StoreWizard(ctx context.Context, req dto.WizardRequest, caller *models.Identity) (dto.WizardResponse, error) {
	if err := access.RequireRole(caller, access.Writers...); err != nil {
		return dto.WizardResponse{}, err
	}
	for _, c := range req.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return dto.WizardResponse{}, fmt.Errorf("%w: category name is required", ErrInvalidInput)
		}
		for _, p := range c.Products {
			if strings.TrimSpace(p.Name) == "" {
				return dto.WizardResponse{}, fmt.Errorf("%w: product name is required", ErrInvalidInput)
			}
		}
	}

	st := cleanPayload(req.Store)
	access.StampOwner(*caller, ResourceStores, st)
	if st.ID() == "" {
		st[models.FieldID] = ids.NewID("store")
	}
	st, err := s.store.Update(ctx, ResourceStores, st.ID(), func(existing models.Record) (models.Record, error) {
		if err := access.CheckWrite(*caller, ResourceStores, existing); err != nil {
			return nil, err
		}
		return st, nil
	})
	if err != nil {
		return dto.WizardResponse{}, err
	}

	owned := func(rec models.Record) models.Record {
		if owner, ok := st[models.FieldOwner]; ok && owner != nil {
			rec[models.FieldOwner] = owner
		}
		return rec
	}

	resp := dto.WizardResponse{Store: st, Categories: []models.Record{}, Products: []models.Record{}}
	for _, c := range req.Categories {
		cat, err := s.store.Upsert(ctx, ResourceCategories, owned(models.Record{
			models.FieldID: ids.NewID("cat"),
			"store_id":     st.ID(),
			"name":         c.Name,
		}))
		if err != nil {
			return dto.WizardResponse{}, err
		}
		resp.Categories = append(resp.Categories, cat)

		for _, p := range c.Products {
			currency := p.Currency
			if currency == "" {
				currency = defaultCurrency
			}
			threshold := int64(defaultLowStockThreshold)
			if p.LowStockThreshold != nil {
				threshold = *p.LowStockThreshold
			}
			prd, err := s.store.Upsert(ctx, ResourceProducts, owned(models.Record{
				models.FieldID:        ids.NewID("prd"),
				"store_id":            st.ID(),
				"category_id":         cat.ID(),
				"name":                p.Name,
				"price_cents":         p.PriceCents,
				"currency":            currency,
				"stock_qty":           p.StockQty,
				"low_stock_threshold": threshold,
			}))
			if err != nil {
				return dto.WizardResponse{}, err
			}
			resp.Products = append(resp.Products, prd)
		}
	}

	s.emitEvent(ctx, "store.wizard_created", map[string]any{"store_id": st.ID()})
	return resp, nil
}
