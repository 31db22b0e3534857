package dto

import "github.com/hongminglow/record-archive/internal/models"

type FindRequest struct {
	Where map[string]any `json:"where"`
}

type FindResponse struct {
	Items []models.Record `json:"items"`
}

type MarkSeenRequest struct {
	IDs []string `json:"ids"`
	All bool     `json:"all"`
}

type MarkSeenResponse struct {
	Updated int `json:"updated"`
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

type CreateOrderRequest struct {
	StoreID   string           `json:"store_id"`
	LineItems []map[string]any `json:"line_items"`
}

type WizardProduct struct {
	Name              string `json:"name"`
	PriceCents        int64  `json:"price_cents"`
	Currency          string `json:"currency"`
	StockQty          int64  `json:"stock_qty"`
	LowStockThreshold *int64 `json:"low_stock_threshold"`
}

type WizardCategory struct {
	Name     string          `json:"name"`
	Products []WizardProduct `json:"products"`
}

type WizardRequest struct {
	Store      map[string]any   `json:"store"`
	Categories []WizardCategory `json:"categories"`
}

type WizardResponse struct {
	Store      models.Record   `json:"store"`
	Categories []models.Record `json:"categories"`
	Products   []models.Record `json:"products"`
}
