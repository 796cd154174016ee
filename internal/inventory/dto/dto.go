package dto

import (
	"github.com/fekuna/omnipos-boutique-service/internal/units"
	"github.com/shopspring/decimal"
)

type ReceiveResult struct {
	ProductID string     `json:"product_id"`
	VariantID string     `json:"variant_id,omitempty"`
	OldStock  float64    `json:"old_stock"`
	NewStock  float64    `json:"new_stock"`
	Delta     float64    `json:"delta"` // In Unit
	Unit      units.Unit `json:"unit"`
}

type SellResult struct {
	SaleID           string          `json:"sale_id"`
	ProductID        string          `json:"product_id"`
	OldStock         float64         `json:"old_stock"`
	NewStock         float64         `json:"new_stock"`
	QuantitySold     float64         `json:"quantity_sold"`
	UnitSold         units.Unit      `json:"unit_sold"`
	QuantityDeducted float64         `json:"quantity_deducted"`
	BaseUnit         units.Unit      `json:"base_unit"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	CustomPrice      bool            `json:"custom_price"`
}

type StockChange struct {
	ProductID string  `json:"product_id"`
	ShopID    string  `json:"shop_id"`
	OldStock  float64 `json:"old_stock"`
	NewStock  float64 `json:"new_stock"`
}

type TransferResult struct {
	Quantity    float64     `json:"quantity"` // In the source unit
	Unit        units.Unit  `json:"unit"`
	Source      StockChange `json:"source"`
	Destination StockChange `json:"destination"`
}

type CheckoutResult struct {
	SaleID        string          `json:"sale_id,omitempty"`
	AcceptedCount int             `json:"accepted_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Errors        []string        `json:"errors"`
}

type AlertFilters struct {
	Threshold *float64
	ShopID    string
}
