package model

import (
	"github.com/fekuna/omnipos-boutique-service/internal/units"
	"github.com/shopspring/decimal"
)

// Sale is append-only once persisted.
type Sale struct {
	BaseModel
	ShopID      *string         `db:"shop_id" json:"shop_id"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	Items       []SaleItem      `db:"-" json:"items"`
}

// SaleItem snapshots a sold line: what the customer asked for (Quantity, Unit)
// and what left the stock (QuantityBase, BaseUnit).
type SaleItem struct {
	ID           string          `db:"id" json:"id"`
	SaleID       string          `db:"sale_id" json:"-"`
	Position     int             `db:"position" json:"-"`
	ProductID    string          `db:"product_id" json:"product_id"`
	ProductName  string          `db:"product_name" json:"product_name"`
	VariantID    *string         `db:"variant_id" json:"variant_id,omitempty"`
	VariantName  *string         `db:"variant_name" json:"variant_name,omitempty"`
	Quantity     float64         `db:"quantity" json:"quantity"`
	Unit         units.Unit      `db:"unit" json:"unit"`
	QuantityBase float64         `db:"quantity_base" json:"quantity_base"`
	BaseUnit     units.Unit      `db:"base_unit" json:"base_unit"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	Total        decimal.Decimal `db:"total" json:"total"`
}
