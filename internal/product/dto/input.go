package dto

import (
	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/shopspring/decimal"
)

type CreateProductInput struct {
	ShopID      string
	CatalogID   string // Optional
	Name        string
	Description string
	Category    string
	Unit        string
	BasePrice   decimal.Decimal
	Stock       float64
	Metadata    model.Metadata
	Variants    []CreateVariantInput // Non-empty makes the product varianted
}

// UpdateProductInput carries a partial update; nil fields are left untouched.
type UpdateProductInput struct {
	ID          string
	CatalogID   *string
	Name        *string
	Description *string
	Category    *string
	Unit        *string
	BasePrice   *decimal.Decimal
	Stock       *float64
	Metadata    model.Metadata
}

type CreateVariantInput struct {
	ProductID string
	Name      string
	Stock     float64
	Price     decimal.Decimal
}
