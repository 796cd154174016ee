package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReceiveInput struct {
	ProductID string
	VariantID string // Set to restock one variant of a varianted product
	Quantity  float64
	Unit      string // Defaults to the product's unit
}

type SellInput struct {
	ProductID   string
	Quantity    float64
	Unit        string
	CustomPrice *decimal.Decimal // Replaces the computed total when set
	SoldAt      *time.Time
}

type TransferInput struct {
	ProductID    string // Row in the destination shop
	SourceShopID string
	DestShopID   string
	Quantity     float64
	Unit         string // Defaults to the source product's unit
}

type CheckoutItem struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Quantity  float64         `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type CheckoutInput struct {
	ShopID      string          `json:"shop_id"`
	Items       []CheckoutItem  `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"` // Declared by the client, checked then ignored
	SoldAt      *time.Time      `json:"sold_at"`
}
