package dto

import (
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/model"
	"github.com/shopspring/decimal"
)

type SaleFilters struct {
	ShopID   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// Summary aggregates every sale matching a filter, ignoring pagination.
type Summary struct {
	Count       int             `db:"count" json:"count"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
}

type History struct {
	Sales    []model.Sale `json:"sales"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Summary
}

type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

type StatisticsInput struct {
	Period Period
	ShopID string
	Limit  int
}

type TopProduct struct {
	ProductID   string          `json:"product_id" msgpack:"product_id"`
	ProductName string          `json:"product_name" msgpack:"product_name"`
	Quantity    float64         `json:"quantity" msgpack:"quantity"` // Summed in base units
	Revenue     decimal.Decimal `json:"revenue" msgpack:"revenue"`
}

type Statistics struct {
	Period      Period          `json:"period" msgpack:"period"`
	ShopID      string          `json:"shop_id,omitempty" msgpack:"shop_id"`
	From        time.Time       `json:"from" msgpack:"from"`
	To          time.Time       `json:"to" msgpack:"to"`
	SaleCount   int             `json:"sale_count" msgpack:"sale_count"`
	TotalAmount decimal.Decimal `json:"total_amount" msgpack:"total_amount"`
	ItemsSold   float64         `json:"items_sold" msgpack:"items_sold"`
	TopProducts []TopProduct    `json:"top_products" msgpack:"top_products"`
}
