// Package pricing derives sale totals from a base unit price.
package pricing

import (
	"errors"

	"github.com/fekuna/omnipos-boutique-service/internal/units"
	"github.com/shopspring/decimal"
)

// Money values are rounded to MoneyPlaces, unit prices to UnitPricePlaces.
const (
	MoneyPlaces     = 2
	UnitPricePlaces = 4
)

var ErrNonPositiveQuantity = errors.New("quantity sold must be positive")

type Quote struct {
	// QuantityBase is quantitySold expressed in the product's base unit.
	QuantityBase float64
	// UnitPrice is the effective price per sold unit (Total / quantitySold).
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
	// Overridden is set when Total came from the operator instead of basePrice.
	Overridden bool
}

// Price converts quantitySold into baseUnit and multiplies by basePrice.
func Price(basePrice decimal.Decimal, baseUnit, soldUnit units.Unit, quantitySold float64) decimal.Decimal {
	qtyBase := units.Convert(quantitySold, soldUnit, baseUnit)
	return basePrice.Mul(decimal.NewFromFloat(qtyBase)).Round(MoneyPlaces)
}

// NewQuote prices a sale line. A non-nil, non-negative override replaces the
// computed total and the unit price is derived back from it; a negative one
// is ignored.
func NewQuote(basePrice decimal.Decimal, baseUnit, soldUnit units.Unit, quantitySold float64, override *decimal.Decimal) (Quote, error) {
	if quantitySold <= 0 {
		return Quote{}, ErrNonPositiveQuantity
	}

	q := Quote{QuantityBase: units.Convert(quantitySold, soldUnit, baseUnit)}

	if override != nil && !override.IsNegative() {
		q.Total = override.Round(MoneyPlaces)
		q.Overridden = true
	} else {
		q.Total = Price(basePrice, baseUnit, soldUnit, quantitySold)
	}

	q.UnitPrice = q.Total.Div(decimal.NewFromFloat(quantitySold)).Round(UnitPricePlaces)
	return q, nil
}

// LineTotal is quantity × unitPrice for lines priced per unit (checkout).
func LineTotal(unitPrice decimal.Decimal, quantity float64) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromFloat(quantity)).Round(MoneyPlaces)
}
