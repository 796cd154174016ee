package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fekuna/omnipos-boutique-service/internal/units"
	"github.com/shopspring/decimal"
)

type ProductKind string

const (
	// ProductKindSimple products keep a single flat Stock.
	ProductKindSimple ProductKind = "simple"
	// ProductKindVarianted products keep stock per variant only.
	ProductKindVarianted ProductKind = "varianted"
)

type Product struct {
	BaseModel
	ShopID      string           `db:"shop_id" json:"shop_id"`
	CatalogID   *string          `db:"catalog_id" json:"catalog_id"` // Shared across per-shop rows of one good
	Name        string           `db:"name" json:"name"`
	Description string           `db:"description" json:"description"`
	Category    string           `db:"category" json:"category"`
	Kind        ProductKind      `db:"kind" json:"kind"`
	Stock       float64          `db:"stock" json:"stock"` // In Unit
	Unit        units.Unit       `db:"unit" json:"unit"`
	BasePrice   decimal.Decimal  `db:"base_price" json:"base_price"` // Per Unit
	Metadata    Metadata         `db:"metadata" json:"metadata"`
	Variants    []ProductVariant `db:"-" json:"variants,omitempty"`
}

func (p *Product) HasVariants() bool {
	return p.Kind == ProductKindVarianted
}

// Variant returns the variant with id, or nil.
func (p *Product) Variant(id string) *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

type ProductVariant struct {
	BaseModel
	ProductID string          `db:"product_id" json:"product_id"`
	Name      string          `db:"name" json:"name"`
	Stock     float64         `db:"stock" json:"stock"`
	Price     decimal.Decimal `db:"price" json:"price"`
}

// Metadata is a free-form JSON object stored in a text column.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Metadata) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("metadata: unsupported type %T", src)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, m)
}
