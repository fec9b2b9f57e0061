package catalog

import (
	"fmt"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/growthfarm/market-api/internal/market"
)

const (
	defaultLimit = 100
	maxLimit     = 100
)

type NewProduct struct {
	FarmID            *int64          `json:"farm_id,omitempty"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	QuantityAvailable int             `json:"quantity_available"`
	MinimumOrder      int             `json:"minimum_order"`
	Unit              string          `json:"unit"`
	Category          string          `json:"category"`
	OrganicCertified  bool            `json:"organic_certified"`
}

// Patch holds the fields a seller may change. Nil means "leave as is".
type Patch struct {
	Name              *string          `json:"name"`
	Description       *string          `json:"description"`
	Price             *decimal.Decimal `json:"price"`
	QuantityAvailable *int             `json:"quantity_available"`
	MinimumOrder      *int             `json:"minimum_order"`
	Unit              *string          `json:"unit"`
	Category          *string          `json:"category"`
	OrganicCertified  *bool            `json:"organic_certified"`
	IsAvailable       *bool            `json:"is_available"`
}

// Apply returns p with every set field of the patch copied over.
func (pt Patch) Apply(p market.Product) market.Product {
	if pt.Name != nil {
		p.Name = *pt.Name
	}
	if pt.Description != nil {
		p.Description = *pt.Description
	}
	if pt.Price != nil {
		p.Price = *pt.Price
	}
	if pt.QuantityAvailable != nil {
		p.QuantityAvailable = *pt.QuantityAvailable
	}
	if pt.MinimumOrder != nil {
		p.MinimumOrder = *pt.MinimumOrder
	}
	if pt.Unit != nil {
		p.Unit = *pt.Unit
	}
	if pt.Category != nil {
		p.Category = *pt.Category
	}
	if pt.OrganicCertified != nil {
		p.OrganicCertified = *pt.OrganicCertified
	}
	if pt.IsAvailable != nil {
		p.IsAvailable = *pt.IsAvailable
	}
	return p
}

type assignment struct {
	column string
	value  any
}

// assignments lists the columns the patch sets, in a fixed order. Columns it
// leaves nil are never written, so a concurrent stock decrement survives an
// unrelated edit.
func (pt Patch) assignments() []assignment {
	var out []assignment
	if pt.Name != nil {
		out = append(out, assignment{"name", *pt.Name})
	}
	if pt.Description != nil {
		out = append(out, assignment{"description", *pt.Description})
	}
	if pt.Price != nil {
		out = append(out, assignment{"price", *pt.Price})
	}
	if pt.QuantityAvailable != nil {
		out = append(out, assignment{"quantity_available", *pt.QuantityAvailable})
	}
	if pt.MinimumOrder != nil {
		out = append(out, assignment{"minimum_order", *pt.MinimumOrder})
	}
	if pt.Unit != nil {
		out = append(out, assignment{"unit", *pt.Unit})
	}
	if pt.Category != nil {
		out = append(out, assignment{"category", *pt.Category})
	}
	if pt.OrganicCertified != nil {
		out = append(out, assignment{"organic_certified", *pt.OrganicCertified})
	}
	if pt.IsAvailable != nil {
		out = append(out, assignment{"is_available", *pt.IsAvailable})
	}
	return out
}

type Filter struct {
	Category    string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	OrganicOnly bool
	Offset      int
	Limit       int
}

func (f Filter) normalized() Filter {
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	return f
}

func validate(p market.Product) error {
	if n := utf8.RuneCountInString(p.Name); n < 1 || n > 255 {
		return fmt.Errorf("%w: name must be 1-255 characters", market.ErrInvalidRequest)
	}
	if !p.Price.IsPositive() {
		return fmt.Errorf("%w: price must be greater than zero", market.ErrInvalidRequest)
	}
	if !p.Price.Equal(p.Price.Round(2)) {
		return fmt.Errorf("%w: price has more than 2 decimal places", market.ErrInvalidRequest)
	}
	if p.QuantityAvailable < 0 {
		return fmt.Errorf("%w: quantity_available must not be negative", market.ErrInvalidRequest)
	}
	if p.MinimumOrder < 1 {
		return fmt.Errorf("%w: minimum_order must be at least 1", market.ErrInvalidRequest)
	}
	return nil
}
