package market

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
	RoleGuest  Role = "guest"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleBuyer, RoleGuest, RoleAdmin:
		return true
	}
	return false
}

// Caller is the authenticated identity resolved before any flow runs.
type Caller struct {
	ID   int64
	Role Role
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

type Product struct {
	ID                int64           `json:"id"`
	SellerID          int64           `json:"seller_id"`
	FarmID            *int64          `json:"farm_id,omitempty"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	QuantityAvailable int             `json:"quantity_available"`
	MinimumOrder      int             `json:"minimum_order"`
	Unit              string          `json:"unit"`
	Category          string          `json:"category"`
	OrganicCertified  bool            `json:"organic_certified"`
	IsAvailable       bool            `json:"is_available"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
