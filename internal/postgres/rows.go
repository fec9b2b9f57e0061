package postgres

import (
	"github.com/jackc/pgx/v5"

	"github.com/growthfarm/market-api/internal/market"
)

// ProductColumns matches the scan order of ScanProduct.
const ProductColumns = `id, seller_id, farm_id, name, description, price, quantity_available,
	minimum_order, unit, category, organic_certified, is_available, created_at, updated_at`

func ScanProduct(row pgx.Row) (market.Product, error) {
	var p market.Product
	err := row.Scan(&p.ID, &p.SellerID, &p.FarmID, &p.Name, &p.Description, &p.Price,
		&p.QuantityAvailable, &p.MinimumOrder, &p.Unit, &p.Category, &p.OrganicCertified,
		&p.IsAvailable, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
