package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/growthfarm/market-api/internal/market"
	"github.com/growthfarm/market-api/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) List(ctx context.Context, f Filter) ([]market.Product, error) {
	where := []string{"is_available"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if f.OrganicOnly {
		where = append(where, "organic_certified")
	}
	args = append(args, f.Limit, f.Offset)
	sql := fmt.Sprintf(`SELECT %s FROM marketplace_products WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		postgres.ProductColumns, strings.Join(where, " AND "), len(args)-1, len(args))
	return r.query(ctx, sql, args...)
}

func (r *Repo) BySeller(ctx context.Context, sellerID int64) ([]market.Product, error) {
	return r.query(ctx, `SELECT `+postgres.ProductColumns+` FROM marketplace_products
		WHERE seller_id = $1 ORDER BY created_at DESC, id DESC`, sellerID)
}

func (r *Repo) query(ctx context.Context, sql string, args ...any) ([]market.Product, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.StorageError(err)
	}
	defer rows.Close()

	out := []market.Product{}
	for rows.Next() {
		p, err := postgres.ScanProduct(rows)
		if err != nil {
			return nil, postgres.StorageError(err)
		}
		out = append(out, p)
	}
	return out, postgres.StorageError(rows.Err())
}

func (r *Repo) Get(ctx context.Context, id int64) (market.Product, error) {
	p, err := postgres.ScanProduct(r.DB.QueryRow(ctx,
		`SELECT `+postgres.ProductColumns+` FROM marketplace_products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Product{}, fmt.Errorf("%w: product %d", market.ErrNotFound, id)
	}
	return p, postgres.StorageError(err)
}

func (r *Repo) Insert(ctx context.Context, p *market.Product) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO marketplace_products(seller_id, farm_id, name, description, price, quantity_available,
			minimum_order, unit, category, organic_certified, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		p.SellerID, p.FarmID, p.Name, p.Description, p.Price, p.QuantityAvailable,
		p.MinimumOrder, p.Unit, p.Category, p.OrganicCertified, p.IsAvailable,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if postgres.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: farm does not exist", market.ErrInvalidRequest)
	}
	return postgres.StorageError(err)
}

func (r *Repo) Update(ctx context.Context, id int64, patch Patch) (market.Product, error) {
	set := []string{"updated_at = now()"}
	args := []any{id}
	for _, a := range patch.assignments() {
		args = append(args, a.value)
		set = append(set, fmt.Sprintf("%s = $%d", a.column, len(args)))
	}
	sql := fmt.Sprintf(`UPDATE marketplace_products SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(set, ", "), postgres.ProductColumns)
	p, err := postgres.ScanProduct(r.DB.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Product{}, fmt.Errorf("%w: product %d", market.ErrNotFound, id)
	}
	return p, postgres.StorageError(err)
}

func (r *Repo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT DISTINCT category FROM marketplace_products
		WHERE is_available AND category <> '' ORDER BY category`)
	if err != nil {
		return nil, postgres.StorageError(err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if out == nil {
		out = []string{}
	}
	return out, postgres.StorageError(err)
}
