package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/growthfarm/market-api/internal/market"
	"github.com/growthfarm/market-api/internal/outbox"
	"github.com/growthfarm/market-api/internal/postgres"
)

// Repo is the Postgres Store.
type Repo struct {
	DB *pgxpool.Pool
	TX postgres.TxRunner
}

func NewRepo(db *pgxpool.Pool, runner postgres.TxRunner) *Repo {
	runner.DB = db
	return &Repo{DB: db, TX: runner}
}

func (r *Repo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return r.TX.Run(ctx, func(tx pgx.Tx) error { return fn(pgTx{tx}) })
}

const orderColumns = `id, order_number, buyer_id, seller_id, total_amount, shipping_cost, status,
	payment_status, payment_method, shipping_address, notes, created_at, updated_at`

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var addr []byte
	err := row.Scan(&o.ID, &o.OrderNumber, &o.BuyerID, &o.SellerID, &o.TotalAmount, &o.ShippingCost,
		&o.Status, &o.PaymentStatus, &o.PaymentMethod, &addr, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if len(addr) > 0 {
		o.ShippingAddress = json.RawMessage(addr)
	}
	return o, err
}

func loadOrder(ctx context.Context, q rowQuerier, id int64, lock bool) (Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: order %d", market.ErrNotFound, id)
	}
	if err != nil {
		return Order{}, err
	}
	if o.Items, err = loadItems(ctx, q, id); err != nil {
		return Order{}, err
	}
	return o, nil
}

func loadItems(ctx context.Context, q rowQuerier, orderID int64) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, total_price, product_snapshot
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []OrderItem{}
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &it.Snapshot); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, err := loadOrder(ctx, r.DB, id, false)
	return o, postgres.StorageError(err)
}

func (r *Repo) ListOrdersFor(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, postgres.StorageError(err)
	}
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, postgres.StorageError(err)
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, postgres.StorageError(err)
	}
	for i := range out {
		if out[i].Items, err = loadItems(ctx, r.DB, out[i].ID); err != nil {
			return nil, postgres.StorageError(err)
		}
	}
	return out, nil
}

type pgTx struct{ tx pgx.Tx }

func (t pgTx) LockProduct(ctx context.Context, id int64) (market.Product, error) {
	p, err := postgres.ScanProduct(t.tx.QueryRow(ctx,
		`SELECT `+postgres.ProductColumns+` FROM marketplace_products WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Product{}, fmt.Errorf("%w: product %d", market.ErrNotFound, id)
	}
	return p, err
}

func (t pgTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE marketplace_products
		SET quantity_available = quantity_available - $2, updated_at = now()
		WHERE id = $1 AND quantity_available >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%w: product %d", market.ErrInsufficientStock, productID)
	}
	return nil
}

func (t pgTx) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`, number).Scan(&exists)
	return exists, err
}

func (t pgTx) InsertOrder(ctx context.Context, o *Order) error {
	var addr any
	if len(o.ShippingAddress) > 0 {
		addr = string(o.ShippingAddress)
	}
	return t.tx.QueryRow(ctx, `
		INSERT INTO orders(order_number, buyer_id, seller_id, total_amount, shipping_cost, status,
			payment_status, payment_method, shipping_address, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		o.OrderNumber, o.BuyerID, o.SellerID, o.TotalAmount, o.ShippingCost, o.Status,
		o.PaymentStatus, o.PaymentMethod, addr, o.Notes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (t pgTx) InsertOrderItems(ctx context.Context, orderID int64, items []OrderItem) error {
	for i := range items {
		it := &items[i]
		it.OrderID = orderID
		if err := t.tx.QueryRow(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity, unit_price, total_price, product_snapshot)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			orderID, it.ProductID, it.Quantity, it.UnitPrice, it.TotalPrice, it.Snapshot,
		).Scan(&it.ID); err != nil {
			return err
		}
	}
	return nil
}

func (t pgTx) LockOrder(ctx context.Context, id int64) (Order, error) {
	return loadOrder(ctx, t.tx, id, true)
}

func (t pgTx) SetOrderStatus(ctx context.Context, id int64, s Status, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`, id, s, at)
	return err
}

func (t pgTx) AppendEvent(ctx context.Context, ev Envelope) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return outbox.Insert(ctx, t.tx, outbox.Record{
		EventID:      ev.EventID,
		Topic:        topicFor(ev.EventType),
		EventType:    ev.EventType,
		EventVersion: ev.EventVersion,
		PartitionKey: ev.CorrelationID,
		Payload:      b,
	})
}
