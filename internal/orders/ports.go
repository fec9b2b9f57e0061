package orders

import (
	"context"
	"time"

	"github.com/growthfarm/market-api/internal/market"
)

// Store is the persistence boundary of the order flows.
type Store interface {
	// InTx runs fn in one serializable transaction. Everything fn writes
	// commits together or not at all; an error from fn rolls back.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	GetOrder(ctx context.Context, id int64) (Order, error)
	ListOrdersFor(ctx context.Context, userID int64) ([]Order, error)
}

// Tx is the set of operations available inside Store.InTx.
type Tx interface {
	// LockProduct reads a product and holds its row until the transaction
	// ends. Missing products return market.ErrNotFound.
	LockProduct(ctx context.Context, id int64) (market.Product, error)
	// DecrementStock fails with market.ErrInsufficientStock instead of
	// letting quantity_available drop below zero.
	DecrementStock(ctx context.Context, productID int64, qty int) error
	OrderNumberExists(ctx context.Context, number string) (bool, error)
	// InsertOrder sets o.ID, o.CreatedAt and o.UpdatedAt.
	InsertOrder(ctx context.Context, o *Order) error
	// InsertOrderItems sets ID and OrderID on each item.
	InsertOrderItems(ctx context.Context, orderID int64, items []OrderItem) error
	LockOrder(ctx context.Context, id int64) (Order, error)
	SetOrderStatus(ctx context.Context, id int64, s Status, at time.Time) error
	AppendEvent(ctx context.Context, ev Envelope) error
}
