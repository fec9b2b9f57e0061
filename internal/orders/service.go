package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/growthfarm/market-api/internal/market"
)

type Service struct {
	store       Store
	log         zerolog.Logger
	now         func() time.Time
	newNumber   func() (string, error)
	serviceName string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithNumberGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newNumber = gen }
}

// WithServiceName sets the producer name stamped on emitted events.
func WithServiceName(name string) Option { return func(s *Service) { s.serviceName = name } }

func NewService(store Store, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:       store,
		log:         log,
		now:         time.Now,
		newNumber:   NewOrderNumber,
		serviceName: "market-api",
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// canOrder lists the roles allowed to place orders.
var canOrder = map[market.Role]bool{
	market.RoleBuyer:  true,
	market.RoleFarmer: true,
	market.RoleAdmin:  true,
}

// PlaceOrder validates every item against live inventory, then writes the
// order, its items and the stock decrements in one transaction.
func (s *Service) PlaceOrder(ctx context.Context, caller market.Caller, in PlaceOrderInput) (Order, error) {
	if !canOrder[caller.Role] {
		return Order{}, fmt.Errorf("%w: role %q cannot place orders", market.ErrUnauthorized, caller.Role)
	}
	if err := validatePlaceOrder(in); err != nil {
		return Order{}, err
	}

	var placed Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		items := make([]OrderItem, 0, len(in.Items))
		var sellerID int64
		subtotal := decimal.Zero

		// validation pass: nothing is written until every item passes
		for i, it := range in.Items {
			p, err := tx.LockProduct(ctx, it.ProductID)
			if errors.Is(err, market.ErrNotFound) || (err == nil && !p.IsAvailable) {
				return fmt.Errorf("%w: product %d", market.ErrNotFound, it.ProductID)
			}
			if err != nil {
				return err
			}
			if it.Quantity < p.MinimumOrder {
				return fmt.Errorf("%w: minimum order for %s is %d", market.ErrInvalidRequest, p.Name, p.MinimumOrder)
			}
			if it.Quantity > p.QuantityAvailable {
				return fmt.Errorf("%w: not enough stock for %s", market.ErrInsufficientStock, p.Name)
			}
			if i == 0 {
				sellerID = p.SellerID
			}
			lineTotal := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
			subtotal = subtotal.Add(lineTotal)
			items = append(items, OrderItem{
				ProductID:  p.ID,
				Quantity:   it.Quantity,
				UnitPrice:  p.Price,
				TotalPrice: lineTotal,
				Snapshot: ProductSnapshot{
					Name:        p.Name,
					Description: p.Description,
					Category:    p.Category,
				},
			})
		}

		number, err := s.allocateNumber(ctx, tx)
		if err != nil {
			return err
		}

		o := Order{
			OrderNumber:     number,
			BuyerID:         caller.ID,
			SellerID:        sellerID,
			TotalAmount:     subtotal.Add(in.ShippingCost),
			ShippingCost:    in.ShippingCost,
			Status:          StatusPending,
			PaymentStatus:   PaymentPending,
			PaymentMethod:   in.PaymentMethod,
			ShippingAddress: in.ShippingAddress,
			Notes:           in.Notes,
		}
		if err := tx.InsertOrder(ctx, &o); err != nil {
			return err
		}
		if err := tx.InsertOrderItems(ctx, o.ID, items); err != nil {
			return err
		}
		for _, it := range items {
			if err := tx.DecrementStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		o.Items = items

		ev, err := s.placedEvent(o)
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, ev); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.log.Info().
		Int64("order_id", placed.ID).
		Str("order_number", placed.OrderNumber).
		Int64("buyer_id", placed.BuyerID).
		Int64("seller_id", placed.SellerID).
		Str("total_amount", placed.TotalAmount.String()).
		Int("items", len(placed.Items)).
		Msg("order placed")
	return placed, nil
}

func validatePlaceOrder(in PlaceOrderInput) error {
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: order has no items", market.ErrInvalidRequest)
	}
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return fmt.Errorf("%w: quantity for product %d must be at least 1", market.ErrInvalidRequest, it.ProductID)
		}
	}
	if !in.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", market.ErrInvalidRequest, in.PaymentMethod)
	}
	if in.ShippingCost.IsNegative() {
		return fmt.Errorf("%w: shipping cost must not be negative", market.ErrInvalidRequest)
	}
	if !in.ShippingCost.Equal(in.ShippingCost.Round(2)) {
		return fmt.Errorf("%w: shipping cost has more than 2 decimal places", market.ErrInvalidRequest)
	}
	if len(in.ShippingAddress) > 0 && !json.Valid(in.ShippingAddress) {
		return fmt.Errorf("%w: shipping address is not valid JSON", market.ErrInvalidRequest)
	}
	return nil
}

func (s *Service) allocateNumber(ctx context.Context, tx Tx) (string, error) {
	for i := 0; i < orderNumberAttempts; i++ {
		n, err := s.newNumber()
		if err != nil {
			return "", err
		}
		taken, err := tx.OrderNumberExists(ctx, n)
		if err != nil {
			return "", err
		}
		if !taken {
			return n, nil
		}
		s.log.Warn().Str("order_number", n).Msg("order number collision, regenerating")
	}
	return "", fmt.Errorf("%w: no free order number after %d attempts", market.ErrStorageFailure, orderNumberAttempts)
}

// UpdateOrderStatus moves an order to newStatus. Only the order's seller or
// an admin may do so.
func (s *Service) UpdateOrderStatus(ctx context.Context, caller market.Caller, orderID int64, newStatus Status) (Order, error) {
	var updated Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !caller.IsAdmin() && o.SellerID != caller.ID {
			return fmt.Errorf("%w: not allowed to update order %d", market.ErrUnauthorized, orderID)
		}
		if !newStatus.Valid() {
			return fmt.Errorf("%w: unknown status %q", market.ErrInvalidRequest, newStatus)
		}

		prev := o.Status
		at := s.now().UTC()
		if err := tx.SetOrderStatus(ctx, o.ID, newStatus, at); err != nil {
			return err
		}
		o.Status = newStatus
		o.UpdatedAt = at

		ev, err := s.envelope(EventOrderStatusChanged, o.ID, OrderStatusChangedPayload{
			OrderID: o.ID, From: prev, To: newStatus, ChangedBy: caller.ID,
		})
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, ev); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.log.Info().
		Int64("order_id", updated.ID).
		Str("status", string(updated.Status)).
		Int64("caller_id", caller.ID).
		Msg("order status updated")
	return updated, nil
}

// GetOrder returns an order visible to its buyer, its seller and admins.
func (s *Service) GetOrder(ctx context.Context, caller market.Caller, id int64) (Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if err := CanView(caller, o); err != nil {
		return Order{}, err
	}
	return o, nil
}

// CanView reports whether caller may see o.
func CanView(caller market.Caller, o Order) error {
	if caller.IsAdmin() || o.BuyerID == caller.ID || o.SellerID == caller.ID {
		return nil
	}
	return fmt.Errorf("%w: not allowed to view order %d", market.ErrUnauthorized, o.ID)
}

// ListOrders returns the caller's orders as buyer or seller, newest first.
func (s *Service) ListOrders(ctx context.Context, caller market.Caller) ([]Order, error) {
	return s.store.ListOrdersFor(ctx, caller.ID)
}

func (s *Service) placedEvent(o Order) (Envelope, error) {
	items := make([]ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}
	return s.envelope(EventOrderPlaced, o.ID, OrderPlacedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		BuyerID:     o.BuyerID,
		SellerID:    o.SellerID,
		Items:       items,
		TotalAmount: o.TotalAmount,
	})
}

func (s *Service) envelope(eventType string, orderID int64, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.now().UTC(),
		Producer:      s.serviceName,
		CorrelationID: string(PartitionKey(orderID)),
		Payload:       b,
	}, nil
}
