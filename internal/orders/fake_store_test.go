package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/growthfarm/market-api/internal/market"
)

var errBoom = errors.New("boom")

// memStore serializes transactions behind one mutex and works on copies, so
// a failed transaction leaves no trace.
type memStore struct {
	mu        sync.Mutex
	products  map[int64]market.Product
	orders    map[int64]Order
	events    []Envelope
	nextOrder int64
	nextItem  int64
	failOn    string
	takenNums map[string]bool
}

func newMemStore(products ...market.Product) *memStore {
	s := &memStore{
		products:  map[int64]market.Product{},
		orders:    map[int64]Order{},
		takenNums: map[string]bool{},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:     s,
		products:  make(map[int64]market.Product, len(s.products)),
		orders:    make(map[int64]Order, len(s.orders)),
		nextOrder: s.nextOrder,
		nextItem:  s.nextItem,
	}
	for k, v := range s.products {
		tx.products[k] = v
	}
	for k, v := range s.orders {
		tx.orders[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.products = tx.products
	s.orders = tx.orders
	s.nextOrder = tx.nextOrder
	s.nextItem = tx.nextItem
	s.events = append(s.events, tx.events...)
	return nil
}

func (s *memStore) GetOrder(_ context.Context, id int64) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: order %d", market.ErrNotFound, id)
	}
	return o, nil
}

func (s *memStore) ListOrdersFor(_ context.Context, userID int64) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Order{}
	for _, o := range s.orders {
		if o.BuyerID == userID || o.SellerID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) product(id int64) market.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

type memTx struct {
	store     *memStore
	products  map[int64]market.Product
	orders    map[int64]Order
	events    []Envelope
	nextOrder int64
	nextItem  int64
}

func (t *memTx) fail(op string) error {
	if t.store.failOn == op {
		return fmt.Errorf("%w: %s: %v", market.ErrStorageFailure, op, errBoom)
	}
	return nil
}

func (t *memTx) LockProduct(_ context.Context, id int64) (market.Product, error) {
	if err := t.fail("LockProduct"); err != nil {
		return market.Product{}, err
	}
	p, ok := t.products[id]
	if !ok {
		return market.Product{}, fmt.Errorf("%w: product %d", market.ErrNotFound, id)
	}
	return p, nil
}

func (t *memTx) DecrementStock(_ context.Context, productID int64, qty int) error {
	if err := t.fail("DecrementStock"); err != nil {
		return err
	}
	p := t.products[productID]
	if p.QuantityAvailable < qty {
		return fmt.Errorf("%w: product %d", market.ErrInsufficientStock, productID)
	}
	p.QuantityAvailable -= qty
	t.products[productID] = p
	return nil
}

func (t *memTx) OrderNumberExists(_ context.Context, number string) (bool, error) {
	if t.store.takenNums[number] {
		return true, nil
	}
	for _, o := range t.orders {
		if o.OrderNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertOrder(_ context.Context, o *Order) error {
	if err := t.fail("InsertOrder"); err != nil {
		return err
	}
	t.nextOrder++
	o.ID = t.nextOrder
	o.CreatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	o.UpdatedAt = o.CreatedAt
	t.orders[o.ID] = *o
	return nil
}

func (t *memTx) InsertOrderItems(_ context.Context, orderID int64, items []OrderItem) error {
	if err := t.fail("InsertOrderItems"); err != nil {
		return err
	}
	for i := range items {
		t.nextItem++
		items[i].ID = t.nextItem
		items[i].OrderID = orderID
	}
	o := t.orders[orderID]
	o.Items = append([]OrderItem(nil), items...)
	t.orders[orderID] = o
	return nil
}

func (t *memTx) LockOrder(_ context.Context, id int64) (Order, error) {
	o, ok := t.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: order %d", market.ErrNotFound, id)
	}
	return o, nil
}

func (t *memTx) SetOrderStatus(_ context.Context, id int64, s Status, at time.Time) error {
	if err := t.fail("SetOrderStatus"); err != nil {
		return err
	}
	o := t.orders[id]
	o.Status = s
	o.UpdatedAt = at
	t.orders[id] = o
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, ev Envelope) error {
	if err := t.fail("AppendEvent"); err != nil {
		return err
	}
	t.events = append(t.events, ev)
	return nil
}

// racyStore gives transactions no isolation at all: LockProduct holds every
// caller until all of them have read the same stock. Only the conditional
// decrement, applied atomically to shared state, keeps them from overselling.
type racyStore struct {
	mu       sync.Mutex
	products map[int64]market.Product
	orders   int
	nextID   int64
	readers  sync.WaitGroup
}

func newRacyStore(txs int, products ...market.Product) *racyStore {
	s := &racyStore{products: map[int64]market.Product{}}
	for _, p := range products {
		s.products[p.ID] = p
	}
	s.readers.Add(txs)
	return s
}

func (s *racyStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	tx := &racyTx{store: s, taken: map[int64]int{}}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	s.mu.Lock()
	s.orders += tx.inserted
	s.mu.Unlock()
	return nil
}

func (s *racyStore) GetOrder(_ context.Context, id int64) (Order, error) {
	return Order{}, fmt.Errorf("%w: order %d", market.ErrNotFound, id)
}

func (s *racyStore) ListOrdersFor(context.Context, int64) ([]Order, error) { return []Order{}, nil }

func (s *racyStore) stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].QuantityAvailable
}

func (s *racyStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders
}

type racyTx struct {
	store    *racyStore
	taken    map[int64]int
	inserted int
}

func (t *racyTx) LockProduct(_ context.Context, id int64) (market.Product, error) {
	t.store.mu.Lock()
	p, ok := t.store.products[id]
	t.store.mu.Unlock()

	t.store.readers.Done()
	t.store.readers.Wait()
	if !ok {
		return market.Product{}, fmt.Errorf("%w: product %d", market.ErrNotFound, id)
	}
	return p, nil
}

func (t *racyTx) DecrementStock(_ context.Context, productID int64, qty int) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	p := t.store.products[productID]
	if p.QuantityAvailable < qty {
		return fmt.Errorf("%w: product %d", market.ErrInsufficientStock, productID)
	}
	p.QuantityAvailable -= qty
	t.store.products[productID] = p
	t.taken[productID] += qty
	return nil
}

func (t *racyTx) rollback() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for id, qty := range t.taken {
		p := t.store.products[id]
		p.QuantityAvailable += qty
		t.store.products[id] = p
	}
}

func (t *racyTx) OrderNumberExists(context.Context, string) (bool, error) { return false, nil }

func (t *racyTx) InsertOrder(_ context.Context, o *Order) error {
	t.store.mu.Lock()
	t.store.nextID++
	o.ID = t.store.nextID
	t.store.mu.Unlock()
	t.inserted++
	return nil
}

func (t *racyTx) InsertOrderItems(context.Context, int64, []OrderItem) error { return nil }

func (t *racyTx) LockOrder(_ context.Context, id int64) (Order, error) {
	return Order{}, fmt.Errorf("%w: order %d", market.ErrNotFound, id)
}

func (t *racyTx) SetOrderStatus(context.Context, int64, Status, time.Time) error { return nil }

func (t *racyTx) AppendEvent(context.Context, Envelope) error { return nil }
