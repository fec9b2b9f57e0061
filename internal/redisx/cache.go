package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/growthfarm/market-api/internal/orders"
)

// Cache holds idempotency keys, cached orders and consumer dedup markers.
// A Redis miss is never an error; callers fall back to Postgres.
type Cache struct {
	rdb redis.UniversalClient
}

func NewCache(rdb redis.UniversalClient) *Cache { return &Cache{rdb: rdb} }

// IdempotentOrder returns the order id remembered for (callerID, key).
func (c *Cache) IdempotentOrder(ctx context.Context, callerID int64, key string) (int64, bool, error) {
	v, err := c.rdb.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, callerID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency value %q: %w", v, err)
	}
	return id, true, nil
}

func (c *Cache) RememberIdempotent(ctx context.Context, callerID int64, key string, orderID int64) error {
	return c.rdb.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, callerID, key), orderID, TTLIdempotency).Err()
}

func (c *Cache) CachedOrder(ctx context.Context, id int64) (orders.Order, bool, error) {
	b, err := c.rdb.Get(ctx, fmt.Sprintf(KeyOrder, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return orders.Order{}, false, nil
	}
	if err != nil {
		return orders.Order{}, false, err
	}
	var o orders.Order
	if err := json.Unmarshal(b, &o); err != nil {
		return orders.Order{}, false, fmt.Errorf("decode cached order %d: %w", id, err)
	}
	return o, true, nil
}

func (c *Cache) StoreOrder(ctx context.Context, o orders.Order) error {
	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf(KeyOrder, o.ID), b, TTLOrderCache).Err()
}

func (c *Cache) InvalidateOrder(ctx context.Context, id int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf(KeyOrder, id)).Err()
}

// MarkProcessed records eventID for consumer and reports whether this call
// was the first to do so.
func (c *Cache) MarkProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, consumer, eventID), 1, TTLDedup).Result()
}

// ForgetProcessed drops the marker so a failed event can be retried.
func (c *Cache) ForgetProcessed(ctx context.Context, consumer, eventID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf(KeyDedup, consumer, eventID)).Err()
}
