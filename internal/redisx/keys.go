package redisx

import "time"

const (
	// idem:order:{caller_id}:{idempotency_key} -> order id
	KeyIdemOrderCreate = "idem:order:%d:%s"

	// order:{order_id} -> order JSON
	KeyOrder = "order:%d"

	// dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLOrderCache  = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
