package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/growthfarm/market-api/internal/market"
	"github.com/growthfarm/market-api/internal/orders"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, caller market.Caller, in orders.PlaceOrderInput) (orders.Order, error)
	UpdateOrderStatus(ctx context.Context, caller market.Caller, id int64, s orders.Status) (orders.Order, error)
	GetOrder(ctx context.Context, caller market.Caller, id int64) (orders.Order, error)
	ListOrders(ctx context.Context, caller market.Caller) ([]orders.Order, error)
}

// OrderCache is best effort: failures are logged and the request carries on
// against Postgres.
type OrderCache interface {
	IdempotentOrder(ctx context.Context, callerID int64, key string) (int64, bool, error)
	RememberIdempotent(ctx context.Context, callerID int64, key string, orderID int64) error
	CachedOrder(ctx context.Context, id int64) (orders.Order, bool, error)
	StoreOrder(ctx context.Context, o orders.Order) error
	InvalidateOrder(ctx context.Context, id int64) error
}

type OrdersHandler struct {
	Orders  OrderService
	Cache   OrderCache
	Limiter *RateLimiter
	Log     zerolog.Logger
}

const maxIdempotencyKey = 128

type statusReq struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	place := http.Handler(http.HandlerFunc(h.placeOrder))
	if h.Limiter != nil {
		place = h.Limiter.Middleware(place)
	}
	r.Method(http.MethodPost, "/orders", place)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}/status", h.updateStatus)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	key := r.Header.Get("Idempotency-Key")
	if len(key) > maxIdempotencyKey {
		badRequest(w, "Idempotency-Key too long")
		return
	}
	if key != "" {
		if o, ok := h.replay(ctx, caller, key); ok {
			writeJSON(w, http.StatusOK, o)
			return
		}
	}

	var req orders.PlaceOrderInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	o, err := h.Orders.PlaceOrder(ctx, caller, req)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	if key != "" {
		if err := h.Cache.RememberIdempotent(ctx, caller.ID, key, o.ID); err != nil {
			h.Log.Warn().Err(err).Int64("order_id", o.ID).Msg("remember idempotency key")
		}
	}
	h.cache(ctx, o)
	writeJSON(w, http.StatusCreated, o)
}

// replay returns the order already placed under key, if any.
func (h *OrdersHandler) replay(ctx context.Context, caller market.Caller, key string) (orders.Order, bool) {
	id, ok, err := h.Cache.IdempotentOrder(ctx, caller.ID, key)
	if err != nil {
		h.Log.Warn().Err(err).Msg("idempotency lookup")
		return orders.Order{}, false
	}
	if !ok {
		return orders.Order{}, false
	}
	o, err := h.Orders.GetOrder(ctx, caller, id)
	if err != nil {
		h.Log.Warn().Err(err).Int64("order_id", id).Msg("idempotent replay")
		return orders.Order{}, false
	}
	return o, true
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Orders.ListOrders(ctx, caller)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	caller, _ := CallerFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) cache
	if o, hit, err := h.Cache.CachedOrder(ctx, id); err != nil {
		h.Log.Warn().Err(err).Int64("order_id", id).Msg("order cache read")
	} else if hit {
		if err := orders.CanView(caller, o); err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
		return
	}

	// 2) Postgres
	o, err := h.Orders.GetOrder(ctx, caller, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.cache(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	caller, _ := CallerFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.UpdateOrderStatus(ctx, caller, id, req.Status)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Cache.InvalidateOrder(ctx, id); err != nil {
		h.Log.Warn().Err(err).Int64("order_id", id).Msg("invalidate cached order")
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) cache(ctx context.Context, o orders.Order) {
	if err := h.Cache.StoreOrder(ctx, o); err != nil {
		h.Log.Warn().Err(err).Int64("order_id", o.ID).Msg("cache order")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) { return pathInt(w, r, "id") }

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid "+name)
		return 0, false
	}
	return id, true
}
