package projector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/growthfarm/market-api/internal/kafka"
	"github.com/growthfarm/market-api/internal/orders"
)

type Cache interface {
	MarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	ForgetProcessed(ctx context.Context, consumer, eventID string) error
	InvalidateOrder(ctx context.Context, id int64) error
}

// Handler keeps the Redis read model in step with order events.
type Handler struct {
	cache Cache
	name  string
	log   zerolog.Logger
}

func NewHandler(cache Cache, consumerName string, log zerolog.Logger) *Handler {
	return &Handler{cache: cache, name: consumerName, log: log}
}

// Handle is installed as the consumer handler. Events are applied at most
// once per event id; a failed apply clears the marker so the consumer's
// retry applies it again.
func (h *Handler) Handle(ctx context.Context, m kafkago.Message) error {
	switch kafkax.Header(m, "x-event-type") {
	case orders.EventOrderPlaced, orders.EventOrderStatusChanged, "":
	default:
		return nil
	}

	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// a malformed message never gets better; skip it
		h.log.Error().Err(err).Str("topic", m.Topic).Int64("offset", m.Offset).Msg("drop undecodable event")
		return nil
	}

	first, err := h.cache.MarkProcessed(ctx, h.name, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		h.log.Debug().Str("event_id", env.EventID).Msg("duplicate event")
		return nil
	}

	if err := h.apply(ctx, env); err != nil {
		if ferr := h.cache.ForgetProcessed(ctx, h.name, env.EventID); ferr != nil {
			h.log.Warn().Err(ferr).Str("event_id", env.EventID).Msg("clear dedup marker")
		}
		return err
	}
	return nil
}

func (h *Handler) apply(ctx context.Context, env orders.Envelope) error {
	switch env.EventType {
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		if err := h.cache.InvalidateOrder(ctx, p.OrderID); err != nil {
			return fmt.Errorf("invalidate order %d: %w", p.OrderID, err)
		}
		h.log.Info().Int64("order_id", p.OrderID).Str("from", string(p.From)).Str("to", string(p.To)).
			Msg("order status changed")
	case orders.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
		if err != nil {
			return err
		}
		h.log.Info().Int64("order_id", p.OrderID).Str("order_number", p.OrderNumber).
			Int64("seller_id", p.SellerID).Str("total_amount", p.TotalAmount.String()).Msg("order placed")
	}
	return nil
}
