package outbox

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type Source interface {
	Drain(ctx context.Context, limit int, publish func(context.Context, []Record) error) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// Relay moves committed outbox records onto Kafka. Delivery is at least
// once: a crash between publish and commit resends the batch, and consumers
// dedupe by event id.
type Relay struct {
	src      Source
	pub      Publisher
	log      zerolog.Logger
	interval time.Duration
	batch    int
}

func NewRelay(src Source, pub Publisher, log zerolog.Logger, interval time.Duration, batch int) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &Relay{src: src, pub: pub, log: log, interval: interval, batch: batch}
}

// Run drains the outbox every interval until ctx is cancelled. A full batch
// is followed immediately by another drain.
func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		n, err := r.Tick(ctx)
		if err != nil && ctx.Err() == nil {
			r.log.Error().Err(err).Msg("outbox drain failed")
		}
		if err == nil && n == r.batch {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Tick publishes one batch and returns how many records went out.
func (r *Relay) Tick(ctx context.Context) (int, error) {
	n, err := r.src.Drain(ctx, r.batch, func(ctx context.Context, recs []Record) error {
		return r.pub.Publish(ctx, Messages(recs)...)
	})
	if n > 0 {
		r.log.Debug().Int("count", n).Msg("outbox published")
	}
	return n, err
}

// Messages converts records to Kafka messages keyed by partition key.
func Messages(recs []Record) []kafka.Message {
	msgs := make([]kafka.Message, 0, len(recs))
	for _, rec := range recs {
		msgs = append(msgs, kafka.Message{
			Topic: rec.Topic,
			Key:   []byte(rec.PartitionKey),
			Value: rec.Payload,
			Headers: []kafka.Header{
				{Key: "x-event-id", Value: []byte(rec.EventID)},
				{Key: "x-event-type", Value: []byte(rec.EventType)},
				{Key: "x-event-version", Value: []byte(strconv.Itoa(rec.EventVersion))},
			},
			Time: rec.CreatedAt,
		})
	}
	return msgs
}
