package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one event waiting in outbox_events. Payload is the full JSON
// envelope as it goes on the wire.
type Record struct {
	ID           int64
	EventID      string
	Topic        string
	EventType    string
	EventVersion int
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// Execer is satisfied by pgx.Tx, so Insert joins the caller's transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func Insert(ctx context.Context, db Execer, r Record) error {
	_, err := db.Exec(ctx, `
		INSERT INTO outbox_events(event_id, topic, event_type, event_version, partition_key, payload)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.EventID, r.Topic, r.EventType, r.EventVersion, r.PartitionKey, string(r.Payload))
	if err != nil {
		return fmt.Errorf("outbox insert %s: %w", r.EventType, err)
	}
	return nil
}

type Repo struct{ DB *pgxpool.Pool }

// Drain claims up to limit unpublished records in id order and passes them
// to publish. They are marked published in the same transaction, and only
// if publish succeeds. Concurrent relays skip each other's rows.
func (r *Repo) Drain(ctx context.Context, limit int, publish func(context.Context, []Record) error) (int, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, event_id::text, topic, event_type, event_version, partition_key, payload::text, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return 0, err
	}
	var recs []Record
	ids := make([]int64, 0, limit)
	for rows.Next() {
		var rec Record
		var payload string
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.EventType, &rec.EventVersion,
			&rec.PartitionKey, &payload, &rec.CreatedAt); err != nil {
			rows.Close()
			return 0, err
		}
		rec.Payload = []byte(payload)
		recs = append(recs, rec)
		ids = append(ids, rec.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}

	if err := publish(ctx, recs); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `UPDATE outbox_events SET published_at = now() WHERE id = ANY($1)`, ids); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(recs), nil
}
