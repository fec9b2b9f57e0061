package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/growthfarm/market-api/internal/market"
)

const (
	sqlStateSerialization = "40001"
	sqlStateDeadlock      = "40P01"
	sqlStateUnique        = "23505"
	sqlStateForeignKey    = "23503"
)

// TxRunner runs units of work in serializable transactions.
type TxRunner struct {
	DB         *pgxpool.Pool
	MaxRetries int
	Log        zerolog.Logger
}

// Run executes fn in a serializable transaction and commits it. Serialization
// failures and deadlocks restart fn from scratch up to MaxRetries times.
// Domain errors returned by fn are passed through untouched; anything else
// comes back wrapped in market.ErrStorageFailure.
func (r TxRunner) Run(ctx context.Context, fn func(pgx.Tx) error) error {
	var err error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if attempt > 0 {
			r.Log.Warn().Err(err).Int("attempt", attempt).Msg("retrying transaction")
			if werr := backoff(ctx, attempt); werr != nil {
				return StorageError(werr)
			}
		}
		err = r.once(ctx, fn)
		if err == nil || !retryable(err) {
			return StorageError(err)
		}
	}
	return fmt.Errorf("%w: gave up after %d retries: %v", market.ErrStorageFailure, r.MaxRetries, err)
}

func (r TxRunner) once(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func backoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(time.Duration(attempt*attempt) * 10 * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerialization || pgErr.Code == sqlStateDeadlock
	}
	return false
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateUnique
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateForeignKey
}

// StorageError leaves nil and domain errors alone and marks everything else
// as a storage failure.
func StorageError(err error) error {
	if err == nil || isDomain(err) {
		return err
	}
	return fmt.Errorf("%w: %v", market.ErrStorageFailure, err)
}

func isDomain(err error) bool {
	for _, k := range []error{
		market.ErrNotFound,
		market.ErrInvalidRequest,
		market.ErrInsufficientStock,
		market.ErrUnauthorized,
		market.ErrStorageFailure,
	} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
