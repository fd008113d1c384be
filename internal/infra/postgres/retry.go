package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
)

// txMaxAttempts bounds how often a transaction is retried on transient
// conflicts before the error surfaces.
const txMaxAttempts = 3

func newTxBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 100 * time.Millisecond
	return backoff.WithMaxRetries(bo, txMaxAttempts-1)
}

// withTxRetry reruns op when it failed with a retryable database error.
// op must be side-effect free outside its own transaction.
func withTxRetry(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(newTxBackOff(), ctx))
}

// isRetryable matches serialization_failure and deadlock_detected, the two
// states Postgres asks clients to simply retry.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
