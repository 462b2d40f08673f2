package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// DefaultTxMaxAttempts bounds how often a conflicting transaction is run
const DefaultTxMaxAttempts = 5

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// TxManager implements domain.TxManager on a pgx pool. Transactions that fail
// with a serialization failure or deadlock are rolled back and run again with
// exponential backoff.
type TxManager struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

// NewTxManager creates a new TxManager
func NewTxManager(pool *pgxpool.Pool, maxAttempts int) *TxManager {
	if maxAttempts < 1 {
		maxAttempts = DefaultTxMaxAttempts
	}
	return &TxManager{pool: pool, maxAttempts: maxAttempts}
}

// WithinTx runs fn in a transaction, committing when it returns nil.
// Exhausted retries surface as domain.ErrTransactionConflict.
func (m *TxManager) WithinTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := m.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if isRetryable(err) {
			log.Debug().Err(err).Int("attempt", attempt).Msg("Retrying conflicting transaction")
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(newTxBackOff(), uint64(m.maxAttempts-1)), ctx,
	))
	if err != nil && isRetryable(err) {
		log.Warn().Err(err).Int("attempts", attempt).Msg("Transaction retries exhausted")
		return fmt.Errorf("%w: %w", domain.ErrTransactionConflict, err)
	}
	return err
}

func (m *TxManager) runOnce(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&ledgerTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func newTxBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	return b
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
}

// ledgerTx implements domain.LedgerTx on a pgx transaction
type ledgerTx struct {
	tx pgx.Tx
}

func (t *ledgerTx) Loans() domain.LoanLedger {
	return &loanLedger{q: t.tx}
}

func (t *ledgerTx) Payments() domain.PaymentLedger {
	return &paymentLedger{q: t.tx}
}
