// Package postgres implements the ledger store on PostgreSQL. The balance
// row is the per-user lock: every mutating operation takes it with
// SELECT ... FOR UPDATE so conflicting updates serialize at the database.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kislikjeka/walletd/internal/ledger"
	"github.com/shopspring/decimal"
)

// LedgerStore implements ledger.Store using PostgreSQL.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a new PostgreSQL ledger store.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// InitBalance inserts a zero balance unless the user already has one.
// ON CONFLICT DO NOTHING keeps the original native currency on replays and
// races; the first insert wins.
func (s *LedgerStore) InitBalance(ctx context.Context, userID, currency string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO balance (user_id, currency, current_value)
		 VALUES ($1, $2, 0)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, currency,
	)
	if err != nil {
		return fmt.Errorf("init balance: %w", err)
	}
	return nil
}

// Update runs fn inside a read-write transaction, retrying deadlocks and
// serialization failures up to the store limit. Read committed is required:
// a transaction that waited on the balance lock must observe rows committed
// by the lock's previous holder, which a repeatable-read snapshot taken
// before the wait would hide.
func (s *LedgerStore) Update(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return withTxRetry(ctx, func() error {
		return pgx.BeginTxFunc(ctx, s.pool,
			pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
			func(tx pgx.Tx) error {
				return fn(&storeTx{tx: tx})
			})
	})
}

// View runs fn inside a read-only transaction. Read committed is enough for
// reads; the snapshot is consistent within the transaction.
func (s *LedgerStore) View(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool,
		pgx.TxOptions{AccessMode: pgx.ReadOnly},
		func(tx pgx.Tx) error {
			return fn(&storeTx{tx: tx})
		})
}

// storeTx adapts one pgx transaction to the ledger.Tx row operations.
type storeTx struct {
	tx pgx.Tx
}

func (t *storeTx) BalanceForUpdate(ctx context.Context, userID string) (*ledger.Balance, error) {
	return t.scanBalance(ctx,
		`SELECT user_id, currency, current_value FROM balance WHERE user_id = $1 FOR UPDATE`,
		userID)
}

func (t *storeTx) Balance(ctx context.Context, userID string) (*ledger.Balance, error) {
	return t.scanBalance(ctx,
		`SELECT user_id, currency, current_value FROM balance WHERE user_id = $1`,
		userID)
}

func (t *storeTx) scanBalance(ctx context.Context, query, userID string) (*ledger.Balance, error) {
	var b ledger.Balance
	err := t.tx.QueryRow(ctx, query, userID).Scan(&b.UserID, &b.Currency, &b.CurrentValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load balance: %w", err)
	}
	return &b, nil
}

func (t *storeTx) SetBalanceValue(ctx context.Context, userID string, value decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE balance SET current_value = $2 WHERE user_id = $1`,
		userID, value,
	)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update balance: user %q has no balance row", userID)
	}
	return nil
}

func (t *storeTx) SumReserves(ctx context.Context, userID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(user_currency_value), 0) FROM balance_reserve WHERE user_id = $1`,
		userID,
	).Scan(&sum)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("sum reserves: %w", err)
	}
	return sum, nil
}

func (t *storeTx) ReserveByOrder(ctx context.Context, orderID string) (*ledger.Reserve, error) {
	return t.scanReserve(ctx,
		`SELECT order_id, user_id, item_id, currency, value, user_currency_value, created_at
		 FROM balance_reserve WHERE order_id = $1`,
		orderID)
}

func (t *storeTx) ReserveByOrderForUpdate(ctx context.Context, orderID string) (*ledger.Reserve, error) {
	return t.scanReserve(ctx,
		`SELECT order_id, user_id, item_id, currency, value, user_currency_value, created_at
		 FROM balance_reserve WHERE order_id = $1 FOR UPDATE`,
		orderID)
}

func (t *storeTx) scanReserve(ctx context.Context, query, orderID string) (*ledger.Reserve, error) {
	var r ledger.Reserve
	err := t.tx.QueryRow(ctx, query, orderID).Scan(
		&r.OrderID, &r.UserID, &r.ItemID, &r.Currency,
		&r.Value, &r.UserCurrencyValue, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load reserve: %w", err)
	}
	return &r, nil
}

func (t *storeTx) InsertReserve(ctx context.Context, res *ledger.Reserve) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO balance_reserve (order_id, user_id, item_id, currency, value, user_currency_value, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		res.OrderID, res.UserID, res.ItemID, res.Currency,
		res.Value, res.UserCurrencyValue, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reserve: %w", err)
	}
	return nil
}

func (t *storeTx) DeleteReserve(ctx context.Context, orderID string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM balance_reserve WHERE order_id = $1`, orderID)
	if err != nil {
		return false, fmt.Errorf("delete reserve: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *storeTx) TransactionIDByIdempotencyKey(ctx context.Context, key string) (int64, error) {
	return t.scanTransactionID(ctx,
		`SELECT id FROM transaction WHERE idempotency_key = $1`, key)
}

func (t *storeTx) TransactionIDByOrder(ctx context.Context, orderID string) (int64, error) {
	return t.scanTransactionID(ctx,
		`SELECT id FROM transaction WHERE order_data->>'order_id' = $1`, orderID)
}

func (t *storeTx) scanTransactionID(ctx context.Context, query string, arg any) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, query, arg).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("locate transaction: %w", err)
	}
	return id, nil
}

func (t *storeTx) InsertTransaction(ctx context.Context, txn *ledger.Transaction) error {
	var (
		senderID, senderCurrency, senderValue, senderBefore, senderAfter any
		recipID, recipCurrency, recipValue, recipBefore, recipAfter      any
		merchantData, orderData, idempotencyKey                          any
	)

	if leg := txn.Sender; leg != nil {
		senderID, senderCurrency = leg.UserID, leg.Currency
		senderValue, senderBefore, senderAfter = leg.Value, leg.BalanceBefore, leg.BalanceAfter
	}
	if leg := txn.Recipient; leg != nil {
		recipID, recipCurrency = leg.UserID, leg.Currency
		recipValue, recipBefore, recipAfter = leg.Value, leg.BalanceBefore, leg.BalanceAfter
	}
	if len(txn.MerchantData) > 0 {
		merchantData = txn.MerchantData
	}
	if txn.Order != nil {
		data, err := json.Marshal(txn.Order)
		if err != nil {
			return fmt.Errorf("marshal order data: %w", err)
		}
		orderData = data
	}
	if txn.IdempotencyKey != "" {
		idempotencyKey = txn.IdempotencyKey
	}

	_, err := t.tx.Exec(ctx,
		`INSERT INTO transaction (
			id, transaction_currency, transaction_value,
			sender_id, sender_currency, sender_value, sender_balance_before, sender_balance_after,
			recipient_id, recipient_currency, recipient_value, recipient_balance_before, recipient_balance_after,
			merchant_data, order_data, created_at, idempotency_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		txn.ID, txn.Currency, txn.Value,
		senderID, senderCurrency, senderValue, senderBefore, senderAfter,
		recipID, recipCurrency, recipValue, recipBefore, recipAfter,
		merchantData, orderData, txn.CreatedAt, idempotencyKey,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
