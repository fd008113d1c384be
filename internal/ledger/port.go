package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the persistence boundary of the engine. Implementations must run
// Update inside a read-write database transaction whose statements observe
// rows committed while the transaction waited on a lock, and retry transient
// conflicts before giving up. Serialization comes from the row locks the
// engine takes through Tx, not from the isolation level.
type Store interface {
	// InitBalance inserts a zero balance for the user unless one already
	// exists. Runs outside Update so the row is visible to the FOR UPDATE
	// lock that follows. The first caller fixes the native currency.
	InitBalance(ctx context.Context, userID, currency string) error

	// Update runs fn inside a read-write transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn inside a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the row operations available inside a store transaction.
// Lookups return a nil pointer (or zero id) without error when no row
// matches.
type Tx interface {
	// BalanceForUpdate loads the user's balance row and locks it for the
	// rest of the transaction. This lock linearizes all mutations for one
	// user.
	BalanceForUpdate(ctx context.Context, userID string) (*Balance, error)
	Balance(ctx context.Context, userID string) (*Balance, error)
	SetBalanceValue(ctx context.Context, userID string, value decimal.Decimal) error

	SumReserves(ctx context.Context, userID string) (decimal.Decimal, error)
	ReserveByOrder(ctx context.Context, orderID string) (*Reserve, error)
	// ReserveByOrderForUpdate locks the reserve row so concurrent commits of
	// the same order serialize before touching the balance.
	ReserveByOrderForUpdate(ctx context.Context, orderID string) (*Reserve, error)
	InsertReserve(ctx context.Context, res *Reserve) error
	// DeleteReserve reports whether a row was actually removed.
	DeleteReserve(ctx context.Context, orderID string) (bool, error)

	TransactionIDByIdempotencyKey(ctx context.Context, key string) (int64, error)
	// TransactionIDByOrder probes the audit log through the JSON path
	// order_data->>'order_id'.
	TransactionIDByOrder(ctx context.Context, orderID string) (int64, error)
	InsertTransaction(ctx context.Context, txn *Transaction) error
}

// Converter turns amounts of one currency into another using the active
// rate snapshot.
type Converter interface {
	IsValid(code string) bool
	Convert(from string, value decimal.Decimal, to string) (decimal.Decimal, error)
}

// IDGenerator produces unique positive transaction ids.
type IDGenerator interface {
	Next() int64
}
