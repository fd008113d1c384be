package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is a user's funds in their native currency. The currency is fixed
// by the first top-up and never changes.
type Balance struct {
	UserID       string
	Currency     string
	CurrentValue decimal.Decimal
}

// Reserve is an active hold on funds for a pending order. While it exists,
// UserCurrencyValue is subtracted from the user's spendable balance.
type Reserve struct {
	OrderID  string
	UserID   string
	ItemID   string
	Currency string
	// Value is the hold amount as requested, in Currency.
	Value decimal.Decimal
	// UserCurrencyValue is the hold in the owner's native currency,
	// including the cross-currency surcharge.
	UserCurrencyValue decimal.Decimal
	CreatedAt         time.Time
}

// Leg is one side of a monetary event: who moved money, in what currency,
// and the balance around the movement.
type Leg struct {
	UserID        string
	Currency      string
	Value         decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
}

// OrderData links a settling transaction back to its order.
type OrderData struct {
	OrderID string `json:"order_id"`
	ItemID  string `json:"item_id,omitempty"`
}

// Transaction is one immutable row of the audit log.
type Transaction struct {
	ID int64
	// Currency and Value record the request as stated by the caller.
	Currency string
	Value    decimal.Decimal

	Sender    *Leg
	Recipient *Leg

	// MerchantData is opaque caller-supplied JSON, nil when absent.
	MerchantData []byte
	// Order is set when the transaction settles a reservation.
	Order *OrderData

	// IdempotencyKey is unique when present; empty means none.
	IdempotencyKey string
	CreatedAt      time.Time
}

// UserBalance is the read model returned by LoadBalance. Balance is the
// spendable value: current value minus active reserves.
type UserBalance struct {
	UserID      string
	Currency    string
	Balance     decimal.Decimal
	Reserved    decimal.Decimal
	IsOverdraft bool
}
