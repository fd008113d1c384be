// Package ledger implements the wallet ledger engine: balances, holds
// against pending orders, and the immutable transaction log.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSurcharge is the multiplier applied to cross-currency holds to
// absorb rate drift between reserve and commit.
var DefaultSurcharge = decimal.RequireFromString("1.06")

// Service is the ledger engine. All mutating operations run inside a single
// store transaction; per user they are linearized by the row lock on the
// balance row.
type Service struct {
	store     Store
	fx        Converter
	ids       IDGenerator
	surcharge decimal.Decimal
}

// NewService creates the engine. A zero surcharge falls back to
// DefaultSurcharge; values below 1 are rejected by config validation before
// they get here.
func NewService(store Store, fx Converter, ids IDGenerator, surcharge decimal.Decimal) *Service {
	if surcharge.IsZero() {
		surcharge = DefaultSurcharge
	}
	return &Service{store: store, fx: fx, ids: ids, surcharge: surcharge}
}

// TopUpParams carries a top-up request. Value is a decimal string.
type TopUpParams struct {
	IdempotencyKey string
	UserID         string
	Currency       string
	Value          string
	MerchantData   string
}

// ReserveParams carries a hold request for an order.
type ReserveParams struct {
	UserID   string
	Currency string
	Value    string
	OrderID  string
	ItemID   string
}

// CommitParams settles a reserved order. Currency and Value may both be set
// to override the reserved amount; left empty, the reservation's own amount
// settles.
type CommitParams struct {
	UserID   string
	Currency string
	Value    string
	OrderID  string
	ItemID   string
}

// CancelParams releases a hold without settling it.
type CancelParams struct {
	UserID  string
	OrderID string
}

// TopUp credits a user. The first top-up creates the balance row and fixes
// the user's native currency; later top-ups in other currencies convert into
// it. Replays with a known idempotency key return the original transaction
// id without changing state.
func (s *Service) TopUp(ctx context.Context, p TopUpParams) (Result, error) {
	if p.IdempotencyKey == "" {
		return badParameter("idempotency_key"), nil
	}
	if p.UserID == "" {
		return badParameter("user_id"), nil
	}
	if !s.fx.IsValid(p.Currency) {
		return badParameter("currency"), nil
	}
	value, perr := parsePositiveDecimal(p.Value)
	if perr != nil {
		return badParameter("value"), nil
	}
	if p.MerchantData != "" && !json.Valid([]byte(p.MerchantData)) {
		return badParameter("merchant_data"), nil
	}

	// The upsert runs outside the transaction so the row exists before the
	// FOR UPDATE below. ON CONFLICT DO NOTHING keeps the original currency.
	if err := s.store.InitBalance(ctx, p.UserID, p.Currency); err != nil {
		return Result{}, err
	}

	var res Result
	err := s.store.Update(ctx, func(tx Tx) error {
		bal, err := tx.BalanceForUpdate(ctx, p.UserID)
		if err != nil {
			return err
		}
		if bal == nil {
			return fmt.Errorf("balance for user %q missing after init", p.UserID)
		}

		txID, err := tx.TransactionIDByIdempotencyKey(ctx, p.IdempotencyKey)
		if err != nil {
			return err
		}
		if txID != 0 {
			res = ok(txID)
			return nil
		}

		delta, err := s.fx.Convert(p.Currency, value, bal.Currency)
		if err != nil {
			return err
		}
		newValue := bal.CurrentValue.Add(delta)

		txn := &Transaction{
			ID:       s.ids.Next(),
			Currency: p.Currency,
			Value:    value,
			Recipient: &Leg{
				UserID:        p.UserID,
				Currency:      bal.Currency,
				Value:         delta,
				BalanceBefore: bal.CurrentValue,
				BalanceAfter:  newValue,
			},
			IdempotencyKey: p.IdempotencyKey,
			CreatedAt:      time.Now().UTC(),
		}
		if p.MerchantData != "" {
			txn.MerchantData = []byte(p.MerchantData)
		}

		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		if err := tx.SetBalanceValue(ctx, p.UserID, newValue); err != nil {
			return err
		}
		res = ok(txn.ID)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Reserve places a hold on the user's funds for an order. Cross-currency
// holds carry the surcharge. Reserving an already-reserved order is an
// idempotent success; reserving a settled order is invalid.
func (s *Service) Reserve(ctx context.Context, p ReserveParams) (Result, error) {
	if p.UserID == "" {
		return badParameter("user_id"), nil
	}
	if !s.fx.IsValid(p.Currency) {
		return badParameter("currency"), nil
	}
	value, perr := parsePositiveDecimal(p.Value)
	if perr != nil {
		return badParameter("value"), nil
	}
	if p.OrderID == "" {
		return badParameter("order_id"), nil
	}

	var res Result
	err := s.store.Update(ctx, func(tx Tx) error {
		bal, err := tx.BalanceForUpdate(ctx, p.UserID)
		if err != nil {
			return err
		}
		if bal == nil {
			res = Result{Code: CodeUserNotFound}
			return nil
		}

		reserved, err := tx.SumReserves(ctx, p.UserID)
		if err != nil {
			return err
		}

		existing, err := tx.ReserveByOrder(ctx, p.OrderID)
		if err != nil {
			return err
		}
		if existing != nil {
			res = Result{Code: CodeOK}
			return nil
		}

		settledID, err := tx.TransactionIDByOrder(ctx, p.OrderID)
		if err != nil {
			return err
		}
		if settledID != 0 {
			res = Result{Code: CodeInvalidState}
			return nil
		}

		hold := value
		if p.Currency != bal.Currency {
			hold, err = s.fx.Convert(p.Currency, value.Mul(s.surcharge), bal.Currency)
			if err != nil {
				return err
			}
		}

		spendable := bal.CurrentValue.Sub(reserved)
		if hold.GreaterThan(spendable) {
			res = Result{Code: CodeNotEnoughMoney}
			return nil
		}

		if err := tx.InsertReserve(ctx, &Reserve{
			OrderID:           p.OrderID,
			UserID:            p.UserID,
			ItemID:            p.ItemID,
			Currency:          p.Currency,
			Value:             value,
			UserCurrencyValue: hold,
			CreatedAt:         time.Now().UTC(),
		}); err != nil {
			return err
		}
		res = Result{Code: CodeOK}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Commit settles a reserved order: removes the hold, debits the balance at
// the current rate without surcharge, and writes the settling transaction.
// Committing an already-settled order returns the original transaction id.
// Overdraft is allowed only when settlement happens in a non-native
// currency; the native-currency path held the full amount at reserve time
// and can never overdraw.
func (s *Service) Commit(ctx context.Context, p CommitParams) (Result, error) {
	if p.OrderID == "" {
		return badParameter("order_id"), nil
	}
	var override decimal.Decimal
	hasOverride := p.Currency != "" || p.Value != ""
	if hasOverride {
		if !s.fx.IsValid(p.Currency) {
			return badParameter("currency"), nil
		}
		value, perr := parsePositiveDecimal(p.Value)
		if perr != nil {
			return badParameter("value"), nil
		}
		override = value
	}

	var res Result
	err := s.store.Update(ctx, func(tx Tx) error {
		resv, err := tx.ReserveByOrderForUpdate(ctx, p.OrderID)
		if err != nil {
			return err
		}
		if resv == nil {
			settledID, err := tx.TransactionIDByOrder(ctx, p.OrderID)
			if err != nil {
				return err
			}
			if settledID != 0 {
				res = ok(settledID)
			} else {
				res = Result{Code: CodeInvalidState}
			}
			return nil
		}

		if p.UserID != "" && p.UserID != resv.UserID {
			res = badParameter("user_id")
			return nil
		}

		bal, err := tx.BalanceForUpdate(ctx, resv.UserID)
		if err != nil {
			return err
		}
		if bal == nil {
			return fmt.Errorf("balance for user %q missing while reserve %q exists", resv.UserID, p.OrderID)
		}

		settleCurrency, settleValue := resv.Currency, resv.Value
		if hasOverride {
			settleCurrency, settleValue = p.Currency, override
		}

		native, err := s.fx.Convert(settleCurrency, settleValue, bal.Currency)
		if err != nil {
			return err
		}
		newValue := bal.CurrentValue.Sub(native)

		if newValue.IsNegative() && settleCurrency == bal.Currency {
			res = Result{Code: CodeNotEnoughMoney}
			return nil
		}

		txn := &Transaction{
			ID:       s.ids.Next(),
			Currency: settleCurrency,
			Value:    settleValue,
			Sender: &Leg{
				UserID:        resv.UserID,
				Currency:      bal.Currency,
				Value:         native,
				BalanceBefore: bal.CurrentValue,
				BalanceAfter:  newValue,
			},
			Order:     &OrderData{OrderID: p.OrderID, ItemID: resv.ItemID},
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		if _, err := tx.DeleteReserve(ctx, p.OrderID); err != nil {
			return err
		}
		if err := tx.SetBalanceValue(ctx, resv.UserID, newValue); err != nil {
			return err
		}
		res = ok(txn.ID)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Cancel releases a hold without settling. Cancelling an order that was
// never reserved is an idempotent no-op, unless the order already settled,
// which is invalid.
func (s *Service) Cancel(ctx context.Context, p CancelParams) (Result, error) {
	if p.UserID == "" {
		return badParameter("user_id"), nil
	}
	if p.OrderID == "" {
		return badParameter("order_id"), nil
	}

	var res Result
	err := s.store.Update(ctx, func(tx Tx) error {
		bal, err := tx.BalanceForUpdate(ctx, p.UserID)
		if err != nil {
			return err
		}
		if bal == nil {
			res = Result{Code: CodeUserNotFound}
			return nil
		}

		resv, err := tx.ReserveByOrder(ctx, p.OrderID)
		if err != nil {
			return err
		}
		if resv == nil {
			settledID, err := tx.TransactionIDByOrder(ctx, p.OrderID)
			if err != nil {
				return err
			}
			if settledID != 0 {
				res = Result{Code: CodeInvalidState}
			} else {
				res = Result{Code: CodeOK}
			}
			return nil
		}

		if resv.UserID != p.UserID {
			res = badParameter("user_id")
			return nil
		}

		if _, err := tx.DeleteReserve(ctx, p.OrderID); err != nil {
			return err
		}
		res = Result{Code: CodeOK}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// LoadBalance returns the user's spendable balance and active reserves.
// A nil result with nil error means the user is unknown.
func (s *Service) LoadBalance(ctx context.Context, userID string) (*UserBalance, error) {
	var ub *UserBalance
	err := s.store.View(ctx, func(tx Tx) error {
		bal, err := tx.Balance(ctx, userID)
		if err != nil {
			return err
		}
		if bal == nil {
			return nil
		}

		reserved, err := tx.SumReserves(ctx, userID)
		if err != nil {
			return err
		}

		spendable := bal.CurrentValue.Sub(reserved)
		ub = &UserBalance{
			UserID:      userID,
			Currency:    bal.Currency,
			Balance:     spendable,
			Reserved:    reserved,
			IsOverdraft: spendable.IsNegative(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ub, nil
}

func parsePositiveDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("value must be positive")
	}
	return d, nil
}
