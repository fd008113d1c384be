//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/walletd/internal/currency"
	"github.com/kislikjeka/walletd/internal/idgen"
	"github.com/kislikjeka/walletd/internal/ledger"
	"github.com/kislikjeka/walletd/testutil/testdb"
)

var testDB *testdb.TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testDB, err = testdb.NewTestDB(ctx)
	if err != nil {
		panic("failed to create test database: " + err.Error())
	}

	code := m.Run()

	testDB.Close(ctx)
	if code != 0 {
		panic("tests failed")
	}
}

func setupTest(t *testing.T) (*LedgerStore, context.Context) {
	ctx := context.Background()
	require.NoError(t, testDB.Reset(ctx))

	return NewLedgerStore(testDB.Pool), ctx
}

func setupEngine(t *testing.T) (*ledger.Service, context.Context) {
	store, ctx := setupTest(t)

	fx := currency.NewConverter(&currency.Snapshot{
		Base: "EUR",
		Rates: map[string]decimal.Decimal{
			"USD": decimal.RequireFromString("2"),
		},
		FetchedAt: time.Now(),
	})
	ids, err := idgen.New(1)
	require.NoError(t, err)

	return ledger.NewService(store, fx, ids, decimal.Decimal{}), ctx
}

func TestLedgerStore_InitBalance_KeepsFirstCurrency(t *testing.T) {
	store, ctx := setupTest(t)

	require.NoError(t, store.InitBalance(ctx, "alice", "EUR"))
	require.NoError(t, store.InitBalance(ctx, "alice", "USD"))

	err := store.View(ctx, func(tx ledger.Tx) error {
		bal, err := tx.Balance(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, bal)
		assert.Equal(t, "EUR", bal.Currency)
		assert.True(t, bal.CurrentValue.IsZero())
		return nil
	})
	require.NoError(t, err)
}

func TestLedgerStore_BalanceRoundTrip(t *testing.T) {
	store, ctx := setupTest(t)

	require.NoError(t, store.InitBalance(ctx, "alice", "EUR"))

	want := decimal.RequireFromString("123.456789")
	err := store.Update(ctx, func(tx ledger.Tx) error {
		return tx.SetBalanceValue(ctx, "alice", want)
	})
	require.NoError(t, err)

	err = store.View(ctx, func(tx ledger.Tx) error {
		bal, err := tx.Balance(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, bal)
		assert.True(t, bal.CurrentValue.Equal(want), "got %s", bal.CurrentValue)

		missing, err := tx.Balance(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	})
	require.NoError(t, err)
}

func TestLedgerStore_ReserveLifecycle(t *testing.T) {
	store, ctx := setupTest(t)

	require.NoError(t, store.InitBalance(ctx, "alice", "EUR"))

	res := &ledger.Reserve{
		OrderID:           "o1",
		UserID:            "alice",
		ItemID:            "book",
		Currency:          "USD",
		Value:             decimal.RequireFromString("10"),
		UserCurrencyValue: decimal.RequireFromString("5.3"),
		CreatedAt:         time.Now().UTC(),
	}

	err := store.Update(ctx, func(tx ledger.Tx) error {
		return tx.InsertReserve(ctx, res)
	})
	require.NoError(t, err)

	err = store.Update(ctx, func(tx ledger.Tx) error {
		got, err := tx.ReserveByOrder(ctx, "o1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "alice", got.UserID)
		assert.Equal(t, "book", got.ItemID)
		assert.True(t, got.UserCurrencyValue.Equal(res.UserCurrencyValue))

		sum, err := tx.SumReserves(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, sum.Equal(res.UserCurrencyValue))

		sum, err = tx.SumReserves(ctx, "ghost")
		require.NoError(t, err)
		assert.True(t, sum.IsZero(), "no reserves sums to zero")

		deleted, err := tx.DeleteReserve(ctx, "o1")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = tx.DeleteReserve(ctx, "o1")
		require.NoError(t, err)
		assert.False(t, deleted, "second delete finds nothing")
		return nil
	})
	require.NoError(t, err)
}

func TestLedgerStore_TransactionProbes(t *testing.T) {
	store, ctx := setupTest(t)

	require.NoError(t, store.InitBalance(ctx, "alice", "EUR"))

	txn := &ledger.Transaction{
		ID:       42,
		Currency: "EUR",
		Value:    decimal.RequireFromString("40"),
		Sender: &ledger.Leg{
			UserID:        "alice",
			Currency:      "EUR",
			Value:         decimal.RequireFromString("40"),
			BalanceBefore: decimal.RequireFromString("100"),
			BalanceAfter:  decimal.RequireFromString("60"),
		},
		Order:          &ledger.OrderData{OrderID: "o1", ItemID: "book"},
		IdempotencyKey: "k1",
		CreatedAt:      time.Now().UTC(),
	}

	err := store.Update(ctx, func(tx ledger.Tx) error {
		return tx.InsertTransaction(ctx, txn)
	})
	require.NoError(t, err)

	err = store.View(ctx, func(tx ledger.Tx) error {
		id, err := tx.TransactionIDByIdempotencyKey(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)

		id, err = tx.TransactionIDByOrder(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)

		id, err = tx.TransactionIDByOrder(ctx, "ghost")
		require.NoError(t, err)
		assert.Zero(t, id)
		return nil
	})
	require.NoError(t, err)
}

// Concurrent reserves against one balance must never hold more than the
// balance covers: the FOR UPDATE lock on the balance row serializes them.
func TestEngine_ConcurrentReserves(t *testing.T) {
	svc, ctx := setupEngine(t)

	res, err := svc.TopUp(ctx, ledger.TopUpParams{
		IdempotencyKey: "seed", UserID: "alice", Currency: "EUR", Value: "50",
	})
	require.NoError(t, err)
	require.True(t, res.OK())

	const workers = 20
	results := make([]ledger.Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := svc.Reserve(ctx, ledger.ReserveParams{
				UserID:   "alice",
				Currency: "EUR",
				Value:    "10",
				OrderID:  "order-" + string(rune('a'+i)),
			})
			require.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		switch r.Code {
		case ledger.CodeOK:
			succeeded++
		case ledger.CodeNotEnoughMoney:
		default:
			t.Fatalf("unexpected result %+v", r)
		}
	}
	assert.Equal(t, 5, succeeded, "exactly the balance's worth of holds may land")

	ub, err := svc.LoadBalance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ub.Balance.IsZero(), "spendable %s", ub.Balance)
	assert.True(t, ub.Reserved.Equal(decimal.NewFromInt(50)))
}

// Concurrent commits of the same order must settle exactly once; the loser
// of the reserve-row lock sees the settled transaction and replays its id.
func TestEngine_ConcurrentCommitSameOrder(t *testing.T) {
	svc, ctx := setupEngine(t)

	res, err := svc.TopUp(ctx, ledger.TopUpParams{
		IdempotencyKey: "seed", UserID: "alice", Currency: "EUR", Value: "100",
	})
	require.NoError(t, err)
	require.True(t, res.OK())

	res, err = svc.Reserve(ctx, ledger.ReserveParams{
		UserID: "alice", Currency: "EUR", Value: "40", OrderID: "o1",
	})
	require.NoError(t, err)
	require.True(t, res.OK())

	const workers = 4
	results := make([]ledger.Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := svc.Commit(ctx, ledger.CommitParams{UserID: "alice", OrderID: "o1"})
			require.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		require.True(t, r.OK(), "commit %d: %+v", i, r)
		assert.Equal(t, results[0].TxID, r.TxID, "all commits report the same settlement")
	}

	ub, err := svc.LoadBalance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ub.Balance.Equal(decimal.NewFromInt(60)), "debited exactly once, got %s", ub.Balance)
	assert.True(t, ub.Reserved.IsZero())
}

// A top-up replayed concurrently with the same idempotency key credits once.
func TestEngine_ConcurrentTopUpReplay(t *testing.T) {
	svc, ctx := setupEngine(t)

	const workers = 8
	results := make([]ledger.Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := svc.TopUp(ctx, ledger.TopUpParams{
				IdempotencyKey: "same-key", UserID: "alice", Currency: "EUR", Value: "100",
			})
			require.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		require.True(t, r.OK(), "top-up %d: %+v", i, r)
		assert.Equal(t, results[0].TxID, r.TxID)
	}

	ub, err := svc.LoadBalance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ub.Balance.Equal(decimal.NewFromInt(100)), "credited once, got %s", ub.Balance)
}
