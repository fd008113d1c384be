package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kislikjeka/walletd/internal/ledger"
	"github.com/kislikjeka/walletd/internal/proto"
	"github.com/kislikjeka/walletd/pkg/logger"
	"github.com/kislikjeka/walletd/pkg/workpool"
)

// LedgerService defines the interface for wallet ledger operations
type LedgerService interface {
	TopUp(ctx context.Context, p ledger.TopUpParams) (ledger.Result, error)
	Reserve(ctx context.Context, p ledger.ReserveParams) (ledger.Result, error)
	Commit(ctx context.Context, p ledger.CommitParams) (ledger.Result, error)
	Cancel(ctx context.Context, p ledger.CancelParams) (ledger.Result, error)
	LoadBalance(ctx context.Context, userID string) (*ledger.UserBalance, error)
}

// WalletHandler handles the wallet HTTP requests
type WalletHandler struct {
	engine LedgerService
	pool   *workpool.Pool
	log    *logger.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(engine LedgerService, pool *workpool.Pool, log *logger.Logger) *WalletHandler {
	return &WalletHandler{
		engine: engine,
		pool:   pool,
		log:    log,
	}
}

// GetBalance handles GET /balance/{userID}
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondOutput(w, r, proto.NewBadParameter("user_id"))
		return
	}

	var out *proto.GenericOutput
	err := h.pool.Do(r.Context(), func(ctx context.Context) error {
		ub, err := h.engine.LoadBalance(ctx, userID)
		if err != nil {
			return err
		}
		if ub == nil {
			out = proto.NewUserNotFound()
			return nil
		}
		out = &proto.GenericOutput{UserBalance: toUserBalanceData(ub)}
		return nil
	})
	if err != nil {
		h.log.WithContext(r.Context()).WithError(err).Error("load balance failed")
		respondInternal(w)
		return
	}
	respondOutput(w, r, out)
}

// TopUp handles POST /top-up
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	var in proto.TopUpInput
	if err := decodeRequest(r, &in); err != nil {
		respondOutput(w, r, proto.NewBadParameter("body"))
		return
	}

	h.run(w, r, in.UserID, func(ctx context.Context) (ledger.Result, error) {
		return h.engine.TopUp(ctx, ledger.TopUpParams{
			IdempotencyKey: in.IdempotencyKey,
			UserID:         in.UserID,
			Currency:       in.Currency,
			Value:          in.Value,
			MerchantData:   in.MerchantData,
		})
	})
}

// Reserve handles POST /reserve
func (h *WalletHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var in proto.ReserveInput
	if err := decodeRequest(r, &in); err != nil {
		respondOutput(w, r, proto.NewBadParameter("body"))
		return
	}

	h.run(w, r, in.UserID, func(ctx context.Context) (ledger.Result, error) {
		return h.engine.Reserve(ctx, ledger.ReserveParams{
			UserID:   in.UserID,
			Currency: in.Currency,
			Value:    in.Value,
			OrderID:  in.OrderID,
			ItemID:   in.ItemID,
		})
	})
}

// Commit handles POST /commit. The user id is optional here; without it a
// successful commit answers with an empty envelope since there is no user to
// report a balance for.
func (h *WalletHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var in proto.CommitInput
	if err := decodeRequest(r, &in); err != nil {
		respondOutput(w, r, proto.NewBadParameter("body"))
		return
	}

	h.run(w, r, in.UserID, func(ctx context.Context) (ledger.Result, error) {
		return h.engine.Commit(ctx, ledger.CommitParams{
			UserID:   in.UserID,
			Currency: in.Currency,
			Value:    in.Value,
			OrderID:  in.OrderID,
			ItemID:   in.ItemID,
		})
	})
}

// Cancel handles POST /cancel
func (h *WalletHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var in proto.CancelInput
	if err := decodeRequest(r, &in); err != nil {
		respondOutput(w, r, proto.NewBadParameter("body"))
		return
	}

	h.run(w, r, in.UserID, func(ctx context.Context) (ledger.Result, error) {
		return h.engine.Cancel(ctx, ledger.CancelParams{
			UserID:  in.UserID,
			OrderID: in.OrderID,
		})
	})
}

// run executes op inside the work pool, then builds the envelope. Successful
// mutations answer with the user's balance after the operation.
func (h *WalletHandler) run(w http.ResponseWriter, r *http.Request, userID string, op func(ctx context.Context) (ledger.Result, error)) {
	var out *proto.GenericOutput
	err := h.pool.Do(r.Context(), func(ctx context.Context) error {
		res, err := op(ctx)
		if err != nil {
			return err
		}
		if !res.OK() {
			out = toErrorOutput(res)
			return nil
		}
		if userID == "" {
			out = &proto.GenericOutput{}
			return nil
		}

		ub, err := h.engine.LoadBalance(ctx, userID)
		if err != nil {
			return err
		}
		if ub == nil {
			out = &proto.GenericOutput{}
			return nil
		}
		out = &proto.GenericOutput{UserBalance: toUserBalanceData(ub)}
		return nil
	})
	if err != nil {
		h.log.WithContext(r.Context()).WithError(err).Error("wallet operation failed",
			"path", r.URL.Path,
		)
		respondInternal(w)
		return
	}
	respondOutput(w, r, out)
}

func toErrorOutput(res ledger.Result) *proto.GenericOutput {
	switch res.Code {
	case ledger.CodeUserNotFound:
		return proto.NewUserNotFound()
	case ledger.CodeNotEnoughMoney:
		return proto.NewNotEnoughMoney()
	case ledger.CodeInvalidState:
		return proto.NewInvalidState()
	default:
		return proto.NewBadParameter(res.Field)
	}
}

func toUserBalanceData(ub *ledger.UserBalance) *proto.UserBalanceData {
	return &proto.UserBalanceData{
		UserID:        ub.UserID,
		Currency:      ub.Currency,
		Value:         ub.Balance.String(),
		ReservedValue: ub.Reserved.String(),
		IsOverdraft:   ub.IsOverdraft,
	}
}
