package services

import (
	"context"
	"errors"
	"time"

	"github.com/bellapacxx/guba-backend/metrics"
	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/store"
	"github.com/bellapacxx/guba-backend/utils/logger"
	"github.com/google/uuid"
)

// WalletResult is returned by deposit and withdraw.
type WalletResult struct {
	Message string        `json:"message"`
	Balance models.Amount `json:"balance"`
}

type WalletService struct {
	wallets  store.WalletStore
	notifier Notifier
	idem     *Idempotency
	now      func() time.Time
}

func NewWalletService(wallets store.WalletStore, notifier Notifier, idem *Idempotency) *WalletService {
	return &WalletService{wallets: wallets, notifier: notifier, idem: idem, now: time.Now}
}

// Balance returns zero for users who never deposited.
func (s *WalletService) Balance(ctx context.Context, userID string) (models.Amount, error) {
	w, err := s.wallets.GetWallet(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// Deposit credits amount, creating the wallet on first use. key is an
// optional idempotency key.
func (s *WalletService) Deposit(ctx context.Context, userID string, amount models.Amount, key string) (*WalletResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return Do(ctx, s.idem, userID, "deposit", key, func() (*WalletResult, error) {
		w, err := s.wallets.Credit(ctx, s.mutation(userID, amount, models.DepositTransaction, key))
		if err != nil {
			metrics.RecordWalletOperation(string(models.DepositTransaction), "error")
			return nil, err
		}
		metrics.RecordWalletOperation(string(models.DepositTransaction), "ok")
		logger.Infow("wallet deposit", "user", userID, "amount", amount.String(), "balance", w.Balance.String())
		s.notifyBalance(userID, w.Balance)
		return &WalletResult{Message: "Deposit successful", Balance: w.Balance}, nil
	})
}

func (s *WalletService) Withdraw(ctx context.Context, userID string, amount models.Amount, key string) (*WalletResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return Do(ctx, s.idem, userID, "withdraw", key, func() (*WalletResult, error) {
		w, err := s.wallets.Debit(ctx, s.mutation(userID, amount, models.WithdrawTransaction, key))
		if err != nil {
			result := "error"
			if errors.Is(err, store.ErrInsufficientFunds) {
				result = "rejected"
			}
			metrics.RecordWalletOperation(string(models.WithdrawTransaction), result)
			return nil, err
		}
		metrics.RecordWalletOperation(string(models.WithdrawTransaction), "ok")
		logger.Infow("wallet withdrawal", "user", userID, "amount", amount.String(), "balance", w.Balance.String())
		s.notifyBalance(userID, w.Balance)
		return &WalletResult{Message: "Withdrawal successful", Balance: w.Balance}, nil
	})
}

func (s *WalletService) History(ctx context.Context, userID string) ([]models.Transaction, error) {
	return s.wallets.ListTransactions(ctx, userID)
}

func (s *WalletService) mutation(userID string, amount models.Amount, kind models.TransactionType, ref string) store.WalletMutation {
	return store.WalletMutation{
		UserID:    userID,
		Amount:    amount,
		Timestamp: s.now(),
		Entry: models.Transaction{
			ID:        uuid.NewString(),
			UserID:    userID,
			Type:      kind,
			Amount:    amount,
			Reference: ref,
		},
	}
}

func (s *WalletService) notifyBalance(userID string, balance models.Amount) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyUser(userID, Event{Type: EventBalanceUpdated, Data: map[string]any{"balance": balance}})
}
