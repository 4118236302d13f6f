package services

import (
	"context"
	"sync"
	"testing"

	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceWithoutWalletIsZero(t *testing.T) {
	f := newFixture()
	bal, err := f.wallet.Balance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, models.Amount(0), bal)
}

func TestDepositAndWithdraw(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.wallet.Deposit(ctx, "u1", 5000, "")
	require.NoError(t, err)
	assert.Equal(t, "Deposit successful", res.Message)
	assert.Equal(t, models.Amount(5000), res.Balance)

	res, err = f.wallet.Withdraw(ctx, "u1", 1250, "")
	require.NoError(t, err)
	assert.Equal(t, "Withdrawal successful", res.Message)
	assert.Equal(t, models.Amount(3750), res.Balance)

	history, err := f.wallet.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.WithdrawTransaction, history[0].Type)
	assert.Equal(t, models.Amount(3750), history[0].BalanceAfter)
	assert.Equal(t, models.DepositTransaction, history[1].Type)
	assert.Equal(t, models.Amount(5000), history[1].BalanceAfter)

	events := f.notifier.userEvents("u1")
	require.Len(t, events, 2)
	assert.Equal(t, EventBalanceUpdated, events[1].Type)
}

func TestWalletRejectsInvalidAmounts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, amt := range []models.Amount{0, -100} {
		_, err := f.wallet.Deposit(ctx, "u1", amt, "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = f.wallet.Withdraw(ctx, "u1", amt, "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.wallet.Withdraw(ctx, "u1", 100, "")
	assert.ErrorIs(t, err, store.ErrInsufficientFunds)

	_, err = f.wallet.Deposit(ctx, "u1", 100, "")
	require.NoError(t, err)
	_, err = f.wallet.Withdraw(ctx, "u1", 101, "")
	assert.ErrorIs(t, err, store.ErrInsufficientFunds)

	bal, err := f.wallet.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.Amount(100), bal)
}

func TestDepositIdempotencyReplays(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.wallet.Deposit(ctx, "u1", 1000, "key-1")
	require.NoError(t, err)
	second, err := f.wallet.Deposit(ctx, "u1", 1000, "key-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	bal, err := f.wallet.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.Amount(1000), bal)

	// same key, other user
	_, err = f.wallet.Deposit(ctx, "u2", 1000, "key-1")
	require.NoError(t, err)
	bal, err = f.wallet.Balance(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, models.Amount(1000), bal)
}

func TestFailedRequestReleasesIdempotencyKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.wallet.Withdraw(ctx, "u1", 500, "key-2")
	require.ErrorIs(t, err, store.ErrInsufficientFunds)

	_, err = f.wallet.Deposit(ctx, "u1", 500, "")
	require.NoError(t, err)
	res, err := f.wallet.Withdraw(ctx, "u1", 500, "key-2")
	require.NoError(t, err)
	assert.Equal(t, models.Amount(0), res.Balance)
}

func TestPendingIdempotencyKeyIsInProgress(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	calls := 0
	_, err := Do(ctx, f.wallet.idem, "u1", "deposit", "k", func() (*WalletResult, error) {
		calls++
		_, inner := Do(ctx, f.wallet.idem, "u1", "deposit", "k", func() (*WalletResult, error) {
			calls++
			return &WalletResult{}, nil
		})
		assert.ErrorIs(t, inner, ErrRequestInProgress)
		return &WalletResult{Message: "ok"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestConcurrentWalletMutations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.wallet.Deposit(ctx, "u1", 100, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	bal, err := f.wallet.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.Amount(n*100), bal)

	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < n*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.wallet.Withdraw(ctx, "u1", 100, ""); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, n, succeeded)
	bal, err = f.wallet.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.Amount(0), bal)
}

func TestDepositRejectsBalanceOverflow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.wallet.Deposit(ctx, "u1", models.MaxAmount, "")
	require.NoError(t, err)
	_, err = f.wallet.Deposit(ctx, "u1", 1, "")
	assert.ErrorIs(t, err, models.ErrAmountOutOfRange)

	balance, err := f.wallet.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.MaxAmount, balance)
}
