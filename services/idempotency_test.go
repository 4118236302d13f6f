package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bellapacxx/guba-backend/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unwritableCache claims keys but fails to store results.
type unwritableCache struct {
	*cache.Memory
}

func (unwritableCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("redis: connection reset")
}

func TestUnstoredResultReleasesIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	c := unwritableCache{cache.NewMemory()}
	idem := NewIdempotency(c, time.Hour)

	calls := 0
	run := func() (*WalletResult, error) {
		calls++
		return &WalletResult{Message: "ok"}, nil
	}

	res, err := Do(ctx, idem, "u1", "deposit", "k", run)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Message)

	_, err = c.Get(ctx, "idem:u1:deposit:k")
	assert.ErrorIs(t, err, cache.ErrMiss)

	_, err = Do(ctx, idem, "u1", "deposit", "k", run)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
