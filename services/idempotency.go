package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bellapacxx/guba-backend/cache"
	"github.com/bellapacxx/guba-backend/utils/logger"
)

const (
	idempotencyPrefix = "idem:"
	pendingMarker     = "pending"
)

// Idempotency replays the first successful result of a keyed request. Keys
// are scoped per user so clients cannot collide with each other.
type Idempotency struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewIdempotency(c cache.Cache, ttl time.Duration) *Idempotency {
	return &Idempotency{cache: c, ttl: ttl}
}

// Do runs fn once per (userID, scope, key). A repeated call after success
// returns the stored result instead of calling fn. An empty key always runs fn.
func Do[T any](ctx context.Context, idem *Idempotency, userID, scope, key string, fn func() (*T, error)) (*T, error) {
	if idem == nil || key == "" {
		return fn()
	}
	ck := fmt.Sprintf("%s%s:%s:%s", idempotencyPrefix, userID, scope, key)

	claimed, err := idem.cache.SetNX(ctx, ck, []byte(pendingMarker), idem.ttl)
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}
	if !claimed {
		return replay[T](ctx, idem.cache, ck)
	}

	result, err := fn()
	if err != nil {
		// Let the client retry with the same key.
		idem.release(ctx, ck)
		return nil, err
	}

	b, err := json.Marshal(result)
	if err == nil {
		err = idem.cache.Set(ctx, ck, b, idem.ttl)
	}
	if err != nil {
		// The work is done but cannot be replayed. A stale pending marker
		// would block retries until the TTL runs out.
		logger.Warnf("store idempotent result %s: %v", ck, err)
		idem.release(ctx, ck)
	}
	return result, nil
}

func (idem *Idempotency) release(ctx context.Context, ck string) {
	if err := idem.cache.Del(ctx, ck); err != nil {
		logger.Warnf("release idempotency key %s: %v", ck, err)
	}
}

func replay[T any](ctx context.Context, c cache.Cache, ck string) (*T, error) {
	b, err := c.Get(ctx, ck)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrRequestInProgress
	}
	if err != nil {
		return nil, err
	}
	if string(b) == pendingMarker {
		return nil, ErrRequestInProgress
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode idempotent result: %w", err)
	}
	return &out, nil
}
