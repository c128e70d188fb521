// Package ratelimit throttles failed login attempts with fixed windows kept in Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dtroode/authkeeper/internal/model"
)

const keyPrefix = "login:"

// counterStore is the storage the limiter needs. Redis implements it in production.
type counterStore interface {
	Count(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
}

var _ model.LoginLimiter = (*Limiter)(nil)

// Limiter blocks a key once it accumulates maxAttempts failures within window.
type Limiter struct {
	store       counterStore
	maxAttempts int64
	window      time.Duration
}

// New creates a limiter backed by a Redis client.
func New(client redis.UniversalClient, maxAttempts int, window time.Duration) *Limiter {
	return newLimiter(&redisCounters{client: client, incr: incrScript}, maxAttempts, window)
}

func newLimiter(store counterStore, maxAttempts int, window time.Duration) *Limiter {
	return &Limiter{store: store, maxAttempts: int64(maxAttempts), window: window}
}

// Allow reports whether key may attempt another login.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := l.store.Count(ctx, keyPrefix+key)
	if err != nil {
		return false, fmt.Errorf("failed to read attempts: %w", err)
	}
	return n < l.maxAttempts, nil
}

// Fail records a failed attempt. The window starts with the first failure.
func (l *Limiter) Fail(ctx context.Context, key string) error {
	if _, err := l.store.Incr(ctx, keyPrefix+key, l.window); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// Reset clears the failures recorded for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.store.Delete(ctx, keyPrefix+key); err != nil {
		return fmt.Errorf("failed to reset attempts: %w", err)
	}
	return nil
}

// incrScript increments the counter and sets its expiry only when the key is new.
var incrScript = redis.NewScript(`
	local n = redis.call('INCR', KEYS[1])
	if n == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return n
`)

type redisCounters struct {
	client redis.UniversalClient
	incr   *redis.Script
}

func (r *redisCounters) Count(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (r *redisCounters) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	return r.incr.Run(ctx, r.client, []string{key}, window.Milliseconds()).Int64()
}

func (r *redisCounters) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Noop never blocks.
type Noop struct{}

func (Noop) Allow(context.Context, string) (bool, error) { return true, nil }
func (Noop) Fail(context.Context, string) error          { return nil }
func (Noop) Reset(context.Context, string) error         { return nil }
