// Package ratelimiter implements per-account cooldowns on top of redis SET NX.
package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"anoa.com/mathter/pkg/apperror"
	"github.com/redis/go-redis/v9"
)

const (
	ScopeGlobal = "global"
	ScopeTutor  = "tutor"
)

// RateLimitError is returned while a cooldown is still running.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

func (e *RateLimitError) Unwrap() error {
	return apperror.ErrRateLimitExceeded
}

func key(userID uint, scope string) string {
	return fmt.Sprintf("rate_limit:user:%d:%s", userID, scope)
}

// CheckAndSetRateLimit starts a cooldown and reports whether the caller was allowed.
// A nil client disables limiting.
func CheckAndSetRateLimit(ctx context.Context, rdb *redis.Client, userID uint, scope string, limit time.Duration) (bool, error) {
	if rdb == nil {
		return true, nil
	}

	wasSet, err := rdb.SetNX(ctx, key(userID, scope), "locked", limit).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	return wasSet, nil
}

func GetRateLimitTTL(ctx context.Context, rdb *redis.Client, userID uint, scope string) (time.Duration, error) {
	if rdb == nil {
		return 0, nil
	}
	return rdb.TTL(ctx, key(userID, scope)).Result()
}

func ClearRateLimit(ctx context.Context, rdb *redis.Client, userID uint, scope string) error {
	if rdb == nil {
		return nil
	}
	return rdb.Del(ctx, key(userID, scope)).Err()
}

// Allow wraps CheckAndSetRateLimit and turns a refusal into a RateLimitError.
func Allow(ctx context.Context, rdb *redis.Client, userID uint, scope string, limit time.Duration) error {
	if limit <= 0 {
		return nil
	}

	allowed, err := CheckAndSetRateLimit(ctx, rdb, userID, scope, limit)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}

	ttl, _ := GetRateLimitTTL(ctx, rdb, userID, scope)
	if ttl <= 0 {
		ttl = limit
	}
	return &RateLimitError{
		Message:    fmt.Sprintf("you are doing that too fast. Please wait %.0f seconds", ttl.Seconds()),
		RetryAfter: ttl,
	}
}
