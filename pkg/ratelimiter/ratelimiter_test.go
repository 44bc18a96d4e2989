package ratelimiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"anoa.com/mathter/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilClientAllows(t *testing.T) {
	ctx := context.Background()

	allowed, err := CheckAndSetRateLimit(ctx, nil, 1, ScopeTutor, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	assert.NoError(t, Allow(ctx, nil, 1, ScopeTutor, time.Minute))
	assert.NoError(t, ClearRateLimit(ctx, nil, 1, ScopeTutor))
}

func TestRateLimitErrorMapsToSentinel(t *testing.T) {
	var err error = &RateLimitError{Message: "slow down", RetryAfter: 3 * time.Second}

	assert.True(t, errors.Is(err, apperror.ErrRateLimitExceeded))
	assert.Equal(t, 429, apperror.MapErrorToStatus(err))
	assert.Equal(t, "slow down", err.Error())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "rate_limit:user:42:tutor", key(42, ScopeTutor))
}
