package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: ErrNotFound, want: http.StatusNotFound},
		{name: "wrapped not found", err: fmt.Errorf("%w: account 7", ErrNotFound), want: http.StatusNotFound},
		{name: "unauthorized", err: ErrUnauthorized, want: http.StatusUnauthorized},
		{name: "forbidden", err: ErrForbidden, want: http.StatusForbidden},
		{name: "invalid input", err: ErrInvalidInput, want: http.StatusBadRequest},
		{name: "conflict", err: ErrConflict, want: http.StatusConflict},
		{name: "rate limit", err: ErrRateLimitExceeded, want: http.StatusTooManyRequests},
		{name: "unavailable", err: ErrServiceUnavailable, want: http.StatusServiceUnavailable},
		{name: "app error code wins", err: New(http.StatusTeapot, "teapot", ErrNotFound), want: http.StatusTeapot},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorToStatus(tt.err))
		})
	}
}

func TestFromDB(t *testing.T) {
	assert.NoError(t, FromDB(nil))
	assert.ErrorIs(t, FromDB(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, FromDB(gorm.ErrRecordNotFound), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, FromDB(gorm.ErrDuplicatedKey), ErrConflict)
	assert.ErrorIs(t, FromDB(gorm.ErrForeignKeyViolated), ErrConflict)

	other := errors.New("connection reset")
	assert.Equal(t, other, FromDB(other))
}
