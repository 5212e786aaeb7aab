package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspaper-miniapp/internal/domain"
	"newspaper-miniapp/internal/imageproc"
)

func TestRetry(t *testing.T) {
	errTransient := errors.New("connection reset")

	t.Run("succeeds after transient failures", func(t *testing.T) {
		var delays []time.Duration
		attempts := 0
		policy := RetryPolicy{
			BaseDelay:   time.Millisecond,
			MaxAttempts: 4,
			OnRetry:     func(_ error, next time.Duration) { delays = append(delays, next) },
		}

		got, err := Retry(context.Background(), policy, func(context.Context) (string, error) {
			attempts++
			if attempts < 3 {
				return "", errTransient
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
	})

	t.Run("last error is propagated", func(t *testing.T) {
		attempts := 0
		_, err := Retry(context.Background(), RetryPolicy{BaseDelay: time.Millisecond, MaxAttempts: 3}, func(context.Context) (int, error) {
			attempts++
			return 0, errTransient
		})
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 3, attempts)
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		attempts := 0
		_, err := Retry(context.Background(), RetryPolicy{BaseDelay: time.Millisecond, MaxAttempts: 3}, func(context.Context) (int, error) {
			attempts++
			return 0, &Error{StatusCode: http.StatusBadRequest}
		})
		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 1, attempts)
	})

	t.Run("server errors are retried", func(t *testing.T) {
		attempts := 0
		_, err := Retry(context.Background(), RetryPolicy{BaseDelay: time.Millisecond, MaxAttempts: 2}, func(context.Context) (int, error) {
			attempts++
			return 0, &Error{StatusCode: http.StatusBadGateway}
		})
		assert.Error(t, err)
		assert.Equal(t, 2, attempts)
	})

	t.Run("validation errors are not retried", func(t *testing.T) {
		attempts := 0
		_, err := Retry(context.Background(), RetryPolicy{BaseDelay: time.Millisecond, MaxAttempts: 3}, func(context.Context) (int, error) {
			attempts++
			if attempts == 1 {
				return 0, ValidateFeedback(domain.Feedback{})
			}
			return 0, nil
		})
		assert.Error(t, err)
		assert.Equal(t, 1, attempts)

		attempts = 0
		_, err = Retry(context.Background(), RetryPolicy{BaseDelay: time.Millisecond, MaxAttempts: 3}, func(context.Context) (int, error) {
			attempts++
			return 0, imageproc.ErrTooLarge
		})
		assert.ErrorIs(t, err, imageproc.ErrTooLarge)
		assert.Equal(t, 1, attempts)
	})

	t.Run("zero attempts means one call", func(t *testing.T) {
		attempts := 0
		_, _ = Retry(context.Background(), RetryPolicy{BaseDelay: time.Millisecond}, func(context.Context) (int, error) {
			attempts++
			return 0, errTransient
		})
		assert.Equal(t, 1, attempts)
	})

	t.Run("canceled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		_, err := Retry(ctx, RetryPolicy{BaseDelay: time.Hour, MaxAttempts: 5}, func(context.Context) (int, error) {
			attempts++
			cancel()
			return 0, errTransient
		})
		assert.Error(t, err)
		assert.Equal(t, 1, attempts)
	})
}
