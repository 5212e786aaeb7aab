package api

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"newspaper-miniapp/internal/imageproc"
)

// RetryPolicy задает параметры экспоненциального повтора.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxAttempts int
	// OnRetry вызывается перед каждой паузой, может быть nil.
	OnRetry func(err error, next time.Duration)
}

// Retry выполняет fn до MaxAttempts раз с паузами BaseDelay, 2×BaseDelay, 4×BaseDelay...
// Ошибка последней попытки возвращается вызывающему. Ошибки проверки файла
// и ответы 4xx не повторяются.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = policy.BaseDelay << uint(attempts)
	exp.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)

	op := func() (T, error) {
		res, err := fn(ctx)
		if err != nil && !retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	var notify backoff.Notify
	if policy.OnRetry != nil {
		notify = policy.OnRetry
	}
	return backoff.RetryNotifyWithData(op, b, notify)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, imageproc.ErrUnsupportedType) || errors.Is(err, imageproc.ErrTooLarge) || errors.Is(err, imageproc.ErrEmpty) {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return false
	}
	return true
}
