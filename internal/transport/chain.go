// Package transport собирает HTTP-клиент приложения из цепочки промежуточных обработчиков.
package transport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChatPath — корень семейства конечных точек чата.
const ChatPath = "/api/chat"

// Middleware оборачивает RoundTripper.
type Middleware func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc позволяет использовать функцию как http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain строит RoundTripper из base и промежуточных обработчиков.
// Первый обработчик в списке выполняется первым.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

// NewClient создает http.Client поверх цепочки обработчиков.
func NewClient(base http.RoundTripper, timeout time.Duration, mws ...Middleware) *http.Client {
	return &http.Client{
		Transport: Chain(base, mws...),
		Timeout:   timeout,
	}
}

// IsChatPost сообщает, относится ли запрос к изменяющим вызовам чата.
func IsChatPost(method, path string) bool {
	if method != http.MethodPost {
		return false
	}
	return path == ChatPath || strings.HasPrefix(path, ChatPath+"/")
}

// RequestID проставляет заголовок X-Request-Id, если вызывающий его не задал.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("X-Request-Id") != "" {
				return next.RoundTrip(req)
			}
			req = req.Clone(req.Context())
			req.Header.Set("X-Request-Id", uuid.NewString())
			return next.RoundTrip(req)
		})
	}
}

// Logging пишет в debug-лог метод, путь, статус и длительность каждого запроса.
func Logging(logger *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"duration", time.Since(start),
			}
			if err != nil {
				logger.Debug("HTTP-запрос завершился ошибкой", append(attrs, "error", err)...)
				return nil, err
			}
			logger.Debug("HTTP-запрос выполнен", append(attrs, "status", resp.StatusCode)...)
			return resp, nil
		})
	}
}
