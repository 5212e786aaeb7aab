package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"newspaper-miniapp/internal/ports"
)

// ErrNotOpened возвращается, если Send вызван до Open.
var ErrNotOpened = errors.New("запрос не открыт: вызовите Open перед Send")

// RawRequest — низкоуровневый запрос в стиле XHR: Open фиксирует цель,
// Send отправляет тело. Обходит цепочку обработчиков клиента, поэтому
// идентификатор добавляется здесь же, в момент отправки формы.
type RawRequest struct {
	transport http.RoundTripper
	resolver  ports.IdentityResolver
	logger    *slog.Logger

	method string
	target *url.URL
	header http.Header
}

// NewRawRequest создает запрос поверх базового транспорта.
func NewRawRequest(base http.RoundTripper, resolver ports.IdentityResolver, logger *slog.Logger) *RawRequest {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RawRequest{
		transport: base,
		resolver:  resolver,
		logger:    logger,
		header:    make(http.Header),
	}
}

// Open запоминает метод и адрес запроса.
func (r *RawRequest) Open(method, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("недопустимый адрес %q: %w", rawURL, err)
	}
	r.method = strings.ToUpper(method)
	r.target = u
	return nil
}

// SetHeader задает заголовок запроса.
func (r *RawRequest) SetHeader(key, value string) {
	r.header.Set(key, value)
}

// Send отправляет запрос. body может быть *Form, []byte, string или nil.
// Для формы, отправляемой в чат, поле user_id добавляется, только если его нет
// или оно пустое.
func (r *RawRequest) Send(ctx context.Context, body any) (*http.Response, error) {
	if r.target == nil {
		return nil, ErrNotOpened
	}

	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case *Form:
		if IsChatPost(r.method, r.target.Path) && !hasIdentity(b) {
			b.Set(IdentityField, r.resolver.Resolve().String())
			r.logger.Debug("Идентификатор добавлен в форму низкоуровневого запроса", "path", r.target.Path)
		}
		encoded, ct, err := b.Encode()
		if err != nil {
			return nil, err
		}
		reader, contentType = bytes.NewReader(encoded), ct
	case []byte:
		reader = bytes.NewReader(b)
	case string:
		reader = strings.NewReader(b)
	default:
		return nil, fmt.Errorf("неподдерживаемый тип тела запроса: %T", body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = r.header.Clone()
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := r.transport.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

func hasIdentity(f *Form) bool {
	for _, v := range f.Values(IdentityField) {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
