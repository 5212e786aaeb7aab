package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"newspaper-miniapp/internal/ports"
)

// IdentityField — поле формы или JSON, в котором передается идентификатор.
const IdentityField = "user_id"

// IdentityInjector добавляет идентификатор пользователя в POST-запросы к чату,
// если вызывающий его не указал. Идентификатор добавляется не более одного раза.
func IdentityInjector(resolver ports.IdentityResolver, logger *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Body == nil || req.Body == http.NoBody || !IsChatPost(req.Method, req.URL.Path) {
				return next.RoundTrip(req)
			}

			mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
			if err != nil {
				return next.RoundTrip(req)
			}

			var inject func([]byte, string) ([]byte, bool, error)
			switch {
			case mediaType == "multipart/form-data":
				boundary := params["boundary"]
				inject = func(body []byte, id string) ([]byte, bool, error) {
					return InjectMultipart(body, boundary, id)
				}
			case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
				inject = InjectJSON
			default:
				return next.RoundTrip(req)
			}

			body, err := io.ReadAll(req.Body)
			req.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("не удалось прочитать тело запроса: %w", err)
			}

			updated, changed, err := inject(body, resolver.Resolve().String())
			if err != nil {
				// Тело уходит без изменений, запрос не прерывается
				logger.Warn("Не удалось добавить идентификатор в тело запроса",
					"path", req.URL.Path, "content_type", mediaType, "error", err)
			}
			if !changed {
				updated = body
			}

			req = req.Clone(req.Context())
			setBody(req, updated)
			return next.RoundTrip(req)
		})
	}
}

// InjectJSON устанавливает поле user_id в JSON-объекте, если его нет.
// Возвращает признак изменения. При ошибке разбора тело возвращается без изменений.
func InjectJSON(body []byte, id string) ([]byte, bool, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return body, false, fmt.Errorf("тело не является JSON-объектом: %w", err)
	}
	if payload == nil {
		return body, false, fmt.Errorf("тело не является JSON-объектом: null")
	}

	if hasValue(payload[IdentityField]) {
		return body, false, nil
	}

	payload[IdentityField] = id
	out, err := json.Marshal(payload)
	if err != nil {
		return body, false, fmt.Errorf("не удалось сериализовать JSON: %w", err)
	}
	return out, true, nil
}

// InjectMultipart добавляет часть user_id в multipart-тело, если такой части нет
// или она пустая. Пустые части user_id удаляются.
// Граница и порядок существующих частей сохраняются.
func InjectMultipart(body []byte, boundary, id string) ([]byte, bool, error) {
	if boundary == "" {
		return body, false, fmt.Errorf("в Content-Type не указана граница multipart")
	}

	var out bytes.Buffer
	w := multipart.NewWriter(&out)
	if err := w.SetBoundary(boundary); err != nil {
		return body, false, fmt.Errorf("недопустимая граница multipart: %w", err)
	}

	var present, dropped bool
	r := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := r.NextRawPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return body, false, fmt.Errorf("не удалось разобрать multipart: %w", err)
		}

		data, err := io.ReadAll(part)
		if err != nil {
			return body, false, fmt.Errorf("не удалось прочитать часть %q: %w", part.FormName(), err)
		}
		if part.FormName() == IdentityField {
			// Пустое значение равносильно отсутствию поля
			if strings.TrimSpace(string(data)) == "" {
				dropped = true
				continue
			}
			present = true
		}

		pw, err := w.CreatePart(part.Header)
		if err != nil {
			return body, false, fmt.Errorf("не удалось скопировать часть %q: %w", part.FormName(), err)
		}
		if _, err := pw.Write(data); err != nil {
			return body, false, fmt.Errorf("не удалось скопировать часть %q: %w", part.FormName(), err)
		}
	}

	if present && !dropped {
		return body, false, nil
	}
	if !present {
		if err := w.WriteField(IdentityField, id); err != nil {
			return body, false, fmt.Errorf("не удалось добавить %s: %w", IdentityField, err)
		}
	}
	if err := w.Close(); err != nil {
		return body, false, fmt.Errorf("не удалось завершить multipart: %w", err)
	}
	return out.Bytes(), true, nil
}

func hasValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	default:
		return true
	}
}

func setBody(req *http.Request, body []byte) {
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
}
