package log

import (
	"context"
	"log/slog"
	"regexp"
)

// MaskingHandler - обертка для slog.Handler, которая скрывает секреты в логах:
// токены ботов и подписи init data Mini App.
type MaskingHandler struct {
	handler slog.Handler
}

// NewMaskingHandler создает новый обработчик с маскировкой секретов
func NewMaskingHandler(handler slog.Handler) *MaskingHandler {
	return &MaskingHandler{
		handler: handler,
	}
}

var (
	// токены в формате botID:token, где ID - числа, token - буквенно-цифровой
	botTokenRegex = regexp.MustCompile(`(\bbot\d+:[A-Za-z0-9_-]{35,})`)
	// подписи init data: hash=<hex> и signature=<base64url>
	initDataSignRegex = regexp.MustCompile(`\b(hash|signature)=([A-Za-z0-9_%\-]+)`)
)

// maskSecrets заменяет найденные секреты на маску
func maskSecrets(text string) string {
	text = botTokenRegex.ReplaceAllString(text, "bot***:***masked-token***")
	return initDataSignRegex.ReplaceAllString(text, "$1=***")
}

// Enabled реализует интерфейс slog.Handler
func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle реализует интерфейс slog.Handler
func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	// Clone обнуляет атрибуты в копии, поэтому добавляем их заново в маскированном виде.
	r := record.Clone()
	r.Message = maskSecrets(r.Message)

	r = slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	record.Attrs(func(a slog.Attr) bool {
		r.AddAttrs(slog.Attr{
			Key:   a.Key,
			Value: maskAttributeValue(a.Value),
		})
		return true
	})

	return h.handler.Handle(ctx, r)
}

// WithAttrs реализует интерфейс slog.Handler
func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		maskedAttrs[i] = slog.Attr{
			Key:   attr.Key,
			Value: maskAttributeValue(attr.Value),
		}
	}
	return &MaskingHandler{
		handler: h.handler.WithAttrs(maskedAttrs),
	}
}

// WithGroup реализует интерфейс slog.Handler
func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{
		handler: h.handler.WithGroup(name),
	}
}

// maskAttributeValue рекурсивно маскирует значения атрибутов
func maskAttributeValue(value slog.Value) slog.Value {
	switch value.Kind() {
	case slog.KindString:
		return slog.StringValue(maskSecrets(value.String()))
	case slog.KindAny:
		// Ошибки часто содержат URL запроса целиком
		if err, ok := value.Any().(error); ok {
			return slog.StringValue(maskSecrets(err.Error()))
		}
		return value
	case slog.KindGroup:
		group := value.Group()
		maskedGroup := make([]slog.Attr, len(group))
		for i, attr := range group {
			maskedGroup[i] = slog.Attr{
				Key:   attr.Key,
				Value: maskAttributeValue(attr.Value),
			}
		}
		return slog.GroupValue(maskedGroup...)
	default:
		return value
	}
}

// NewMaskedLogger создает новый экземпляр slog.Logger с маскировкой секретов
func NewMaskedLogger(handler slog.Handler) *slog.Logger {
	return slog.New(NewMaskingHandler(handler))
}

// ParseLevel переводит строковый уровень из конфигурации в slog.Level
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
