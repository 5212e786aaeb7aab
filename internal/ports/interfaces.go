package ports

import (
	"context"

	"newspaper-miniapp/internal/domain"
)

// KeyValueStore определяет долговременное локальное хранилище клиента.
type KeyValueStore interface {
	// Get возвращает значение и признак его наличия.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// UserSource сообщает аутентифицированного пользователя хоста Mini App.
// Возвращает nil, если пользователь неизвестен.
type UserSource interface {
	User() *domain.TelegramUser
}

// IdentityResolver определяет канонический идентификатор текущей сессии.
type IdentityResolver interface {
	Resolve() domain.UserIdentity
	// HeaderIdentity возвращает числовой ID пользователя Telegram, если он есть.
	HeaderIdentity() (string, bool)
}

// Haptic — вид тактильного отклика.
type Haptic string

const (
	HapticLight   Haptic = "light"
	HapticMedium  Haptic = "medium"
	HapticHeavy   Haptic = "heavy"
	HapticSuccess Haptic = "success"
	HapticWarning Haptic = "warning"
	HapticError   Haptic = "error"
)

// IsNotification сообщает, относится ли отклик к уведомлениям (а не к ударам).
func (h Haptic) IsNotification() bool {
	return h == HapticSuccess || h == HapticWarning || h == HapticError
}

// Environment описывает возможности среды выполнения: хост Mini App или обычный браузер.
type Environment interface {
	UserSource
	IsHost() bool
	Haptic(kind Haptic)
	Alert(ctx context.Context, message string) error
	Confirm(ctx context.Context, message string) (bool, error)
}
