// Package env описывает среду выполнения мини-приложения: хост Telegram Mini App
// или обычный браузер (в терминальном клиенте — терминал).
package env

import (
	"context"
	"log/slog"

	"newspaper-miniapp/internal/domain"
	"newspaper-miniapp/internal/ports"
)

// Dialog — стандартные диалоги, которые используются вне хоста.
type Dialog interface {
	Alert(ctx context.Context, message string) error
	Confirm(ctx context.Context, message string) (bool, error)
}

// Detect выбирает вариант среды один раз при запуске. Хост считается
// доступным, если есть init data или мост событий.
func Detect(initData func() string, bridge Bridge, dialog Dialog, logger *slog.Logger) ports.Environment {
	if bridge != nil || (initData != nil && initData() != "") {
		logger.Info("Запуск внутри хоста Mini App")
		return NewHost(initData, bridge, dialog, logger)
	}
	logger.Info("Запуск вне хоста Mini App")
	return NewStandalone(dialog)
}

// Standalone — среда без хоста: тактильный отклик недоступен, диалоги стандартные.
type Standalone struct {
	dialog Dialog
}

var _ ports.Environment = (*Standalone)(nil)

func NewStandalone(dialog Dialog) *Standalone {
	return &Standalone{dialog: dialog}
}

func (s *Standalone) IsHost() bool { return false }

func (s *Standalone) Haptic(ports.Haptic) {}

func (s *Standalone) User() *domain.TelegramUser { return nil }

func (s *Standalone) Alert(ctx context.Context, message string) error {
	return s.dialog.Alert(ctx, message)
}

func (s *Standalone) Confirm(ctx context.Context, message string) (bool, error) {
	return s.dialog.Confirm(ctx, message)
}
