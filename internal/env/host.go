package env

import (
	"context"
	"log/slog"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	"newspaper-miniapp/internal/domain"
	"newspaper-miniapp/internal/ports"
)

// Host представляет среду внутри Telegram Mini App.
type Host struct {
	initData func() string
	bridge   Bridge
	dialog   Dialog
	logger   *slog.Logger
}

var _ ports.Environment = (*Host)(nil)

// NewHost создает среду хоста. initData вызывается при каждом запросе пользователя,
// поскольку хост может передать данные уже после запуска. bridge может быть nil.
func NewHost(initData func() string, bridge Bridge, dialog Dialog, logger *slog.Logger) *Host {
	if initData == nil {
		initData = func() string { return "" }
	}
	return &Host{
		initData: initData,
		bridge:   bridge,
		dialog:   dialog,
		logger:   logger,
	}
}

func (h *Host) IsHost() bool { return true }

// User разбирает init data и возвращает пользователя, если он есть.
func (h *Host) User() *domain.TelegramUser {
	raw := h.initData()
	if raw == "" {
		return nil
	}

	data, err := initdata.Parse(raw)
	if err != nil {
		h.logger.Warn("Не удалось разобрать init data", "error", err)
		return nil
	}
	if data.User.ID == 0 {
		return nil
	}

	return &domain.TelegramUser{
		ID:           int64(data.User.ID),
		FirstName:    data.User.FirstName,
		LastName:     data.User.LastName,
		Username:     data.User.Username,
		LanguageCode: data.User.LanguageCode,
		IsPremium:    data.User.IsPremium,
	}
}

// Haptic отправляет хосту событие тактильного отклика.
func (h *Host) Haptic(kind ports.Haptic) {
	if h.bridge == nil {
		return
	}
	if err := h.bridge.PostEvent(EventHapticFeedback, hapticParams(kind)); err != nil {
		h.logger.Debug("Не удалось отправить тактильный отклик", "kind", kind, "error", err)
	}
}

// Alert показывает попап хоста или, если хост не умеет, стандартный диалог.
func (h *Host) Alert(ctx context.Context, message string) error {
	if h.bridge == nil || !h.bridge.SupportsPopups() {
		return h.dialog.Alert(ctx, message)
	}
	_, err := h.bridge.OpenPopup(ctx, PopupParams{
		Message: message,
		Buttons: []PopupButton{{ID: "ok", Type: "ok"}},
	})
	return err
}

// Confirm спрашивает подтверждение через попап хоста или стандартный диалог.
func (h *Host) Confirm(ctx context.Context, message string) (bool, error) {
	if h.bridge == nil || !h.bridge.SupportsPopups() {
		return h.dialog.Confirm(ctx, message)
	}
	id, err := h.bridge.OpenPopup(ctx, PopupParams{
		Message: message,
		Buttons: []PopupButton{{ID: "ok", Type: "ok"}, {ID: "cancel", Type: "cancel"}},
	})
	if err != nil {
		return false, err
	}
	return id == "ok", nil
}

func hapticParams(kind ports.Haptic) map[string]string {
	if kind.IsNotification() {
		return map[string]string{"type": "notification", "notification_type": string(kind)}
	}
	return map[string]string{"type": "impact", "impact_style": string(kind)}
}
