package ui

import (
	"context"
	"errors"
	"net"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"newspaper-miniapp/internal/api"
	"newspaper-miniapp/internal/imageproc"
)

// Понятные пользователю сообщения
const (
	MsgNetwork      = "Не удалось связаться с сервером. Проверьте подключение к интернету и попробуйте ещё раз."
	MsgTimeout      = "Сервер слишком долго не отвечает. Попробуйте ещё раз."
	MsgServer       = "Произошла ошибка при обработке запроса. Попробуйте позже."
	MsgUnsupported  = "Поддерживаются только изображения (JPEG, PNG, WebP, GIF, BMP, HEIC)."
	MsgTooLarge     = "Файл слишком большой. Максимальный размер — 50 МБ."
	MsgEmptyFile    = "Файл пуст."
	MsgBotFailed    = "Не удалось получить ответ, попробуйте позже."
	MsgClearConfirm = "Очистить историю чата?"
	MsgCleared      = "История чата очищена."
)

// FriendlyError переводит ошибку в сообщение для пользователя.
func FriendlyError(err error) string {
	if msg, ok := api.ServerMessage(err); ok {
		return msg
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return firstValidationMessage(verrs)
	}

	var netErr net.Error
	switch {
	case errors.Is(err, imageproc.ErrUnsupportedType):
		return MsgUnsupported
	case errors.Is(err, imageproc.ErrTooLarge):
		return MsgTooLarge
	case errors.Is(err, imageproc.ErrEmpty):
		return MsgEmptyFile
	case errors.Is(err, context.DeadlineExceeded):
		return MsgTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return MsgTimeout
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return MsgServer
	}
	return MsgNetwork
}

// firstValidationMessage возвращает первое по имени поля сообщение проверки
func firstValidationMessage(verrs validation.Errors) string {
	fields := make([]string, 0, len(verrs))
	for field := range verrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if verrs[field] != nil {
			return verrs[field].Error()
		}
	}
	return verrs.Error()
}
