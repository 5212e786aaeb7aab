package api

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"newspaper-miniapp/internal/domain"
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9\s\-()]{5,20}$`)

// NormalizeFeedback обрезает пробелы и подставляет категорию по умолчанию.
func NormalizeFeedback(f domain.Feedback) domain.Feedback {
	f.Name = strings.TrimSpace(f.Name)
	f.Department = strings.TrimSpace(f.Department)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Message = strings.TrimSpace(f.Message)
	f.Category = strings.TrimSpace(f.Category)
	if f.Category == "" {
		f.Category = domain.DefaultFeedbackCategory
	}
	return f
}

// ValidateFeedback проверяет обращение так же, как это делает сервер:
// сообщение обязательно, нужен хотя бы один способ связи.
func ValidateFeedback(f domain.Feedback) error {
	noContacts := f.Name == "" && f.Department == "" && f.Phone == ""
	return validation.ValidateStruct(&f,
		validation.Field(&f.Message,
			validation.Required.Error("Сообщение обязательно для заполнения"),
			validation.RuneLength(0, 5000).Error("Сообщение слишком длинное"),
		),
		validation.Field(&f.Name,
			validation.Required.When(noContacts).Error("Укажите имя или контактную информацию"),
			validation.RuneLength(0, 200),
		),
		validation.Field(&f.Phone,
			validation.Match(phoneRegex).Error("Неверный формат телефона"),
		),
	)
}
