package app

import (
	"errors"
	"fmt"
	"strings"

	"newspaper-miniapp/internal/api"
	"newspaper-miniapp/internal/domain"
)

var errFeedbackFormat = errors.New("формат: /send name=Имя; phone=+7...; message=Текст")

func apiChatRequest(text string) api.ChatRequest {
	return api.ChatRequest{Message: text}
}

// parseFeedback разбирает строку вида "name=Иван; message=Спасибо".
func parseFeedback(arg string) (domain.Feedback, error) {
	var f domain.Feedback
	if strings.TrimSpace(arg) == "" {
		return f, errFeedbackFormat
	}
	for _, pair := range strings.Split(arg, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return f, errFeedbackFormat
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "name":
			f.Name = value
		case "department":
			f.Department = value
		case "phone":
			f.Phone = value
		case "category":
			f.Category = value
		case "message":
			f.Message = value
		default:
			return f, fmt.Errorf("неизвестное поле %q", key)
		}
	}
	return f, nil
}

// applySettings применяет к настройкам пары "имя=on|off".
func applySettings(s domain.Settings, arg string) (domain.Settings, error) {
	for _, pair := range strings.Fields(arg) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return s, fmt.Errorf("ожидается имя=on|off, получено %q", pair)
		}
		var on bool
		switch strings.ToLower(value) {
		case "on", "true", "1", "да":
			on = true
		case "off", "false", "0", "нет":
		default:
			return s, fmt.Errorf("недопустимое значение %q для %s", value, key)
		}
		switch key {
		case "google_search", "use_google_search":
			s.UseGoogleSearch = on
		case "url_context", "use_url_context":
			s.UseURLContext = on
		case "persona", "use_persona":
			s.UsePersona = on
		case "stream", "stream_response":
			s.StreamResponse = on
		default:
			return s, fmt.Errorf("неизвестная настройка %q", key)
		}
	}
	return s, nil
}

func onOff(v bool) string {
	if v {
		return "вкл"
	}
	return "выкл"
}
