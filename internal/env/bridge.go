package env

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// События моста Telegram Web App
const (
	EventHapticFeedback = "web_app_trigger_haptic_feedback"
	EventOpenPopup      = "web_app_open_popup"
	EventPopupClosed    = "popup_closed"
)

// ErrPopupsUnsupported возвращается мостом, который не получает ответов хоста.
var ErrPopupsUnsupported = errors.New("мост не поддерживает попапы")

// PopupButton описывает кнопку попапа хоста.
type PopupButton struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// PopupParams содержит параметры web_app_open_popup.
type PopupParams struct {
	Title   string        `json:"title,omitempty"`
	Message string        `json:"message"`
	Buttons []PopupButton `json:"buttons"`
}

// Bridge — канал событий к нативной части хоста.
type Bridge interface {
	PostEvent(eventType string, data any) error
	SupportsPopups() bool
	// OpenPopup показывает попап и ждет идентификатор нажатой кнопки.
	OpenPopup(ctx context.Context, params PopupParams) (string, error)
}

// message: {eventType, eventData}
type message struct {
	EventType string          `json:"eventType"`
	EventData json.RawMessage `json:"eventData,omitempty"`
}

// StreamBridge обменивается с хостом JSON-строками: события пишутся в w,
// ответы хоста читаются из r. Без r попапы недоступны.
type StreamBridge struct {
	mutex  sync.Mutex
	w      io.Writer
	events *bufio.Scanner
}

var _ Bridge = (*StreamBridge)(nil)

// NewStreamBridge создает мост. r может быть nil.
func NewStreamBridge(w io.Writer, r io.Reader) *StreamBridge {
	b := &StreamBridge{w: w}
	if r != nil {
		b.events = bufio.NewScanner(r)
	}
	return b
}

func (b *StreamBridge) PostEvent(eventType string, data any) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.post(eventType, data)
}

func (b *StreamBridge) SupportsPopups() bool { return b.events != nil }

func (b *StreamBridge) OpenPopup(ctx context.Context, params PopupParams) (string, error) {
	if b.events == nil {
		return "", ErrPopupsUnsupported
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if err := b.post(EventOpenPopup, params); err != nil {
		return "", err
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !b.events.Scan() {
			if err := b.events.Err(); err != nil {
				return "", fmt.Errorf("не удалось прочитать ответ хоста: %w", err)
			}
			return "", io.ErrUnexpectedEOF
		}

		var msg message
		if err := json.Unmarshal(b.events.Bytes(), &msg); err != nil || msg.EventType != EventPopupClosed {
			// Прочие события хоста попапу не адресованы
			continue
		}

		var closed struct {
			ButtonID string `json:"button_id"`
		}
		if len(msg.EventData) > 0 {
			if err := json.Unmarshal(msg.EventData, &closed); err != nil {
				return "", fmt.Errorf("некорректное событие %s: %w", EventPopupClosed, err)
			}
		}
		return closed.ButtonID, nil
	}
}

func (b *StreamBridge) post(eventType string, data any) error {
	msg := message{EventType: eventType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("не удалось сериализовать событие %s: %w", eventType, err)
		}
		msg.EventData = raw
	}

	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать событие %s: %w", eventType, err)
	}
	if _, err := b.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("не удалось отправить событие %s: %w", eventType, err)
	}
	return nil
}
