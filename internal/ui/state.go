// Package ui содержит контроллеры представлений: чат и модальные окна.
// Состояние хранится в явных объектах, а View получает только его проекцию.
package ui

import (
	"errors"
	"sync"

	"newspaper-miniapp/internal/domain"
)

// ModalID — идентификатор модального окна.
type ModalID string

const (
	ModalNews     ModalID = "news"
	ModalCalendar ModalID = "calendar"
	ModalFeedback ModalID = "feedback"
)

// ErrUnknownModal возвращается при попытке открыть неизвестное окно.
var ErrUnknownModal = errors.New("неизвестное модальное окно")

// Valid сообщает, известно ли окно.
func (id ModalID) Valid() bool {
	switch id {
	case ModalNews, ModalCalendar, ModalFeedback:
		return true
	}
	return false
}

// ModalState — автомат closed → open(id) → closed. Открыто не больше одного окна.
type ModalState struct {
	current ModalID
}

// IsOpen сообщает, открыто ли какое-либо окно.
func (s ModalState) IsOpen() bool { return s.current != "" }

// Current возвращает открытое окно.
func (s ModalState) Current() (ModalID, bool) { return s.current, s.current != "" }

// Open переводит автомат в open(id) и возвращает окно, которое нужно закрыть перед этим.
func (s *ModalState) Open(id ModalID) (ModalID, error) {
	if !id.Valid() {
		return "", ErrUnknownModal
	}
	prev := s.current
	s.current = id
	if prev == id {
		return "", nil
	}
	return prev, nil
}

// Close закрывает открытое окно и возвращает его.
func (s *ModalState) Close() (ModalID, bool) {
	prev := s.current
	s.current = ""
	return prev, prev != ""
}

// ChatState хранит флаги виджета чата.
type ChatState struct {
	Busy         bool
	Typing       bool
	InlineTyping bool
	KeyboardOpen bool
	Image        *domain.Attachment
}

// BeginSend занимает виджет под отправку. Возвращает false, если отправка уже идет.
func (s *ChatState) BeginSend() bool {
	if s.Busy {
		return false
	}
	s.Busy = true
	return true
}

// EndSend освобождает виджет.
func (s *ChatState) EndSend() {
	s.Busy = false
}

// ChatSession хранит локальную копию переписки текущего пользователя.
type ChatSession struct {
	mutex    sync.RWMutex
	identity domain.UserIdentity
	entries  []domain.ChatEntry
}

// NewChatSession создает пустую сессию.
func NewChatSession() *ChatSession {
	return &ChatSession{}
}

// Identity возвращает пользователя, которому принадлежит сессия.
func (s *ChatSession) Identity() domain.UserIdentity {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.identity
}

// Bind привязывает сессию к пользователю. При смене пользователя записи удаляются.
// Возвращает true, если пользователь сменился.
func (s *ChatSession) Bind(id domain.UserIdentity) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.identity == id {
		return false
	}
	s.identity = id
	s.entries = nil
	return true
}

// Append добавляет записи в конец.
func (s *ChatSession) Append(entries ...domain.ChatEntry) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.entries = append(s.entries, entries...)
}

// Replace заменяет все записи.
func (s *ChatSession) Replace(entries []domain.ChatEntry) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.entries = append([]domain.ChatEntry(nil), entries...)
}

// RemoveTransient удаляет служебные записи.
func (s *ChatSession) RemoveTransient() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if !e.Transient {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

// Clear удаляет все записи.
func (s *ChatSession) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.entries = nil
}

// Entries возвращает копию записей.
func (s *ChatSession) Entries() []domain.ChatEntry {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]domain.ChatEntry(nil), s.entries...)
}

// Len возвращает количество записей.
func (s *ChatSession) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.entries)
}
