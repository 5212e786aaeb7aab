package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"newspaper-miniapp/internal/api"
	"newspaper-miniapp/internal/domain"
	"newspaper-miniapp/internal/env"
	"newspaper-miniapp/internal/imageproc"
	"newspaper-miniapp/internal/ports"
)

var (
	// ErrBusy — отправка уже идет, повторный запрос отброшен.
	ErrBusy = errors.New("отправка уже выполняется")
	// ErrEmptyMessage — нечего отправлять.
	ErrEmptyMessage = errors.New("введите сообщение или прикрепите изображение")
)

// ChatAPI описывает операции API, которые нужны виджету чата.
type ChatAPI interface {
	SendChat(ctx context.Context, in api.ChatRequest) (*api.ChatResponse, error)
	History(ctx context.Context, limit int) (*api.HistoryResponse, error)
	ClearHistory(ctx context.Context) (*api.ClearResponse, error)
}

// ChatConfig содержит параметры виджета.
type ChatConfig struct {
	HistoryLimit  int
	TypingPhrases []string
}

// ChatManager управляет виджетом чата.
type ChatManager struct {
	api      ChatAPI
	resolver ports.IdentityResolver
	env      ports.Environment
	view     ChatView
	logger   *slog.Logger
	cfg      ChatConfig
	pick     func(n int) int
	now      func() time.Time

	session *ChatSession
	mutex   sync.Mutex
	state   ChatState
}

// NewChatManager создает контроллер чата.
func NewChatManager(chatAPI ChatAPI, resolver ports.IdentityResolver, environment ports.Environment, view ChatView, cfg ChatConfig, logger *slog.Logger) *ChatManager {
	if len(cfg.TypingPhrases) == 0 {
		cfg.TypingPhrases = []string{"Печатает..."}
	}
	return &ChatManager{
		api:      chatAPI,
		resolver: resolver,
		env:      environment,
		view:     view,
		logger:   logger,
		cfg:      cfg,
		pick:     rand.IntN,
		now:      time.Now,
		session:  NewChatSession(),
	}
}

// Session возвращает сессию чата.
func (m *ChatManager) Session() *ChatSession { return m.session }

// State возвращает копию состояния виджета.
func (m *ChatManager) State() ChatState {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state
}

// Open вызывается при открытии чата: уточняет пользователя и загружает историю.
func (m *ChatManager) Open(ctx context.Context) error {
	m.view.PinInputBar()
	return m.LoadHistory(ctx)
}

// SyncIdentity перечитывает идентификатор. При смене пользователя локальная переписка очищается.
func (m *ChatManager) SyncIdentity() domain.UserIdentity {
	id := m.resolver.Resolve()
	prev := m.session.Identity()
	if m.session.Bind(id) {
		if !prev.IsEmpty() {
			m.logger.Info("Пользователь сменился, локальная переписка очищена", "from", prev, "to", id)
		}
		m.view.RenderEntries(nil)
	}
	return id
}

// LoadHistory загружает историю с сервера. Запросы не упорядочиваются:
// при нескольких одновременных загрузках побеждает ответ, пришедший последним.
func (m *ChatManager) LoadHistory(ctx context.Context) error {
	m.SyncIdentity()

	resp, err := m.api.History(ctx, m.cfg.HistoryLimit)
	if err != nil {
		m.logger.Warn("Не удалось загрузить историю чата", "error", err)
		return fmt.Errorf("загрузка истории: %w", err)
	}
	if !resp.Success {
		m.logger.Warn("Сервер не вернул историю", "error", resp.Error)
		return nil
	}

	entries := make([]domain.ChatEntry, 0, len(resp.History)*2)
	for _, rec := range resp.History {
		entries = append(entries, rec.Entries()...)
	}
	m.session.Replace(entries)
	m.view.RenderEntries(m.session.Entries())
	m.logger.Debug("История чата загружена", "records", len(resp.History))
	return nil
}

// AttachImage проверяет и прикрепляет изображение к следующему сообщению.
func (m *ChatManager) AttachImage(ctx context.Context, image *domain.Attachment) error {
	if err := imageproc.Validate(image); err != nil {
		m.env.Haptic(ports.HapticError)
		if alertErr := m.env.Alert(ctx, FriendlyError(err)); alertErr != nil {
			m.logger.Warn("Не удалось показать сообщение", "error", alertErr)
		}
		return err
	}

	m.mutex.Lock()
	m.state.Image = image
	m.mutex.Unlock()

	m.env.Haptic(ports.HapticLight)
	m.view.ShowImagePreview(image)
	return nil
}

// RemoveImage открепляет изображение.
func (m *ChatManager) RemoveImage() {
	m.mutex.Lock()
	m.state.Image = nil
	m.mutex.Unlock()

	m.view.ClearImagePreview()
}

// Send отправляет сообщение. Пока ответ не получен, повторные вызовы отбрасываются с ErrBusy.
func (m *ChatManager) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	m.mutex.Lock()
	image := m.state.Image
	if text == "" && image == nil {
		m.mutex.Unlock()
		return ErrEmptyMessage
	}
	if !m.state.BeginSend() {
		m.mutex.Unlock()
		m.logger.Debug("Отправка отброшена: предыдущая еще не завершена")
		return ErrBusy
	}
	m.state.Image = nil
	m.mutex.Unlock()

	m.view.SetControlsEnabled(false)
	defer func() {
		m.hideTyping()
		m.mutex.Lock()
		m.state.EndSend()
		m.mutex.Unlock()
		m.view.SetControlsEnabled(true)
	}()

	id := m.SyncIdentity()

	userEntry := domain.ChatEntry{Role: domain.RoleUser, Content: text, Image: image, At: m.now()}
	m.session.Append(userEntry)
	m.view.AppendEntry(userEntry)
	if image != nil {
		m.view.ClearImagePreview()
	}
	m.env.Haptic(ports.HapticLight)

	m.showTyping()
	resp, err := m.api.SendChat(ctx, api.ChatRequest{Message: text, Image: image, UserID: id})
	m.hideTyping()

	if err != nil {
		m.logger.Error("Не удалось отправить сообщение", "user_id", id, "error", err)
		m.env.Haptic(ports.HapticError)
		m.appendBot(FriendlyError(err))
		return fmt.Errorf("отправка сообщения: %w", err)
	}

	if !resp.Success {
		m.logger.Warn("Сервер отклонил сообщение", "user_id", id, "error", resp.Error)
		m.env.Haptic(ports.HapticWarning)
		msg := resp.Error
		if msg == "" {
			msg = MsgBotFailed
		}
		m.appendBot(msg)
		return nil
	}

	m.env.Haptic(ports.HapticSuccess)
	m.appendBot(resp.Response)
	return nil
}

// Clear очищает историю после подтверждения пользователя.
func (m *ChatManager) Clear(ctx context.Context) error {
	ok, err := m.env.Confirm(ctx, MsgClearConfirm)
	if err != nil {
		return fmt.Errorf("подтверждение очистки: %w", err)
	}
	if !ok {
		return nil
	}

	m.SyncIdentity()
	resp, err := m.api.ClearHistory(ctx)
	if err != nil {
		m.env.Haptic(ports.HapticError)
		m.alert(ctx, FriendlyError(err))
		return fmt.Errorf("очистка истории: %w", err)
	}
	if !resp.Success {
		m.env.Haptic(ports.HapticWarning)
		msg := resp.Error
		if msg == "" {
			msg = MsgServer
		}
		m.alert(ctx, msg)
		return nil
	}

	m.session.Clear()
	m.view.RenderEntries(nil)
	m.env.Haptic(ports.HapticSuccess)
	m.logger.Info("История чата очищена", "user_id", m.session.Identity())
	return nil
}

// OnKeyboard применяет новое состояние клавиатуры к раскладке.
func (m *ChatManager) OnKeyboard(state env.KeyboardState) {
	open := state == env.KeyboardOpen

	m.mutex.Lock()
	m.state.KeyboardOpen = open
	m.mutex.Unlock()

	m.view.SetKeyboardLayout(open)
	m.view.PinInputBar()
}

func (m *ChatManager) appendBot(text string) {
	entry := domain.ChatEntry{Role: domain.RoleBot, Content: text, At: m.now()}
	m.session.Append(entry)
	m.view.AppendEntry(entry)
}

func (m *ChatManager) alert(ctx context.Context, msg string) {
	if err := m.env.Alert(ctx, msg); err != nil {
		m.logger.Warn("Не удалось показать сообщение", "error", err)
	}
}

func (m *ChatManager) showTyping() {
	text := m.cfg.TypingPhrases[m.pick(len(m.cfg.TypingPhrases))]

	visible := m.view.ShowTypingIndicator(text)

	m.mutex.Lock()
	m.state.Typing = true
	m.state.InlineTyping = !visible
	m.mutex.Unlock()

	if !visible {
		entry := domain.ChatEntry{Role: domain.RoleBot, Content: text, At: m.now(), Transient: true}
		m.session.Append(entry)
		m.view.AppendEntry(entry)
	}
}

func (m *ChatManager) hideTyping() {
	m.mutex.Lock()
	typing, inline := m.state.Typing, m.state.InlineTyping
	m.state.Typing, m.state.InlineTyping = false, false
	m.mutex.Unlock()

	if !typing {
		return
	}
	if inline {
		m.session.RemoveTransient()
		m.view.RenderEntries(m.session.Entries())
		return
	}
	m.view.HideTypingIndicator()
}
