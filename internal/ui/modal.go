package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"newspaper-miniapp/internal/api"
	"newspaper-miniapp/internal/cache"
	"newspaper-miniapp/internal/domain"
	"newspaper-miniapp/internal/ports"
)

// ContentSource описывает операции API, которые нужны модальным окнам.
type ContentSource interface {
	Newspaper(ctx context.Context, q api.NewsQuery) (*api.NewsResponse, error)
	Events(ctx context.Context, q api.EventsQuery) (*api.EventsResponse, error)
	SubmitFeedback(ctx context.Context, f domain.Feedback) (*api.FeedbackResponse, error)
}

// ModalConfig содержит параметры загрузки содержимого.
type ModalConfig struct {
	CacheTTL time.Duration
	News     api.NewsQuery
	Events   api.EventsQuery
}

// ModalManager управляет модальными окнами. Открыто не больше одного окна,
// переключения выполняются по очереди: сначала закрытие, затем открытие.
type ModalManager struct {
	source ContentSource
	env    ports.Environment
	view   ModalView
	cache  *cache.Store[ModalContent]
	cfg    ModalConfig
	logger *slog.Logger

	mutex sync.Mutex
	state ModalState
	// generation меняется при каждом переходе автомата
	generation uint64
}

// NewModalManager создает контроллер модальных окон.
func NewModalManager(source ContentSource, environment ports.Environment, view ModalView, store *cache.Store[ModalContent], cfg ModalConfig, logger *slog.Logger) *ModalManager {
	if store == nil {
		store = cache.NewStore[ModalContent]()
	}
	return &ModalManager{
		source: source,
		env:    environment,
		view:   view,
		cache:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Current возвращает открытое окно.
func (m *ModalManager) Current() (ModalID, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state.Current()
}

// Open открывает окно id. Если открыто другое окно, оно сначала закрывается.
// Ошибка загрузки содержимого не мешает открытию: окно показывает сообщение об ошибке.
// Содержимое загружается без блокировки, поэтому Close во время загрузки не ждет сеть;
// результат загрузки, которую опередили Close или другое Open, не показывается.
func (m *ModalManager) Open(ctx context.Context, id ModalID) error {
	m.mutex.Lock()
	prev, err := m.state.Open(id)
	if err != nil {
		m.mutex.Unlock()
		return fmt.Errorf("%w: %q", err, id)
	}
	if prev != "" {
		m.view.HideModal(prev)
	}
	m.generation++
	generation := m.generation
	m.mutex.Unlock()

	m.env.Haptic(ports.HapticLight)
	content := m.load(ctx, id)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if current, ok := m.state.Current(); !ok || current != id || m.generation != generation {
		m.logger.Debug("Загруженное содержимое устарело", "modal", id)
		return nil
	}
	m.view.ShowModal(id, content)
	m.logger.Debug("Модальное окно открыто", "modal", id, "closed", prev)
	return nil
}

// Close закрывает открытое окно. Без открытого окна ничего не делает.
func (m *ModalManager) Close() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if prev, ok := m.state.Close(); ok {
		m.generation++
		m.view.HideModal(prev)
		m.logger.Debug("Модальное окно закрыто", "modal", prev)
	}
}

// Invalidate сбрасывает закэшированное содержимое окон.
func (m *ModalManager) Invalidate() {
	m.cache.Invalidate("")
}

// SubmitFeedback отправляет обращение и возвращает сообщение для пользователя.
// При успехе окно обратной связи закрывается.
func (m *ModalManager) SubmitFeedback(ctx context.Context, f domain.Feedback) (string, error) {
	resp, err := m.source.SubmitFeedback(ctx, f)
	if err != nil {
		m.env.Haptic(ports.HapticError)
		m.logger.Warn("Обращение не отправлено", "error", err)
		return FriendlyError(err), err
	}
	if !resp.Success {
		m.env.Haptic(ports.HapticWarning)
		msg := resp.Error
		if msg == "" {
			msg = MsgServer
		}
		return msg, fmt.Errorf("обращение отклонено: %s", msg)
	}

	m.env.Haptic(ports.HapticSuccess)
	m.logger.Info("Обращение отправлено", "feedback_id", resp.FeedbackID)

	m.mutex.Lock()
	if cur, ok := m.state.Current(); ok && cur == ModalFeedback {
		m.state.Close()
		m.generation++
		m.view.HideModal(ModalFeedback)
	}
	m.mutex.Unlock()

	msg := resp.Message
	if msg == "" {
		msg = "Спасибо! Ваше обращение отправлено."
	}
	return msg, nil
}

func (m *ModalManager) load(ctx context.Context, id ModalID) ModalContent {
	var key string
	switch id {
	case ModalNews:
		key = cache.Key(string(id), m.cfg.News.Limit, m.cfg.News.Offset, m.cfg.News.Category)
	case ModalCalendar:
		e := m.cfg.Events
		key = cache.Key(string(id), e.Upcoming, e.Days, e.Limit, e.StartDate, e.EndDate, e.Category)
	default:
		return ModalContent{}
	}

	if item, ok := m.cache.Get(key); ok {
		return item.Data
	}

	content, err := m.fetch(ctx, id)
	if err != nil {
		m.logger.Warn("Не удалось загрузить содержимое окна", "modal", id, "error", err)
		return ModalContent{Error: FriendlyError(err)}
	}
	if content.Error == "" && m.cfg.CacheTTL > 0 {
		m.cache.Put(key, content, m.cfg.CacheTTL)
	}
	return content
}

func (m *ModalManager) fetch(ctx context.Context, id ModalID) (ModalContent, error) {
	switch id {
	case ModalNews:
		resp, err := m.source.Newspaper(ctx, m.cfg.News)
		if err != nil {
			return ModalContent{}, err
		}
		if !resp.Success {
			return ModalContent{Error: orDefault(resp.Error, MsgServer)}, nil
		}
		return ModalContent{Articles: resp.Articles}, nil
	case ModalCalendar:
		resp, err := m.source.Events(ctx, m.cfg.Events)
		if err != nil {
			return ModalContent{}, err
		}
		if !resp.Success {
			return ModalContent{Error: orDefault(resp.Error, MsgServer)}, nil
		}
		return ModalContent{Events: resp.Events}, nil
	}
	return ModalContent{}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
