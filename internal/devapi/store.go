package devapi

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"newspaper-miniapp/internal/domain"
)

// userData хранит историю и настройки одного пользователя
type userData struct {
	history  []domain.HistoryRecord
	settings domain.Settings
	lastSeen time.Time
}

// Store хранит данные заглушки в памяти
type Store struct {
	users    map[string]*userData
	articles []domain.Article
	events   []domain.Event
	feedback []domain.Feedback
	mutex    sync.RWMutex
	now      func() time.Time
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{
		users: make(map[string]*userData),
		now:   time.Now,
	}
}

// SetContent заменяет статьи и события
func (s *Store) SetContent(articles []domain.Article, events []domain.Event) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.articles = append([]domain.Article(nil), articles...)
	s.events = append([]domain.Event(nil), events...)
}

func (s *Store) user(id string) *userData {
	u, ok := s.users[id]
	if !ok {
		u = &userData{settings: domain.DefaultSettings()}
		s.users[id] = u
	}
	u.lastSeen = s.now()
	return u
}

// AppendHistory добавляет обмен репликами в историю пользователя
func (s *Store) AppendHistory(userID, message, reply string, hasImage bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	u := s.user(userID)
	u.history = append(u.history, domain.HistoryRecord{
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
		User:      message,
		Assistant: reply,
		HasImage:  hasImage,
	})
}

// History возвращает последние limit записей истории
func (s *Store) History(userID string, limit int) []domain.HistoryRecord {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return []domain.HistoryRecord{}
	}
	history := u.history
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return append([]domain.HistoryRecord{}, history...)
}

// ClearHistory удаляет историю пользователя
func (s *Store) ClearHistory(userID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.user(userID).history = nil
}

// Settings возвращает настройки пользователя
func (s *Store) Settings(userID string) domain.Settings {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.user(userID).settings
}

// UpdateSettings сохраняет настройки пользователя
func (s *Store) UpdateSettings(userID string, settings domain.Settings) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.user(userID).settings = settings
}

// Articles возвращает статьи, новые первыми
func (s *Store) Articles(limit, offset int, category string) []domain.Article {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	filtered := make([]domain.Article, 0, len(s.articles))
	for _, a := range s.articles {
		if category == "" || strings.EqualFold(a.Category, category) {
			filtered = append(filtered, a)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].PublishedDate > filtered[j].PublishedDate
	})

	if offset >= len(filtered) {
		return []domain.Article{}
	}
	filtered = filtered[offset:]
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered
}

// Article возвращает статью и увеличивает счетчик просмотров
func (s *Store) Article(id int64) (domain.Article, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i := range s.articles {
		if s.articles[i].ID == id {
			s.articles[i].Views++
			return s.articles[i], true
		}
	}
	return domain.Article{}, false
}

// EventFilter задает параметры выборки событий
type EventFilter struct {
	Upcoming  bool
	Days      int
	Limit     int
	StartDate string
	EndDate   string
	Category  string
}

// Events возвращает события по фильтру, упорядоченные по дате
func (s *Store) Events(f EventFilter) []domain.Event {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	start, end := f.StartDate, f.EndDate
	if f.Upcoming {
		today := s.now()
		start = today.Format(time.DateOnly)
		end = today.AddDate(0, 0, f.Days).Format(time.DateOnly)
	}

	events := make([]domain.Event, 0, len(s.events))
	for _, e := range s.events {
		if start != "" && e.EventDate < start {
			continue
		}
		if end != "" && e.EventDate > end {
			continue
		}
		if f.Category != "" && !strings.EqualFold(e.Category, f.Category) {
			continue
		}
		events = append(events, e)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].EventDate != events[j].EventDate {
			return events[i].EventDate < events[j].EventDate
		}
		return events[i].EventTime < events[j].EventTime
	})
	if f.Upcoming && f.Limit > 0 && len(events) > f.Limit {
		events = events[:f.Limit]
	}
	return events
}

// SaveFeedback сохраняет обращение и возвращает его номер
func (s *Store) SaveFeedback(f domain.Feedback) int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.feedback = append(s.feedback, f)
	return int64(len(s.feedback))
}

// Feedback возвращает сохраненные обращения
func (s *Store) Feedback() []domain.Feedback {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]domain.Feedback(nil), s.feedback...)
}

// CleanupIdle удаляет пользователей, не обращавшихся дольше ttl
func (s *Store) CleanupIdle(ttl time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	for id, u := range s.users {
		if now.Sub(u.lastSeen) > ttl {
			delete(s.users, id)
		}
	}
}

// StartCleanupTicker запускает периодическую очистку неактивных пользователей
func (s *Store) StartCleanupTicker(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanupIdle(ttl)
			}
		}
	}()
}
