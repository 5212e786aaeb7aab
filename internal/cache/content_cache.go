// Package cache — кэш содержимого модальных окон (новости, календарь) с ограниченным сроком жизни.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Item представляет кэшированный ответ
type Item[V any] struct {
	Data      V
	ExpiresAt time.Time
}

// Store управляет хранением и извлечением кэшированных ответов
type Store[V any] struct {
	items map[string]*Item[V]
	mutex sync.RWMutex
	now   func() time.Time
}

// NewStore создает новый экземпляр Store
func NewStore[V any]() *Store[V] {
	return &Store[V]{
		items: make(map[string]*Item[V]),
		now:   time.Now,
	}
}

// Get извлекает кэшированный элемент по ключу
func (s *Store[V]) Get(key string) (*Item[V], bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	item, exists := s.items[key]
	if !exists || s.now().After(item.ExpiresAt) {
		// Элемент не существует или срок его действия истек
		return nil, false
	}

	return item, true
}

// Put сохраняет элемент в кэш с указанным сроком действия
func (s *Store[V]) Put(key string, data V, ttl time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.items[key] = &Item[V]{
		Data:      data,
		ExpiresAt: s.now().Add(ttl),
	}
}

// Invalidate удаляет элементы, ключи которых начинаются с prefix.
// Пустой prefix очищает кэш целиком.
func (s *Store[V]) Invalidate(prefix string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			delete(s.items, key)
		}
	}
}

// Len возвращает количество элементов, включая просроченные
func (s *Store[V]) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.items)
}

// CleanupExpired удаляет просроченные элементы из кэша
func (s *Store[V]) CleanupExpired() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	for key, item := range s.items {
		if now.After(item.ExpiresAt) {
			delete(s.items, key)
		}
	}
}

// StartCleanupTicker запускает таймер для периодической очистки просроченных элементов
func (s *Store[V]) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanupExpired()
			}
		}
	}()
}

// Key строит ключ кэша: пространство имен и хеш SHA256 параметров запроса
func Key(namespace string, params ...any) string {
	hasher := sha256.New()
	for _, p := range params {
		fmt.Fprintf(hasher, "%v\x00", p)
	}
	return fmt.Sprintf("%s:%x", namespace, hasher.Sum(nil)[:8])
}
