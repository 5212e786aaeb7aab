// Package storage содержит реализации долговременного локального хранилища клиента.
package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"newspaper-miniapp/internal/pkg/config"
	"newspaper-miniapp/internal/ports"
)

// ErrClosed возвращается при обращении к закрытому хранилищу.
var ErrClosed = errors.New("хранилище закрыто")

// Store представляет хранилище, которое закрывается при завершении приложения.
type Store interface {
	ports.KeyValueStore
	Close() error
}

// New создает хранилище по драйверу из конфигурации.
// Для драйвера "none" возвращается nil без ошибки: идентификатор будет эфемерным.
func New(cfg config.Storage, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case "file":
		store, err := NewFileStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "sqlite":
		store, err := NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return NewMemoryStore(), nil
	case "none":
		logger.Info("Долговременное хранилище отключено")
		return nil, nil
	default:
		return nil, fmt.Errorf("неизвестный драйвер хранилища: %s", cfg.Driver)
	}
}
