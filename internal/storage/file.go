package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore хранит пары ключ-значение в JSON-документе на диске.
// Каждая запись перечитывает файл, поэтому несколько процессов видят
// изменения друг друга; при одновременной записи побеждает последний.
type FileStore struct {
	path   string
	mutex  sync.Mutex
	closed bool
}

// NewFileStore создает хранилище в файле path, создавая каталог при необходимости.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("не удалось создать каталог хранилища: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return "", false, ErrClosed
	}

	data, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	return s.update(func(data map[string]string) { data[key] = value })
}

func (s *FileStore) Delete(key string) error {
	return s.update(func(data map[string]string) { delete(data, key) })
}

func (s *FileStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.closed = true
	return nil
}

func (s *FileStore) update(mutate func(map[string]string)) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return ErrClosed
	}

	data, err := s.load()
	if err != nil {
		return err
	}
	mutate(data)
	return s.save(data)
}

func (s *FileStore) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать хранилище %s: %w", s.path, err)
	}

	data := make(map[string]string)
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("хранилище %s повреждено: %w", s.path, err)
	}
	return data, nil
}

// save атомарно заменяет файл через временный файл в том же каталоге
func (s *FileStore) save(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("не удалось сериализовать хранилище: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".storage-*.tmp")
	if err != nil {
		return fmt.Errorf("не удалось создать временный файл: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("не удалось записать временный файл: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("не удалось закрыть временный файл: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("не удалось заменить файл хранилища: %w", err)
	}
	return nil
}
