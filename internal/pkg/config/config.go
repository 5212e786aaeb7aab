// Package config предоставляет управление конфигурацией клиента Mini App
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// API содержит параметры подключения к внешнему API
type API struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Storage содержит параметры долговременного локального хранилища
type Storage struct {
	Driver string `json:"driver" yaml:"driver"` // file, sqlite, memory, none
	Path   string `json:"path" yaml:"path"`
}

// Telegram содержит данные запуска Mini App
type Telegram struct {
	// InitData — строка tgWebAppData, которую передает хост. Пустая строка означает обычный браузер.
	InitData string `json:"init_data" yaml:"init_data"`
	// EventsFile — файл, куда пишутся события моста хоста (тактильный отклик, попапы).
	EventsFile string `json:"events_file" yaml:"events_file"`
}

// Chat содержит параметры виджета чата
type Chat struct {
	HistoryLimit  int      `json:"history_limit" yaml:"history_limit"`
	TypingPhrases []string `json:"typing_phrases" yaml:"typing_phrases"`
	// ExportDir — каталог для выгрузки переписки.
	ExportDir string `json:"export_dir" yaml:"export_dir"`
}

// Keyboard содержит параметры детектора экранной клавиатуры
type Keyboard struct {
	Threshold         int           `json:"threshold" yaml:"threshold"` // в пикселях
	Debounce          time.Duration `json:"debounce" yaml:"debounce"`
	OrientationSettle time.Duration `json:"orientation_settle" yaml:"orientation_settle"`
}

// Cache содержит параметры кэша контента модальных окон
type Cache struct {
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// Retry содержит параметры вспомогательного повтора запросов
type Retry struct {
	BaseDelay   time.Duration `json:"base_delay" yaml:"base_delay"`
	MaxAttempts int           `json:"max_attempts" yaml:"max_attempts"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
}

// DevServer содержит конфигурацию локальной заглушки API
type DevServer struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// Config содержит конфигурацию приложения
type Config struct {
	API       API       `json:"api" yaml:"api"`
	Storage   Storage   `json:"storage" yaml:"storage"`
	Telegram  Telegram  `json:"telegram" yaml:"telegram"`
	Chat      Chat      `json:"chat" yaml:"chat"`
	Keyboard  Keyboard  `json:"keyboard" yaml:"keyboard"`
	Cache     Cache     `json:"cache" yaml:"cache"`
	Retry     Retry     `json:"retry" yaml:"retry"`
	Logging   Logging   `json:"logging" yaml:"logging"`
	DevServer DevServer `json:"devserver" yaml:"devserver"`
}

// LoadConfig загружает конфигурацию из .env, YAML-файла и переменных окружения.
// Переменные окружения имеют приоритет над файлом.
func LoadConfig(filename string) (*Config, error) {
	// Отсутствие .env не ошибка
	_ = godotenv.Load()

	if filename == "" {
		filename = DefaultConfigFile
	}

	cfg := defaultConfig()
	if err := loadFromYAML(filename, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию из env: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		API: API{
			BaseURL: DefaultAPIBaseURL,
			Timeout: DefaultAPITimeout,
		},
		Storage: Storage{
			Driver: DefaultStorageDriver,
			Path:   DefaultStoragePath,
		},
		Chat: Chat{
			HistoryLimit:  DefaultHistoryLimit,
			TypingPhrases: append([]string(nil), DefaultTypingPhrases...),
			ExportDir:     DefaultExportDir,
		},
		Keyboard: Keyboard{
			Threshold:         DefaultKeyboardThreshold,
			Debounce:          DefaultKeyboardDebounce,
			OrientationSettle: DefaultOrientationSettle,
		},
		Cache: Cache{TTL: DefaultCacheTTL},
		Retry: Retry{
			BaseDelay:   DefaultRetryBaseDelay,
			MaxAttempts: DefaultRetryMaxAttempts,
		},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		DevServer: DevServer{
			Host: DefaultDevServerHost,
			Port: DefaultDevServerPort,
		},
	}
}

// loadFromYAML накладывает значения из YAML-файла поверх cfg
func loadFromYAML(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}

	return nil
}

// loadFromEnv накладывает значения переменных окружения поверх cfg
func loadFromEnv(cfg *Config) error {
	cfg.API.BaseURL = getEnv("MINIAPP_API_URL", cfg.API.BaseURL)
	cfg.Storage.Driver = getEnv("MINIAPP_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Path = getEnv("MINIAPP_STORAGE_PATH", cfg.Storage.Path)
	cfg.Telegram.InitData = getEnv("MINIAPP_INIT_DATA", cfg.Telegram.InitData)
	cfg.Telegram.EventsFile = getEnv("MINIAPP_EVENTS_FILE", cfg.Telegram.EventsFile)
	cfg.Chat.ExportDir = getEnv("MINIAPP_EXPORT_DIR", cfg.Chat.ExportDir)
	cfg.Logging.Level = getEnv("MINIAPP_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("MINIAPP_LOG_FORMAT", cfg.Logging.Format)
	cfg.DevServer.Host = getEnv("MINIAPP_DEVSERVER_HOST", cfg.DevServer.Host)

	if v := os.Getenv("MINIAPP_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("недопустимый MINIAPP_API_TIMEOUT: %w", err)
		}
		cfg.API.Timeout = d
	}

	if v := os.Getenv("MINIAPP_DEVSERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("недопустимый MINIAPP_DEVSERVER_PORT: %w", err)
		}
		cfg.DevServer.Port = port
	}

	return nil
}

// DevServerAddress возвращает адрес заглушки API в формате "host:port"
func (c *Config) DevServerAddress() string {
	return fmt.Sprintf("%s:%d", c.DevServer.Host, c.DevServer.Port)
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout должен быть положительным")
	}

	switch c.Storage.Driver {
	case "file", "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path не может быть пустым для драйвера %s", c.Storage.Driver)
		}
	case "memory", "none":
	default:
		return fmt.Errorf("storage.driver должен быть одним из: file, sqlite, memory, none")
	}

	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("chat.history_limit должен быть положительным")
	}

	if len(c.Chat.TypingPhrases) == 0 {
		return fmt.Errorf("chat.typing_phrases не может быть пустым")
	}

	if c.Keyboard.Threshold <= 0 {
		return fmt.Errorf("keyboard.threshold должен быть положительным")
	}

	if c.Keyboard.Debounce <= 0 || c.Keyboard.OrientationSettle <= 0 {
		return fmt.Errorf("keyboard.debounce и keyboard.orientation_settle должны быть положительными")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl должен быть положительным")
	}

	if c.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry.base_delay должен быть положительным")
	}

	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts должен быть положительным")
	}

	if c.DevServer.Port <= 0 || c.DevServer.Port > 65535 {
		return fmt.Errorf("devserver.port должен быть действительным номером порта (1-65535)")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format должен быть одним из: json, text")
	}

	return nil
}

// getEnv извлекает значение переменной окружения или возвращает значение по умолчанию, если она не установлена
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
