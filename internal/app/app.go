// Package app собирает клиент Mini App и запускает его цикл обработки команд.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"newspaper-miniapp/internal/api"
	"newspaper-miniapp/internal/cache"
	"newspaper-miniapp/internal/env"
	"newspaper-miniapp/internal/identity"
	"newspaper-miniapp/internal/log"
	"newspaper-miniapp/internal/pkg/config"
	"newspaper-miniapp/internal/pkg/term"
	"newspaper-miniapp/internal/ports"
	"newspaper-miniapp/internal/render"
	"newspaper-miniapp/internal/storage"
	"newspaper-miniapp/internal/transport"
	"newspaper-miniapp/internal/ui"
)

const (
	newsLimit  = 20
	eventsDays = 30
)

// Options задает потоки и транспорт приложения. Пустые поля заменяются стандартными.
type Options struct {
	ConfigFile string
	In         io.Reader
	Out        io.Writer
	LogOut     io.Writer
	// Transport — базовый HTTP-транспорт, под цепочкой обработчиков.
	Transport http.RoundTripper
}

// App представляет собранное приложение.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	terminal *term.Terminal
	store    storage.Store
	env      ports.Environment
	resolver *identity.Resolver
	client   *api.Client
	retrying *retryingClient
	renderer *render.Renderer
	chat     *ui.ChatManager
	modals   *ui.ModalManager
	content  *cache.Store[ui.ModalContent]
	keyboard *env.KeyboardTracker
	closers  []io.Closer
}

// New выполняет запуск по шагам: конфигурация → логгер → хранилище → среда →
// идентификатор → транспорт → клиент API → контроллеры.
func New(opts Options) (*App, error) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.LogOut == nil {
		opts.LogOut = os.Stderr
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport.(*http.Transport).Clone()
	}

	// 1. Конфигурация
	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// 2. Логгер с маскировкой секретов
	logger := newLogger(cfg.Logging, opts.LogOut)

	a := &App{cfg: cfg, logger: logger}

	// 3. Хранилище
	if cfg.Storage.Driver == "file" || cfg.Storage.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	store, err := storage.New(cfg.Storage, logger.With("component", "storage"))
	if err != nil {
		// Без хранилища клиент работает с эфемерным идентификатором
		logger.Warn("Хранилище недоступно, идентификатор будет эфемерным", "driver", cfg.Storage.Driver, "error", err)
		store = nil
	}
	if store != nil {
		a.store = store
		a.closers = append(a.closers, store)
	}

	// 4. Среда выполнения
	a.terminal = term.NewTerminal(opts.In, opts.Out)
	bridge, err := a.openBridge()
	if err != nil {
		a.Close()
		return nil, err
	}
	initData := func() string { return cfg.Telegram.InitData }
	a.env = env.Detect(initData, bridge, a.terminal, logger.With("component", "env"))

	// 5. Идентификатор пользователя
	var kv ports.KeyValueStore
	if a.store != nil {
		kv = a.store
	}
	a.resolver = identity.NewResolver(a.env, kv, logger.With("component", "identity"))
	if user := a.env.User(); user != nil {
		logger.Info("Пользователь хоста", "name", user.DisplayName())
	}

	// 6. Транспорт: каждый запрос чата получает user_id
	httpClient := transport.NewClient(opts.Transport, cfg.API.Timeout,
		transport.RequestID(),
		transport.Logging(logger.With("component", "http")),
		transport.IdentityInjector(a.resolver, logger.With("component", "injector")),
	)

	// 7. Клиент API
	a.client = api.NewClient(cfg.API.BaseURL, httpClient, opts.Transport, a.resolver, logger.With("component", "api"))
	a.retrying = &retryingClient{
		Client: a.client,
		policy: api.RetryPolicy{
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxAttempts: cfg.Retry.MaxAttempts,
			OnRetry: func(err error, next time.Duration) {
				logger.Warn("Повтор запроса", "error", err, "after", next)
			},
		},
	}

	// 8. Контроллеры
	a.renderer = render.New(opts.Out, func() int { return a.terminal.Width(80) }, a.terminal.Interactive())
	a.content = cache.NewStore[ui.ModalContent]()
	a.chat = ui.NewChatManager(a.retrying, a.resolver, a.env, a.renderer, ui.ChatConfig{
		HistoryLimit:  cfg.Chat.HistoryLimit,
		TypingPhrases: cfg.Chat.TypingPhrases,
	}, logger.With("component", "chat"))
	a.modals = ui.NewModalManager(a.retrying, a.env, a.renderer, a.content, ui.ModalConfig{
		CacheTTL: cfg.Cache.TTL,
		News:     api.NewsQuery{Limit: newsLimit},
		Events:   api.EventsQuery{Upcoming: true, Days: eventsDays},
	}, logger.With("component", "modal"))

	a.keyboard = env.NewKeyboardTracker(env.KeyboardConfig{
		Threshold:         cfg.Keyboard.Threshold,
		Debounce:          cfg.Keyboard.Debounce,
		OrientationSettle: cfg.Keyboard.OrientationSettle,
	}, a.viewportHeight, env.RealScheduler{}, a.chat.OnKeyboard, logger.With("component", "keyboard"))

	logger.Info("Клиент запущен", "api", cfg.API.BaseURL, "host", a.env.IsHost(), "storage", cfg.Storage.Driver)
	return a, nil
}

// Close освобождает ресурсы приложения.
func (a *App) Close() error {
	if a.keyboard != nil {
		a.keyboard.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Logger возвращает логгер приложения.
func (a *App) Logger() *slog.Logger { return a.logger }

// Guard выполняет операцию op изолированно: ошибка логируется, паника
// перехватывается и превращается в ошибку. Приложение продолжает работу.
func (a *App) Guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Паника в операции", "op", op, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%s: panic: %v", op, r)
		}
	}()

	if err = fn(); err != nil {
		a.logger.Error("Операция завершилась ошибкой", "op", op, "error", err)
	}
	return err
}

func (a *App) openBridge() (env.Bridge, error) {
	path := a.cfg.Telegram.EventsFile
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open events file: %w", err)
	}
	a.closers = append(a.closers, f)
	return env.NewStreamBridge(f, nil), nil
}

func (a *App) viewportHeight() int {
	h, err := a.terminal.Height()
	if err != nil {
		return 0
	}
	return h
}

func newLogger(cfg config.Logging, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: log.ParseLevel(cfg.Level)}
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return log.NewMaskedLogger(handler)
}
