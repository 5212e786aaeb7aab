// Package devapi — заглушка внешнего API газеты для локального запуска и тестов.
// Данные хранятся в памяти, ответы повторяют формат бэкенда.
package devapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"newspaper-miniapp/internal/api"
	"newspaper-miniapp/internal/domain"
)

const (
	maxUploadSize = 60 << 20
	version       = "dev"
)

// Assistant формирует ответ ассистента
type Assistant interface {
	Reply(ctx context.Context, userID, message string, hasImage bool) (string, error)
}

// AssistantFunc адаптирует функцию к Assistant
type AssistantFunc func(ctx context.Context, userID, message string, hasImage bool) (string, error)

func (f AssistantFunc) Reply(ctx context.Context, userID, message string, hasImage bool) (string, error) {
	return f(ctx, userID, message, hasImage)
}

// EchoAssistant отвечает повтором сообщения
var EchoAssistant = AssistantFunc(func(_ context.Context, _ string, message string, hasImage bool) (string, error) {
	switch {
	case hasImage && message != "":
		return "Вижу изображение. Вы написали: " + message, nil
	case hasImage:
		return "Вижу изображение.", nil
	}
	return "Вы написали: " + message, nil
})

// Server представляет HTTP-сервер заглушки
type Server struct {
	HTTPServer *http.Server
	store      *Store
	assistant  Assistant
	logger     *slog.Logger
	cancel     context.CancelFunc
}

// New создает заглушку, слушающую addr
func New(addr string, store *Store, assistant Assistant, logger *slog.Logger) *Server {
	if assistant == nil {
		assistant = EchoAssistant
	}
	s := &Server{store: store, assistant: assistant, logger: logger}

	s.HTTPServer = &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Очистка неактивных пользователей
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	store.StartCleanupTicker(ctx, time.Hour, 24*time.Hour)

	return s
}

// Routes возвращает обработчик со всеми маршрутами заглушки
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Промежуточное ПО
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/chat/history", s.handleHistory)
		r.Post("/chat/clear", s.handleClear)
		r.Post("/chat/history/clear", s.handleClear)
		r.Get("/chat/settings", s.handleSettings)
		r.Post("/chat/settings", s.handleSettings)
		r.Get("/chat/status", s.handleStatus)

		r.Get("/newspaper", s.handleNewspaper)
		r.Get("/newspaper/{articleID}", s.handleArticle)
		r.Get("/events", s.handleEvents)
		r.Post("/feedback", s.handleFeedback)

		r.Get("/test", s.handleTestHealth)
		r.Get("/test/health", s.handleTestHealth)
	})

	return r
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	s.logger.Info("Завершение работы заглушки API")
	return s.HTTPServer.Shutdown(ctx)
}

// chatInput представляет разобранный запрос чата
type chatInput struct {
	Message  string
	UserID   string
	HasImage bool
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	in, err := parseChat(r)
	if err != nil {
		s.logger.Warn("Не удалось разобрать запрос чата", "error", err)
		writeError(w, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	if in.UserID == "" {
		in.UserID = r.Header.Get(api.HeaderTelegramUserID)
	}

	if in.UserID == "" {
		writeError(w, http.StatusBadRequest, "Не указан user_id или telegram_user_id")
		return
	}
	if in.Message == "" && !in.HasImage {
		writeError(w, http.StatusBadRequest, "Отправьте сообщение или изображение")
		return
	}

	reply, err := s.assistant.Reply(r.Context(), in.UserID, in.Message, in.HasImage)
	if err != nil {
		s.logger.Error("Ассистент не ответил", "user_id", in.UserID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "Не удалось получить ответ, попробуйте позже")
		return
	}

	stored := in.Message
	if stored == "" {
		stored = "[Изображение]"
	}
	s.store.AppendHistory(in.UserID, stored, reply, in.HasImage)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"response": reply,
		"user_id":  in.UserID,
	})
}

func parseChat(r *http.Request) (chatInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			return chatInput{}, fmt.Errorf("разбор формы: %w", err)
		}
		in := chatInput{
			Message: r.FormValue("message"),
			UserID:  firstNonEmpty(r.FormValue("user_id"), r.FormValue("telegram_user_id")),
		}
		if r.MultipartForm != nil {
			in.HasImage = len(r.MultipartForm.File["image"]) > 0
		}
		return in, nil
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return chatInput{}, fmt.Errorf("разбор формы: %w", err)
		}
		return chatInput{
			Message: r.PostForm.Get("message"),
			UserID:  firstNonEmpty(r.PostForm.Get("user_id"), r.PostForm.Get("telegram_user_id")),
		}, nil
	}

	// Остальное пробуем как JSON, даже без правильного Content-Type
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
	if err != nil {
		return chatInput{}, fmt.Errorf("чтение тела: %w", err)
	}
	if len(body) == 0 {
		return chatInput{}, nil
	}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return chatInput{}, fmt.Errorf("разбор JSON: %w", err)
	}
	return chatInput{
		Message: stringField(data, "message"),
		UserID:  firstNonEmpty(stringField(data, "user_id"), stringField(data, "telegram_user_id")),
	}, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := queryUserID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "Не указан user_id или telegram_user_id")
		return
	}
	limit := intParam(r, "limit", 10)

	history := s.store.History(userID, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"history": history,
		"count":   len(history),
		"user_id": userID,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	userID, _ := bodyUserID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "Не указан user_id или telegram_user_id")
		return
	}
	s.store.ClearHistory(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "История чата очищена",
		"user_id": userID,
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		userID := queryUserID(r)
		if userID == "" {
			writeError(w, http.StatusBadRequest, "Не указан user_id или telegram_user_id")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"settings": s.store.Settings(userID),
			"user_id":  userID,
		})
		return
	}

	userID, data := bodyUserID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "Не указан user_id или telegram_user_id")
		return
	}
	settings := domain.Settings{
		UseGoogleSearch: boolField(data, "use_google_search", true),
		UseURLContext:   boolField(data, "use_url_context", true),
		UsePersona:      boolField(data, "use_persona", true),
		StreamResponse:  boolField(data, "stream_response", false),
	}
	s.store.UpdateSettings(userID, settings)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Настройки обновлены",
		"settings": settings,
		"user_id":  userID,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status": domain.ChatStatus{
			Available:        true,
			KeysAvailable:    1,
			TotalKeys:        1,
			DirectConnection: true,
		},
	})
}

func (s *Server) handleNewspaper(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", 10)
	offset := intParam(r, "offset", 0)
	articles := s.store.Articles(limit, offset, r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"articles": articles,
		"count":    len(articles),
		"limit":    limit,
		"offset":   offset,
	})
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "articleID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Статья не найдена")
		return
	}
	article, ok := s.store.Article(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Статья не найдена")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "article": article})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events := s.store.Events(EventFilter{
		Upcoming:  strings.EqualFold(q.Get("upcoming"), "true"),
		Days:      intParam(r, "days", 7),
		Limit:     intParam(r, "limit", 10),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Category:  q.Get("category"),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"events":  events,
		"count":   len(events),
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var f domain.Feedback
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	f = api.NormalizeFeedback(f)
	if err := api.ValidateFeedback(f); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	id := s.store.SaveFeedback(f)
	s.logger.Info("Получено обращение", "feedback_id", id, "category", f.Category)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Спасибо! Ваше обращение передано в редакцию.",
		"feedback_id": id,
	})
}

func (s *Server) handleTestHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  "API работает",
		"version": version,
		"endpoints": map[string]string{
			"newspaper": api.PathNewspaper,
			"events":    api.PathEvents,
			"feedback":  api.PathFeedback,
			"chat":      api.PathChat,
		},
	})
}

// requestID проставляет X-Request-Id в ответ, сохраняя значение клиента
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Запрос обработан",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", w.Header().Get("X-Request-Id"),
		)
	})
}

func queryUserID(r *http.Request) string {
	q := r.URL.Query()
	return firstNonEmpty(q.Get("user_id"), q.Get("telegram_user_id"))
}

// bodyUserID читает JSON- или form-тело и возвращает идентификатор и поля
func bodyUserID(r *http.Request) (string, map[string]any) {
	data := map[string]any{}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return "", data
		}
		for k := range r.PostForm {
			data[k] = r.PostForm.Get(k)
		}
	} else {
		_ = json.NewDecoder(r.Body).Decode(&data)
	}
	return firstNonEmpty(stringField(data, "user_id"), stringField(data, "telegram_user_id")), data
}

func validationMessage(err error) string {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		// Сначала сообщение, затем контакты, как на сервере
		for _, field := range []string{"message", "name", "phone"} {
			if e, ok := verrs[field]; ok && e != nil {
				return e.Error()
			}
		}
	}
	return err.Error()
}

func intParam(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

func stringField(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func boolField(data map[string]any, key string, def bool) bool {
	switch v := data[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(v) {
		case "true", "1", "yes", "on":
			return true
		}
		return false
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
