// Package api — типизированный клиент внешнего HTTP API мини-приложения.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"newspaper-miniapp/internal/domain"
	"newspaper-miniapp/internal/imageproc"
	"newspaper-miniapp/internal/ports"
	"newspaper-miniapp/internal/transport"
)

// Пути конечных точек
const (
	PathChat         = "/api/chat"
	PathChatHistory  = "/api/chat/history"
	PathChatClear    = "/api/chat/clear"
	PathChatSettings = "/api/chat/settings"
	PathChatStatus   = "/api/chat/status"
	PathNewspaper    = "/api/newspaper"
	PathEvents       = "/api/events"
	PathFeedback     = "/api/feedback"
	PathTest         = "/api/test"
	PathHealth       = "/health"
)

const (
	// HeaderTelegramUserID заполняется только для пользователей Telegram.
	HeaderTelegramUserID = "X-Telegram-User-Id"
	// ParamTelegramUserID несет полный идентификатор в query и JSON.
	ParamTelegramUserID = "telegram_user_id"
)

// Client — клиент API. Идентификатор в поле user_id запросов чата
// добавляет транспорт (transport.IdentityInjector).
type Client struct {
	baseURL    string
	httpClient *http.Client
	resolver   ports.IdentityResolver
	rawBase    http.RoundTripper
	logger     *slog.Logger
}

// NewClient создает клиент поверх подготовленного http.Client.
// rawBase — транспорт для низкоуровневых запросов в обход цепочки, может быть nil.
func NewClient(baseURL string, httpClient *http.Client, rawBase http.RoundTripper, resolver ports.IdentityResolver, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		resolver:   resolver,
		rawBase:    rawBase,
		logger:     logger,
	}
}

// ChatRequest — сообщение в чат. Пустой UserID оставляет идентификатор транспорту.
type ChatRequest struct {
	Message string
	Image   *domain.Attachment
	UserID  domain.UserIdentity
}

type ChatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	UserID   string `json:"user_id"`
	Error    string `json:"error,omitempty"`
}

type HistoryResponse struct {
	Success bool                   `json:"success"`
	History []domain.HistoryRecord `json:"history"`
	UserID  string                 `json:"user_id"`
	Error   string                 `json:"error,omitempty"`
}

type ClearResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SettingsResponse struct {
	Success  bool            `json:"success"`
	Settings domain.Settings `json:"settings"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type StatusResponse struct {
	Success       bool              `json:"success"`
	ChatAvailable bool              `json:"chat_available"`
	Status        domain.ChatStatus `json:"status"`
	Error         string            `json:"error,omitempty"`
}

// Available сообщает, может ли ассистент отвечать.
func (r *StatusResponse) Available() bool {
	return r.ChatAvailable || r.Status.Available
}

type NewsResponse struct {
	Success  bool             `json:"success"`
	Articles []domain.Article `json:"articles"`
	Total    int              `json:"total,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type ArticleResponse struct {
	Success bool           `json:"success"`
	Article domain.Article `json:"article"`
	Error   string         `json:"error,omitempty"`
}

type EventsResponse struct {
	Success bool           `json:"success"`
	Events  []domain.Event `json:"events"`
	Error   string         `json:"error,omitempty"`
}

type FeedbackResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	FeedbackID int64  `json:"feedback_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewsQuery задает параметры выборки статей.
type NewsQuery struct {
	Limit    int
	Offset   int
	Category string
}

func (q NewsQuery) values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	return v
}

// EventsQuery задает параметры выборки событий.
type EventsQuery struct {
	Upcoming  bool
	Days      int
	Limit     int
	StartDate string
	EndDate   string
	Category  string
}

func (q EventsQuery) values() url.Values {
	v := url.Values{}
	if q.Upcoming {
		v.Set("upcoming", "true")
	}
	if q.Days > 0 {
		v.Set("days", strconv.Itoa(q.Days))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.StartDate != "" {
		v.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		v.Set("end_date", q.EndDate)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	return v
}

// SendChat отправляет сообщение и, при наличии, изображение multipart-запросом.
// Изображение проверяется и при необходимости сжимается до отправки.
func (c *Client) SendChat(ctx context.Context, in ChatRequest) (*ChatResponse, error) {
	form, err := c.chatForm(in)
	if err != nil {
		return nil, err
	}

	body, contentType, err := form.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, PathChat, nil, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var result ChatResponse
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendChatRaw отправляет сообщение низкоуровневым запросом в обход цепочки обработчиков.
func (c *Client) SendChatRaw(ctx context.Context, in ChatRequest) (*ChatResponse, error) {
	form, err := c.chatForm(in)
	if err != nil {
		return nil, err
	}

	raw := transport.NewRawRequest(c.rawBase, c.resolver, c.logger)
	if err := raw.Open(http.MethodPost, c.baseURL+PathChat); err != nil {
		return nil, err
	}
	if id, ok := c.resolver.HeaderIdentity(); ok {
		raw.SetHeader(HeaderTelegramUserID, id)
	}

	resp, err := raw.Send(ctx, form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result ChatResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) chatForm(in ChatRequest) (*transport.Form, error) {
	form := transport.NewForm()
	if in.Message != "" {
		form.Add("message", in.Message)
	}
	if in.Image != nil {
		img, err := imageproc.Prepare(in.Image)
		if err != nil {
			return nil, err
		}
		form.AddFile("image", transport.FormFile{Name: img.Name, ContentType: img.ContentType, Data: img.Data})
	}
	if !in.UserID.IsEmpty() {
		form.Add(transport.IdentityField, in.UserID.String())
	}
	return form, nil
}

// History загружает последние limit записей истории чата.
func (c *Client) History(ctx context.Context, limit int) (*HistoryResponse, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var result HistoryResponse
	if err := c.get(ctx, PathChatHistory, q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ClearHistory очищает историю чата текущего пользователя.
func (c *Client) ClearHistory(ctx context.Context) (*ClearResponse, error) {
	body := map[string]string{ParamTelegramUserID: c.resolver.Resolve().String()}
	var result ClearResponse
	if err := c.postJSON(ctx, PathChatClear, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Settings возвращает настройки ассистента.
func (c *Client) Settings(ctx context.Context) (*SettingsResponse, error) {
	var result SettingsResponse
	if err := c.get(ctx, PathChatSettings, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateSettings сохраняет настройки ассистента.
func (c *Client) UpdateSettings(ctx context.Context, s domain.Settings) (*SettingsResponse, error) {
	body := struct {
		domain.Settings
		TelegramUserID string `json:"telegram_user_id"`
	}{s, c.resolver.Resolve().String()}

	var result SettingsResponse
	if err := c.postJSON(ctx, PathChatSettings, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ChatStatus возвращает доступность ассистента.
func (c *Client) ChatStatus(ctx context.Context) (*StatusResponse, error) {
	var result StatusResponse
	if err := c.get(ctx, PathChatStatus, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Newspaper возвращает статьи газеты.
func (c *Client) Newspaper(ctx context.Context, q NewsQuery) (*NewsResponse, error) {
	var result NewsResponse
	if err := c.get(ctx, PathNewspaper, q.values(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Article возвращает статью по идентификатору.
func (c *Client) Article(ctx context.Context, id int64) (*ArticleResponse, error) {
	var result ArticleResponse
	if err := c.get(ctx, PathNewspaper+"/"+strconv.FormatInt(id, 10), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Events возвращает события календаря.
func (c *Client) Events(ctx context.Context, q EventsQuery) (*EventsResponse, error) {
	var result EventsResponse
	if err := c.get(ctx, PathEvents, q.values(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitFeedback проверяет и отправляет обращение в редакцию.
func (c *Client) SubmitFeedback(ctx context.Context, f domain.Feedback) (*FeedbackResponse, error) {
	f = NormalizeFeedback(f)
	if err := ValidateFeedback(f); err != nil {
		return nil, err
	}

	var result FeedbackResponse
	if err := c.postJSON(ctx, PathFeedback, f, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Test вызывает диагностическую конечную точку API.
func (c *Client) Test(ctx context.Context) (map[string]any, error) {
	var result map[string]any
	if err := c.get(ctx, PathTest, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Health проверяет работоспособность сервера.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var result map[string]any
	if err := c.get(ctx, PathHealth, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// get выполняет GET-запрос, добавляя идентификатор в query
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set(ParamTelegramUserID, c.resolver.Resolve().String())

	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// postJSON выполняет POST-запрос с JSON-телом
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		if id, ok := c.resolver.HeaderIdentity(); ok {
			req.Header.Set(HeaderTelegramUserID, id)
		}
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
