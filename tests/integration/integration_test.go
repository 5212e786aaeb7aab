package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspaper-miniapp/internal/api"
	"newspaper-miniapp/internal/devapi"
	"newspaper-miniapp/internal/domain"
	"newspaper-miniapp/internal/identity"
	"newspaper-miniapp/internal/storage"
	"newspaper-miniapp/internal/transport"
)

// hostUser имитирует хост Mini App, который может сообщить пользователя не сразу
type hostUser struct {
	user *domain.TelegramUser
}

func (h *hostUser) User() *domain.TelegramUser { return h.user }

type stack struct {
	server   *httptest.Server
	store    *devapi.Store
	host     *hostUser
	resolver *identity.Resolver
	client   *api.Client
}

func newStack(t *testing.T) *stack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := devapi.NewStore()
	store.SetContent(devapi.SampleContent(time.Now()))
	srv := devapi.New("", store, devapi.EchoAssistant, logger)
	server := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		server.Close()
		_ = srv.Shutdown(context.Background())
	})

	host := &hostUser{}
	resolver := identity.NewResolver(host, storage.NewMemoryStore(), logger)
	base := http.DefaultTransport
	httpClient := transport.NewClient(base, 5*time.Second,
		transport.RequestID(),
		transport.Logging(logger),
		transport.IdentityInjector(resolver, logger),
	)
	client := api.NewClient(server.URL, httpClient, base, resolver, logger)

	return &stack{server: server, store: store, host: host, resolver: resolver, client: client}
}

// Запрос чата без user_id получает его от транспорта, история читается по тому же идентификатору
func TestChatFlow_WebIdentity(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	resp, err := s.client.SendChat(ctx, api.ChatRequest{Message: "Привет"})
	require.NoError(t, err)
	require.True(t, resp.Success)

	id := s.resolver.Resolve()
	assert.True(t, id.IsWeb())
	assert.Equal(t, id.String(), resp.UserID)

	history, err := s.client.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history.History, 1)
	assert.Equal(t, "Привет", history.History[0].User)
	assert.Equal(t, "Вы написали: Привет", history.History[0].Assistant)

	cleared, err := s.client.ClearHistory(ctx)
	require.NoError(t, err)
	assert.True(t, cleared.Success)
	assert.Empty(t, s.store.History(id.String(), 10))
}

// После появления пользователя хоста запросы идут под tg_<id>
func TestChatFlow_TelegramIdentityWins(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, err := s.client.SendChat(ctx, api.ChatRequest{Message: "до входа"})
	require.NoError(t, err)
	webID := s.resolver.Resolve()

	s.host.user = &domain.TelegramUser{ID: 555, FirstName: "Иван"}
	resp, err := s.client.SendChat(ctx, api.ChatRequest{Message: "Привет"})
	require.NoError(t, err)
	assert.Equal(t, "tg_555", resp.UserID)

	assert.Len(t, s.store.History("tg_555", 10), 1)
	assert.Len(t, s.store.History(webID.String(), 10), 1)
}

// Низкоуровневый запрос тоже получает идентификатор
func TestChatFlow_RawRequest(t *testing.T) {
	s := newStack(t)
	s.host.user = &domain.TelegramUser{ID: 42}

	resp, err := s.client.SendChatRaw(context.Background(), api.ChatRequest{Message: "через raw"})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, "tg_42", resp.UserID)
}

// Явно указанный идентификатор не перезаписывается
func TestChatFlow_ExplicitIdentityKept(t *testing.T) {
	s := newStack(t)

	resp, err := s.client.SendChat(context.Background(), api.ChatRequest{Message: "hi", UserID: "web_1_explicit"})
	require.NoError(t, err)
	assert.Equal(t, "web_1_explicit", resp.UserID)
}

func TestChatFlow_ImageUpload(t *testing.T) {
	s := newStack(t)
	image := &domain.Attachment{Name: "scan.heic", ContentType: "image/heic", Data: []byte("not really heic")}

	resp, err := s.client.SendChat(context.Background(), api.ChatRequest{Image: image})
	require.NoError(t, err)
	assert.Equal(t, "Вижу изображение.", resp.Response)
}

func TestContentAndFeedback(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	news, err := s.client.Newspaper(ctx, api.NewsQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, news.Articles, 2)

	article, err := s.client.Article(ctx, news.Articles[0].ID)
	require.NoError(t, err)
	assert.Equal(t, news.Articles[0].Title, article.Article.Title)

	_, err = s.client.Article(ctx, 999)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Статья не найдена", apiErr.Message)

	events, err := s.client.Events(ctx, api.EventsQuery{Upcoming: true, Days: 30})
	require.NoError(t, err)
	assert.Len(t, events.Events, 3)

	fb, err := s.client.SubmitFeedback(ctx, domain.Feedback{Phone: "+7 900 000-00-00", Message: "Опечатка в заголовке"})
	require.NoError(t, err)
	assert.True(t, fb.Success)
	require.Len(t, s.store.Feedback(), 1)

	settings, err := s.client.UpdateSettings(ctx, domain.Settings{UseURLContext: true})
	require.NoError(t, err)
	assert.False(t, settings.Settings.UseGoogleSearch)

	status, err := s.client.ChatStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Available())
}
