package app

import (
	"context"

	"newspaper-miniapp/internal/api"
)

// retryingClient повторяет идемпотентные запросы чтения. Отправка сообщений
// и изменения данных выполняются один раз.
type retryingClient struct {
	*api.Client
	policy api.RetryPolicy
}

func (c *retryingClient) History(ctx context.Context, limit int) (*api.HistoryResponse, error) {
	return api.Retry(ctx, c.policy, func(ctx context.Context) (*api.HistoryResponse, error) {
		return c.Client.History(ctx, limit)
	})
}

func (c *retryingClient) ChatStatus(ctx context.Context) (*api.StatusResponse, error) {
	return api.Retry(ctx, c.policy, c.Client.ChatStatus)
}

func (c *retryingClient) Settings(ctx context.Context) (*api.SettingsResponse, error) {
	return api.Retry(ctx, c.policy, c.Client.Settings)
}

func (c *retryingClient) Newspaper(ctx context.Context, q api.NewsQuery) (*api.NewsResponse, error) {
	return api.Retry(ctx, c.policy, func(ctx context.Context) (*api.NewsResponse, error) {
		return c.Client.Newspaper(ctx, q)
	})
}

func (c *retryingClient) Article(ctx context.Context, id int64) (*api.ArticleResponse, error) {
	return api.Retry(ctx, c.policy, func(ctx context.Context) (*api.ArticleResponse, error) {
		return c.Client.Article(ctx, id)
	})
}

func (c *retryingClient) Events(ctx context.Context, q api.EventsQuery) (*api.EventsResponse, error) {
	return api.Retry(ctx, c.policy, func(ctx context.Context) (*api.EventsResponse, error) {
		return c.Client.Events(ctx, q)
	})
}
