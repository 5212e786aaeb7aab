package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"newspaper-miniapp/internal/api"
	"newspaper-miniapp/internal/cache"
	"newspaper-miniapp/internal/domain"
	"newspaper-miniapp/internal/ports"
)

func newModalFixture(t *testing.T) (*MockAPI, *fakeEnv, *recordingView, *ModalManager) {
	t.Helper()
	source := new(MockAPI)
	environment := &fakeEnv{}
	view := newRecordingView(true)
	manager := NewModalManager(source, environment, view, cache.NewStore[ModalContent](), ModalConfig{
		CacheTTL: time.Minute,
		News:     api.NewsQuery{Limit: 20},
		Events:   api.EventsQuery{Upcoming: true, Days: 30},
	}, discardLogger())
	t.Cleanup(func() { source.AssertExpectations(t) })
	return source, environment, view, manager
}

func TestModalManager_OpenLoadsContent(t *testing.T) {
	source, environment, view, manager := newModalFixture(t)
	articles := []domain.Article{{ID: 1, Title: "Выпуск №1"}}
	source.On("Newspaper", mock.Anything, api.NewsQuery{Limit: 20}).
		Return(&api.NewsResponse{Success: true, Articles: articles}, nil).Once()

	require.NoError(t, manager.Open(context.Background(), ModalNews))

	current, ok := manager.Current()
	assert.True(t, ok)
	assert.Equal(t, ModalNews, current)
	assert.Equal(t, articles, view.contents[ModalNews].Articles)
	assert.Equal(t, []ports.Haptic{ports.HapticLight}, environment.Haptics())
}

func TestModalManager_OpenWhileOpenClosesFirst(t *testing.T) {
	source, _, view, manager := newModalFixture(t)
	source.On("Newspaper", mock.Anything, mock.Anything).
		Return(&api.NewsResponse{Success: true}, nil).Once()
	source.On("Events", mock.Anything, api.EventsQuery{Upcoming: true, Days: 30}).
		Return(&api.EventsResponse{Success: true, Events: []domain.Event{{ID: 7, Title: "Планерка"}}}, nil).Once()

	require.NoError(t, manager.Open(context.Background(), ModalNews))
	require.NoError(t, manager.Open(context.Background(), ModalCalendar))

	assert.Equal(t, []ModalID{ModalNews, ModalCalendar}, view.shown)
	assert.Equal(t, []ModalID{ModalNews}, view.hidden)
	current, _ := manager.Current()
	assert.Equal(t, ModalCalendar, current)
}

func TestModalManager_ContentIsCached(t *testing.T) {
	source, _, _, manager := newModalFixture(t)
	source.On("Newspaper", mock.Anything, mock.Anything).
		Return(&api.NewsResponse{Success: true}, nil).Once()

	require.NoError(t, manager.Open(context.Background(), ModalNews))
	manager.Close()
	require.NoError(t, manager.Open(context.Background(), ModalNews))

	source.AssertNumberOfCalls(t, "Newspaper", 1)

	manager.Invalidate()
	source.On("Newspaper", mock.Anything, mock.Anything).
		Return(&api.NewsResponse{Success: true}, nil).Once()
	manager.Close()
	require.NoError(t, manager.Open(context.Background(), ModalNews))
	source.AssertNumberOfCalls(t, "Newspaper", 2)
}

func TestModalManager_LoadErrorShownInModal(t *testing.T) {
	source, _, view, manager := newModalFixture(t)
	source.On("Events", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused")).Twice()

	require.NoError(t, manager.Open(context.Background(), ModalCalendar))
	assert.Equal(t, MsgNetwork, view.contents[ModalCalendar].Error)

	// ошибки не кэшируются
	manager.Close()
	require.NoError(t, manager.Open(context.Background(), ModalCalendar))
}

func TestModalManager_UnknownModal(t *testing.T) {
	_, _, view, manager := newModalFixture(t)

	err := manager.Open(context.Background(), ModalID("archive"))
	assert.ErrorIs(t, err, ErrUnknownModal)
	assert.Empty(t, view.shown)
	_, ok := manager.Current()
	assert.False(t, ok)
}

func TestModalManager_CloseWithoutOpen(t *testing.T) {
	_, _, view, manager := newModalFixture(t)

	manager.Close()
	assert.Empty(t, view.hidden)
}

func TestModalManager_SubmitFeedback(t *testing.T) {
	source, environment, view, manager := newModalFixture(t)
	feedback := domain.Feedback{Name: "Иван", Message: "Спасибо за выпуск"}
	source.On("SubmitFeedback", mock.Anything, feedback).
		Return(&api.FeedbackResponse{Success: true, Message: "Обращение принято", FeedbackID: 3}, nil).Once()

	require.NoError(t, manager.Open(context.Background(), ModalFeedback))
	msg, err := manager.SubmitFeedback(context.Background(), feedback)
	require.NoError(t, err)

	assert.Equal(t, "Обращение принято", msg)
	assert.Equal(t, []ModalID{ModalFeedback}, view.hidden)
	assert.Contains(t, environment.Haptics(), ports.HapticSuccess)
	_, ok := manager.Current()
	assert.False(t, ok)
}

func TestModalManager_SubmitFeedbackInvalid(t *testing.T) {
	source, environment, _, manager := newModalFixture(t)
	invalid := domain.Feedback{Name: "Иван"}
	source.On("SubmitFeedback", mock.Anything, invalid).
		Return(nil, api.ValidateFeedback(invalid)).Once()

	msg, err := manager.SubmitFeedback(context.Background(), invalid)
	assert.Error(t, err)
	assert.Equal(t, "Сообщение обязательно для заполнения", msg)
	assert.Equal(t, []ports.Haptic{ports.HapticError}, environment.Haptics())
}

func TestModalManager_CloseDoesNotWaitForLoad(t *testing.T) {
	source, _, view, manager := newModalFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})
	source.On("Newspaper", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&api.NewsResponse{Success: true, Articles: []domain.Article{{ID: 1}}}, nil).Once()

	opened := make(chan error, 1)
	go func() { opened <- manager.Open(context.Background(), ModalNews) }()
	<-started

	closed := make(chan struct{})
	go func() {
		manager.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close ждет загрузки содержимого")
	}

	close(release)
	require.NoError(t, <-opened)

	_, ok := manager.Current()
	assert.False(t, ok)
	view.mutex.Lock()
	defer view.mutex.Unlock()
	assert.Empty(t, view.shown, "устаревшее содержимое не должно показываться")
}

func TestModalManager_StaleLoadAfterReopenIsDropped(t *testing.T) {
	source, _, view, manager := newModalFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})
	source.On("Newspaper", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&api.NewsResponse{Success: true}, nil).Once()
	source.On("Events", mock.Anything, mock.Anything).
		Return(&api.EventsResponse{Success: true}, nil).Once()

	opened := make(chan error, 1)
	go func() { opened <- manager.Open(context.Background(), ModalNews) }()
	<-started

	require.NoError(t, manager.Open(context.Background(), ModalCalendar))
	close(release)
	require.NoError(t, <-opened)

	current, _ := manager.Current()
	assert.Equal(t, ModalCalendar, current)
	view.mutex.Lock()
	defer view.mutex.Unlock()
	assert.Equal(t, []ModalID{ModalCalendar}, view.shown)
}
