package ui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"newspaper-miniapp/internal/api"
	"newspaper-miniapp/internal/domain"
	"newspaper-miniapp/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockAPI — мок для ChatAPI и ContentSource
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) SendChat(ctx context.Context, in api.ChatRequest) (*api.ChatResponse, error) {
	args := m.Called(ctx, in)
	resp, _ := args.Get(0).(*api.ChatResponse)
	return resp, args.Error(1)
}

func (m *MockAPI) History(ctx context.Context, limit int) (*api.HistoryResponse, error) {
	args := m.Called(ctx, limit)
	resp, _ := args.Get(0).(*api.HistoryResponse)
	return resp, args.Error(1)
}

func (m *MockAPI) ClearHistory(ctx context.Context) (*api.ClearResponse, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*api.ClearResponse)
	return resp, args.Error(1)
}

func (m *MockAPI) Newspaper(ctx context.Context, q api.NewsQuery) (*api.NewsResponse, error) {
	args := m.Called(ctx, q)
	resp, _ := args.Get(0).(*api.NewsResponse)
	return resp, args.Error(1)
}

func (m *MockAPI) Events(ctx context.Context, q api.EventsQuery) (*api.EventsResponse, error) {
	args := m.Called(ctx, q)
	resp, _ := args.Get(0).(*api.EventsResponse)
	return resp, args.Error(1)
}

func (m *MockAPI) SubmitFeedback(ctx context.Context, f domain.Feedback) (*api.FeedbackResponse, error) {
	args := m.Called(ctx, f)
	resp, _ := args.Get(0).(*api.FeedbackResponse)
	return resp, args.Error(1)
}

// stubResolver возвращает заранее заданный идентификатор
type stubResolver struct {
	mutex sync.Mutex
	id    domain.UserIdentity
}

func (r *stubResolver) Set(id domain.UserIdentity) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.id = id
}

func (r *stubResolver) Resolve() domain.UserIdentity {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.id
}

func (r *stubResolver) HeaderIdentity() (string, bool) {
	id := r.Resolve()
	if !id.IsTelegram() {
		return "", false
	}
	return strings.TrimPrefix(id.String(), "tg_"), true
}

// fakeEnv записывает тактильные отклики и диалоги
type fakeEnv struct {
	mutex   sync.Mutex
	haptics []ports.Haptic
	alerts  []string
	confirm bool
}

func (e *fakeEnv) User() *domain.TelegramUser { return nil }
func (e *fakeEnv) IsHost() bool               { return false }

func (e *fakeEnv) Haptic(kind ports.Haptic) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.haptics = append(e.haptics, kind)
}

func (e *fakeEnv) Alert(_ context.Context, msg string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.alerts = append(e.alerts, msg)
	return nil
}

func (e *fakeEnv) Confirm(context.Context, string) (bool, error) {
	return e.confirm, nil
}

func (e *fakeEnv) Haptics() []ports.Haptic {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return append([]ports.Haptic(nil), e.haptics...)
}

// recordingView записывает вызовы представления
type recordingView struct {
	mutex            sync.Mutex
	entries          []domain.ChatEntry
	controls         []bool
	indicatorShown   bool
	indicatorVisible bool
	typingTexts      []string
	preview          *domain.Attachment
	keyboardOpen     bool
	pins             int
	shown            []ModalID
	hidden           []ModalID
	contents         map[ModalID]ModalContent
}

func newRecordingView(indicatorVisible bool) *recordingView {
	return &recordingView{indicatorVisible: indicatorVisible, contents: map[ModalID]ModalContent{}}
}

func (v *recordingView) RenderEntries(entries []domain.ChatEntry) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.entries = append([]domain.ChatEntry(nil), entries...)
}

func (v *recordingView) AppendEntry(entry domain.ChatEntry) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.entries = append(v.entries, entry)
}

func (v *recordingView) SetControlsEnabled(enabled bool) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.controls = append(v.controls, enabled)
}

func (v *recordingView) ShowTypingIndicator(text string) bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.typingTexts = append(v.typingTexts, text)
	v.indicatorShown = v.indicatorVisible
	return v.indicatorVisible
}

func (v *recordingView) HideTypingIndicator() {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.indicatorShown = false
}

func (v *recordingView) ShowImagePreview(image *domain.Attachment) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.preview = image
}

func (v *recordingView) ClearImagePreview() {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.preview = nil
}

func (v *recordingView) SetKeyboardLayout(open bool) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.keyboardOpen = open
}

func (v *recordingView) PinInputBar() {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.pins++
}

func (v *recordingView) ShowModal(id ModalID, content ModalContent) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.shown = append(v.shown, id)
	v.contents[id] = content
}

func (v *recordingView) HideModal(id ModalID) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.hidden = append(v.hidden, id)
}

func (v *recordingView) Entries() []domain.ChatEntry {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return append([]domain.ChatEntry(nil), v.entries...)
}
