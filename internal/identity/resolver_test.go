package identity

import (
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspaper-miniapp/internal/domain"
	"newspaper-miniapp/internal/storage"
)

// fakeHost имитирует хост Mini App, пользователь которого может появиться позже
type fakeHost struct {
	user atomic.Pointer[domain.TelegramUser]
}

func (h *fakeHost) User() *domain.TelegramUser { return h.user.Load() }

// failingStore всегда возвращает ошибки
type failingStore struct {
	getErr, setErr error
	sets           int
}

func (s *failingStore) Get(string) (string, bool, error) { return "", false, s.getErr }
func (s *failingStore) Set(string, string) error        { s.sets++; return s.setErr }
func (s *failingStore) Delete(string) error             { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.UnixMilli(1700000000123) }
}

func TestResolver_Precedence(t *testing.T) {
	host := &fakeHost{}
	store := storage.NewMemoryStore()
	r := NewResolver(host, store, discardLogger(), WithClock(fixedClock()), WithRandom(func() string { return "abcdefghijklm" }))

	t.Run("generates and persists web identity", func(t *testing.T) {
		id := r.Resolve()
		assert.Equal(t, domain.UserIdentity("web_1700000000123_abcdefghijklm"), id)

		stored, ok, err := store.Get(StorageKey)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, id.String(), stored)
	})

	t.Run("late telegram identity supersedes web", func(t *testing.T) {
		host.user.Store(&domain.TelegramUser{ID: 555})
		assert.Equal(t, domain.UserIdentity("tg_555"), r.Resolve())
	})

	t.Run("telegram identity is sticky", func(t *testing.T) {
		host.user.Store(nil)
		for i := 0; i < 3; i++ {
			id := r.Resolve()
			assert.True(t, id.IsTelegram(), "получен веб-идентификатор %s после tg", id)
		}
	})
}

func TestResolver_StoredIdentityIsStable(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(StorageKey, "web_42_stored"))

	first := NewResolver(nil, store, discardLogger()).Resolve()
	second := NewResolver(nil, store, discardLogger()).Resolve()

	assert.Equal(t, domain.UserIdentity("web_42_stored"), first)
	assert.Equal(t, first, second)
}

func TestResolver_PersistsOncePerProfile(t *testing.T) {
	store := storage.NewMemoryStore()
	var calls int
	random := func() string { calls++; return "r" }

	first := NewResolver(nil, store, discardLogger(), WithRandom(random)).Resolve()
	second := NewResolver(nil, store, discardLogger(), WithRandom(random)).Resolve()

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestResolver_EmptyStoredValueIgnored(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(StorageKey, ""))

	id := NewResolver(nil, store, discardLogger()).Resolve()
	assert.True(t, id.IsWeb())
	assert.False(t, id.IsSession())
	assert.NotEmpty(t, id.String())
}

func TestResolver_StorageFailures(t *testing.T) {
	t.Run("read failure degrades to non-persisted token", func(t *testing.T) {
		store := &failingStore{getErr: errors.New("disk unavailable")}
		r := NewResolver(nil, store, discardLogger())

		id := r.Resolve()
		assert.True(t, id.IsWeb())
		assert.Equal(t, id, r.Resolve(), "идентификатор должен сохраняться в памяти сессии")
		assert.Zero(t, store.sets)
	})

	t.Run("write failure keeps in-memory token", func(t *testing.T) {
		store := &failingStore{setErr: errors.New("quota exceeded")}
		r := NewResolver(nil, store, discardLogger())

		id := r.Resolve()
		assert.Equal(t, id, r.Resolve())
		assert.Equal(t, 1, store.sets)
	})
}

// recoveringStore отказывает при первом чтении, затем возвращает значение другой вкладки
type recoveringStore struct {
	reads int
}

func (s *recoveringStore) Get(string) (string, bool, error) {
	s.reads++
	if s.reads == 1 {
		return "", false, errors.New("disk unavailable")
	}
	return "web_99_othertab", true, nil
}
func (s *recoveringStore) Set(string, string) error { return nil }
func (s *recoveringStore) Delete(string) error      { return nil }

func TestResolver_FallbackStableAfterStoreRecovers(t *testing.T) {
	store := &recoveringStore{}
	r := NewResolver(nil, store, discardLogger())

	first := r.Resolve()
	require.True(t, first.IsWeb())
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, r.Resolve())
	}
	assert.Equal(t, 1, store.reads)
}

func TestResolver_SessionIdentityWithoutStore(t *testing.T) {
	r := NewResolver(nil, nil, discardLogger(), WithClock(fixedClock()))

	id := r.Resolve()
	assert.Equal(t, domain.UserIdentity("web_session_1700000000123"), id)
	assert.Equal(t, id, r.Resolve())
}

func TestResolver_HeaderIdentity(t *testing.T) {
	host := &fakeHost{}
	r := NewResolver(host, storage.NewMemoryStore(), discardLogger())

	_, ok := r.HeaderIdentity()
	assert.False(t, ok, "веб-пользователь не должен получать заголовок")

	host.user.Store(&domain.TelegramUser{ID: 555})
	v, ok := r.HeaderIdentity()
	assert.True(t, ok)
	assert.Equal(t, "555", v)

	host.user.Store(&domain.TelegramUser{ID: 0})
	_, ok = r.HeaderIdentity()
	assert.False(t, ok, "пользователь без числового ID не считается аутентифицированным")
}

func TestRandomBase36(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-z]{13}$`)
	for i := 0; i < 20; i++ {
		assert.Regexp(t, re, randomBase36())
	}
}
