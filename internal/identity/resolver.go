// Package identity определяет, от имени какого пользователя клиент обращается к API чата.
//
// Источники в порядке приоритета: пользователь хоста Mini App (tg_<id>),
// сохраненный в локальном хранилище веб-идентификатор и вновь сгенерированный
// веб-идентификатор, который сохраняется один раз на профиль.
package identity

import (
	"crypto/rand"
	"log/slog"
	"math/big"
	"strconv"
	"sync"
	"time"

	"newspaper-miniapp/internal/domain"
	"newspaper-miniapp/internal/ports"
)

// StorageKey — ключ, под которым хранится веб-идентификатор.
const StorageKey = "miniapp_user_id"

const (
	randomLength   = 13
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Resolver вычисляет канонический идентификатор текущей сессии.
// Безопасен для конкурентного использования.
type Resolver struct {
	users  ports.UserSource
	store  ports.KeyValueStore
	logger *slog.Logger
	now    func() time.Time
	random func() string

	mutex sync.Mutex
	// telegram запоминается после первого наблюдения и больше не уступает веб-идентификатору
	telegram domain.UserIdentity
	// fallback — эфемерный или несохраненный идентификатор этой сессии
	fallback domain.UserIdentity
}

var _ ports.IdentityResolver = (*Resolver)(nil)

// Option настраивает Resolver.
type Option func(*Resolver)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithRandom подменяет генератор случайной части веб-идентификатора.
func WithRandom(random func() string) Option {
	return func(r *Resolver) { r.random = random }
}

// NewResolver создает Resolver. users может быть nil (вне хоста Mini App),
// store может быть nil — тогда используется эфемерный идентификатор web_session_<ts>.
func NewResolver(users ports.UserSource, store ports.KeyValueStore, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		users:  users,
		store:  store,
		logger: logger,
		now:    time.Now,
		random: randomBase36,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve возвращает идентификатор пользователя. Никогда не завершается ошибкой:
// сбои хранилища логируются и приводят к несохраненному идентификатору.
func (r *Resolver) Resolve() domain.UserIdentity {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Хост проверяется при каждом вызове: пользователь может появиться после загрузки
	if user := r.hostUser(); user != nil {
		id := domain.TelegramIdentity(user.ID)
		if r.telegram != id {
			r.logger.Info("Получен идентификатор пользователя Telegram", "user_id", id)
		}
		r.telegram = id
		return id
	}
	if !r.telegram.IsEmpty() {
		return r.telegram
	}

	if r.store == nil {
		if r.fallback.IsEmpty() {
			r.fallback = domain.SessionIdentity(r.now())
			r.logger.Debug("Создан эфемерный идентификатор", "user_id", r.fallback)
		}
		return r.fallback
	}

	// Выданный в этой сессии идентификатор не меняется, даже если хранилище
	// позже станет доступным и вернет другое значение
	if !r.fallback.IsEmpty() {
		return r.fallback
	}

	stored, ok, err := r.store.Get(StorageKey)
	switch {
	case err != nil:
		r.logger.Warn("Не удалось прочитать идентификатор из хранилища", "error", err)
	case ok && stored != "":
		return domain.UserIdentity(stored)
	}

	id := domain.WebIdentity(r.now(), r.random())
	r.fallback = id
	if err == nil {
		if err := r.store.Set(StorageKey, id.String()); err != nil {
			r.logger.Warn("Не удалось сохранить идентификатор, он будет действовать только в этой сессии", "error", err)
		} else {
			r.logger.Info("Создан новый веб-идентификатор", "user_id", id)
		}
	}
	return id
}

// HeaderIdentity возвращает числовой ID пользователя хоста для заголовка X-Telegram-User-Id.
// Значение берется только из хоста Mini App, веб-идентификаторы сюда не попадают.
func (r *Resolver) HeaderIdentity() (string, bool) {
	user := r.hostUser()
	if user == nil {
		return "", false
	}
	return strconv.FormatInt(user.ID, 10), true
}

func (r *Resolver) hostUser() *domain.TelegramUser {
	if r.users == nil {
		return nil
	}
	user := r.users.User()
	if user == nil || user.ID == 0 {
		return nil
	}
	return user
}

// randomBase36 возвращает 13 случайных символов base36
func randomBase36() string {
	buf := make([]byte, randomLength)
	limit := big.NewInt(int64(len(base36Alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand не отказывает на поддерживаемых платформах
			n = big.NewInt(time.Now().UnixNano() % int64(len(base36Alphabet)))
		}
		buf[i] = base36Alphabet[n.Int64()]
	}
	return string(buf)
}
