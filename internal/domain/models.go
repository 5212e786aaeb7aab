package domain

import (
	"strconv"
	"strings"
	"time"
)

const (
	telegramPrefix = "tg_"
	webPrefix      = "web_"
	sessionPrefix  = "web_session_"
)

// UserIdentity — строковый токен, которым клиент представляется бэкенду чата.
type UserIdentity string

// TelegramIdentity строит идентификатор пользователя Mini App: tg_<id>.
func TelegramIdentity(id int64) UserIdentity {
	return UserIdentity(telegramPrefix + strconv.FormatInt(id, 10))
}

// WebIdentity строит постоянный идентификатор браузера: web_<ts>_<rnd>.
func WebIdentity(at time.Time, random string) UserIdentity {
	return UserIdentity(webPrefix + strconv.FormatInt(at.UnixMilli(), 10) + "_" + random)
}

// SessionIdentity строит эфемерный идентификатор одной загрузки: web_session_<ts>.
func SessionIdentity(at time.Time) UserIdentity {
	return UserIdentity(sessionPrefix + strconv.FormatInt(at.UnixMilli(), 10))
}

func (u UserIdentity) String() string { return string(u) }

// IsEmpty возвращает true для пустого идентификатора.
func (u UserIdentity) IsEmpty() bool { return u == "" }

// IsTelegram сообщает, получен ли идентификатор от Mini App.
func (u UserIdentity) IsTelegram() bool { return strings.HasPrefix(string(u), telegramPrefix) }

// IsSession сообщает, является ли идентификатор эфемерным.
func (u UserIdentity) IsSession() bool { return strings.HasPrefix(string(u), sessionPrefix) }

// IsWeb сообщает, сгенерирован ли идентификатор в браузере (включая эфемерный).
func (u UserIdentity) IsWeb() bool { return strings.HasPrefix(string(u), webPrefix) }

// TelegramUser — аутентифицированный пользователь, которого сообщает хост Mini App.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
}

// DisplayName возвращает имя для приветствия.
func (u TelegramUser) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.Username != "" {
		return "@" + u.Username
	}
	return name
}

// Role определяет автора записи в чате.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Attachment представляет изображение, прикрепленное к сообщению.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size возвращает размер вложения в байтах.
func (a *Attachment) Size() int64 {
	if a == nil {
		return 0
	}
	return int64(len(a.Data))
}

// ChatEntry представляет одну запись локальной копии чата.
type ChatEntry struct {
	Role    Role
	Content string
	Image   *Attachment
	At      time.Time
	// Transient помечает служебные записи (например, встроенный индикатор набора).
	Transient bool
}

// HistoryRecord представляет запись истории в формате бэкенда.
type HistoryRecord struct {
	Timestamp float64 `json:"timestamp"`
	User      string  `json:"user"`
	Assistant string  `json:"assistant"`
	HasImage  bool    `json:"has_image"`
}

// Time переводит timestamp (секунды с дробной частью) во время.
func (r HistoryRecord) Time() time.Time {
	sec := int64(r.Timestamp)
	nsec := int64((r.Timestamp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// Entries разворачивает запись истории в пару user/bot.
func (r HistoryRecord) Entries() []ChatEntry {
	at := r.Time()
	entries := make([]ChatEntry, 0, 2)
	if r.User != "" || r.HasImage {
		entries = append(entries, ChatEntry{Role: RoleUser, Content: r.User, At: at})
	}
	if r.Assistant != "" {
		entries = append(entries, ChatEntry{Role: RoleBot, Content: r.Assistant, At: at})
	}
	return entries
}

// Settings содержит пользовательские настройки ассистента.
type Settings struct {
	UseGoogleSearch bool `json:"use_google_search"`
	UseURLContext   bool `json:"use_url_context"`
	UsePersona      bool `json:"use_persona"`
	StreamResponse  bool `json:"stream_response"`
}

// DefaultSettings повторяет значения по умолчанию бэкенда.
func DefaultSettings() Settings {
	return Settings{UseGoogleSearch: true, UseURLContext: true, UsePersona: true}
}

// ChatStatus описывает доступность ассистента.
type ChatStatus struct {
	Available        bool `json:"available"`
	KeysAvailable    int  `json:"keys_available"`
	TotalKeys        int  `json:"total_keys"`
	ProxiesAvailable int  `json:"proxies_available"`
	TotalProxies     int  `json:"total_proxies"`
	DirectConnection bool `json:"direct_connection"`
}

// Article представляет статью газеты.
type Article struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	Author        string `json:"author,omitempty"`
	Category      string `json:"category,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
	Views         int    `json:"views"`
}

// Event представляет событие календаря.
type Event struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	Description       string `json:"description,omitempty"`
	EventDate         string `json:"event_date"`
	EventTime         string `json:"event_time,omitempty"`
	Location          string `json:"location,omitempty"`
	Category          string `json:"category,omitempty"`
	IsRecurring       bool   `json:"is_recurring"`
	RecurrencePattern string `json:"recurrence_pattern,omitempty"`
}

// Feedback представляет обращение в редакцию.
type Feedback struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
	Message    string `json:"message"`
	Category   string `json:"category"`
}

// DefaultFeedbackCategory используется, если категория не выбрана.
const DefaultFeedbackCategory = "general"
