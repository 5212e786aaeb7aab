package config

import "time"

// Default values for configuration.
const (
	DefaultConfigFile = "miniapp.yml"

	// API defaults
	DefaultAPIBaseURL = "http://localhost:8080"
	DefaultAPITimeout = 60 * time.Second

	// Storage defaults
	DefaultStorageDriver = "file"
	DefaultStoragePath   = ".miniapp/storage.json"

	// Chat defaults
	DefaultHistoryLimit = 10
	DefaultExportDir    = ".miniapp/exports"

	// Keyboard defaults
	DefaultKeyboardThreshold = 100
	DefaultKeyboardDebounce  = 150 * time.Millisecond
	DefaultOrientationSettle = 500 * time.Millisecond

	// Cache defaults
	DefaultCacheTTL = 5 * time.Minute

	// Retry defaults
	DefaultRetryBaseDelay   = 1 * time.Second
	DefaultRetryMaxAttempts = 3

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	// Dev server defaults
	DefaultDevServerHost = "127.0.0.1"
	DefaultDevServerPort = 8080
)

// DefaultTypingPhrases — фразы индикатора набора ответа.
var DefaultTypingPhrases = []string{
	"Шестерёнкин думает...",
	"Шестерёнкин крутит шестерёнки...",
	"Шестерёнкин листает подшивку...",
	"Шестерёнкин подбирает слова...",
}
