package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	defaultDatabaseName = "push-dispatcher"
	defaultFCMSendURL   = "https://fcm.googleapis.com"
	defaultTokenURL     = "https://oauth2.googleapis.com/token"
)

// Config holds the project config values
type Config struct {
	Env string

	URL          string
	DatabaseName string

	ServiceAccountJSON string
	ProjectID          string
	FCMSendURL         string
	TokenURL           string

	RequestTimeout  time.Duration
	SendConcurrency int
	RunLockTTL      time.Duration
	Schedule        string
	Port            string

	SendgridAPIKey string
	ReportEmail    string

	TelegramBotToken string
	TelegramChatID   string
}

// loggerOptions are applied to the global logger installed by New
var loggerOptions []zap.Option

// Error is returned when required configuration is missing
type Error struct {
	Missing []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", "))
}

// New sets up all config related services
func New() *Config {
	// a missing .env file is the normal case outside local development
	_ = godotenv.Load()

	env := getEnv("ENV", "production")
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger.WithOptions(loggerOptions...))
	if err != nil {
		zap.S().Warnw("unknown ENV, using the example logger", "env", env, "error", err)
	}

	return &Config{
		Env:                env,
		URL:                os.Getenv("DB_URI"),
		DatabaseName:       getEnv("DB_NAME", defaultDatabaseName),
		ServiceAccountJSON: os.Getenv("FCM_SERVICE_ACCOUNT_JSON"),
		ProjectID:          os.Getenv("FCM_PROJECT_ID"),
		FCMSendURL:         strings.TrimRight(getEnv("FCM_SEND_URL", defaultFCMSendURL), "/"),
		TokenURL:           getEnv("OAUTH_TOKEN_URL", defaultTokenURL),
		RequestTimeout:     getEnvAsDuration("REQUEST_TIMEOUT", 15*time.Second),
		SendConcurrency:    getEnvAsInt("SEND_CONCURRENCY", 8),
		RunLockTTL:         getEnvAsDuration("RUN_LOCK_TTL", 10*time.Minute),
		Schedule:           os.Getenv("RUN_SCHEDULE"),
		Port:               getEnv("PORT", "8080"),
		SendgridAPIKey:     os.Getenv("SENDGRID_API_KEY"),
		ReportEmail:        os.Getenv("REPORT_EMAIL"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:     os.Getenv("TELEGRAM_CHAT_ID"),
	}
}

// Validate checks the configuration a dispatch run cannot start without.
// FCM_PROJECT_ID is deliberately not required: without it every notification
// of the run is marked failed instead.
func (c *Config) Validate() error {
	var missing []string
	if c.ServiceAccountJSON == "" {
		missing = append(missing, "FCM_SERVICE_ACCOUNT_JSON")
	}
	if c.URL == "" {
		missing = append(missing, "DB_URI")
	}
	if len(missing) > 0 {
		return &Error{Missing: missing}
	}
	return nil
}

// ValidateHeartbeat checks the configuration needed to send the heartbeat ping
func (c *Config) ValidateHeartbeat() error {
	var missing []string
	if c.TelegramBotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.TelegramChatID == "" {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}
	if len(missing) > 0 {
		return &Error{Missing: missing}
	}
	return nil
}

// ReportsEnabled reports whether run report emails can be sent
func (c *Config) ReportsEnabled() bool {
	return c.SendgridAPIKey != "" && c.ReportEmail != ""
}

func getEnv(key, def string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return def
	}
	return value
}

func getEnvAsInt(key string, def int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return def
	}
	i, err := strconv.Atoi(value)
	if err != nil || i <= 0 {
		zap.S().Warnw("invalid int in environment, using default", "key", key, "value", value, "default", def)
		return def
	}
	return i
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		zap.S().Warnw("invalid duration in environment, using default", "key", key, "value", value, "default", def)
		return def
	}
	return d
}
