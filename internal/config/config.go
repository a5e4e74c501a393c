// Пакет config — загрузка и валидация конфигурации Transfer Portal
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Допустимые бэкенды хранилища сессий.
const (
	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
)

// Config содержит все параметры конфигурации Transfer Portal.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Разрешённые CORS origins (пусто — CORS отключён)
	CORSAllowedOrigins []string

	// --- Внешний rclone API ---

	// Базовый URL rclone API (он же audience для ID token)
	RcloneAPIURL string

	// --- Google Cloud ---

	// ID проекта с Firestore и Secret Manager
	GCPProjectID string
	// Имя базы Firestore
	FirestoreDatabase string
	// Коллекция истории заданий
	FirestoreCollection string
	// TTL кеша номеров проектов
	ProjectCacheTTL time.Duration
	// Максимальный размер кеша номеров проектов
	ProjectCacheSize int

	// --- Google Sign-In ---

	// OAuth client ID (audience ID token). Может быть пустым, если задан секрет.
	OAuthClientID string
	// Имя секрета в Secret Manager с OAuth client ID
	OAuthClientIDSecret string
	// URL JWKS Google
	GoogleJWKSURL string
	// Допустимые issuer ID token
	GoogleIssuers []string
	// Интервал обновления JWKS
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- Сессии ---

	// Ключ шифрования session cookie (base64 32 байта или произвольная строка)
	SessionSecret string
	// Время жизни сессии
	SessionTTL time.Duration
	// Бэкенд хранилища сессий (memory, postgres)
	SessionStore string
	// Максимум сессий в memory-хранилище
	SessionMaxEntries int
	// Интервал очистки истёкших сессий в PostgreSQL
	SessionCleanupInterval time.Duration
	// Secure flag для cookie
	CookieSecure bool

	// --- PostgreSQL (только для TP_SESSION_STORE=postgres) ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- topologymetrics ---

	// Группа в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
//
//nolint:cyclop,funlen // линейная последовательность переменных
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// TP_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("TP_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("TP_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("TP_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("TP_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("TP_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("TP_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("TP_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.CORSAllowedOrigins = parseCSV(getEnvDefault("TP_CORS_ALLOWED_ORIGINS", ""))

	// --- Внешний rclone API ---

	cfg.RcloneAPIURL, err = getEnvRequired("TP_RCLONE_API_URL")
	if err != nil {
		return nil, err
	}
	cfg.RcloneAPIURL = strings.TrimRight(cfg.RcloneAPIURL, "/")

	// --- Google Cloud ---

	cfg.GCPProjectID, err = getEnvRequired("TP_GCP_PROJECT_ID")
	if err != nil {
		return nil, err
	}
	cfg.FirestoreDatabase = getEnvDefault("TP_FIRESTORE_DATABASE", "(default)")
	cfg.FirestoreCollection = getEnvDefault("TP_FIRESTORE_COLLECTION", "jobs")

	cfg.ProjectCacheTTL, err = getEnvDuration("TP_PROJECT_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("TP_PROJECT_CACHE_TTL: %w", err)
	}
	cfg.ProjectCacheSize, err = getEnvInt("TP_PROJECT_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("TP_PROJECT_CACHE_SIZE: %w", err)
	}
	if cfg.ProjectCacheSize < 1 {
		return nil, fmt.Errorf("TP_PROJECT_CACHE_SIZE: значение %d должно быть положительным", cfg.ProjectCacheSize)
	}

	// --- Google Sign-In ---

	// Client ID задаётся напрямую или через Secret Manager — одно из двух обязательно
	cfg.OAuthClientID = getEnvDefault("TP_OAUTH_CLIENT_ID", "")
	cfg.OAuthClientIDSecret = getEnvDefault("TP_OAUTH_CLIENT_ID_SECRET", "")
	if cfg.OAuthClientID == "" && cfg.OAuthClientIDSecret == "" {
		return nil, fmt.Errorf("TP_OAUTH_CLIENT_ID или TP_OAUTH_CLIENT_ID_SECRET: одна из переменных обязательна")
	}

	cfg.GoogleJWKSURL = getEnvDefault("TP_GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs")
	cfg.GoogleIssuers = parseCSV(getEnvDefault("TP_GOOGLE_ISSUERS", "accounts.google.com,https://accounts.google.com"))
	if len(cfg.GoogleIssuers) == 0 {
		return nil, fmt.Errorf("TP_GOOGLE_ISSUERS: список issuer не может быть пустым")
	}

	cfg.JWKSRefreshInterval, err = getEnvDuration("TP_JWKS_REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("TP_JWKS_REFRESH_INTERVAL: %w", err)
	}
	cfg.JWTLeeway, err = getEnvDuration("TP_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TP_JWT_LEEWAY: %w", err)
	}

	// --- Сессии ---

	cfg.SessionSecret = getEnvDefault("TP_SESSION_SECRET", "")
	cfg.SessionTTL, err = getEnvDuration("TP_SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("TP_SESSION_TTL: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("TP_SESSION_TTL: длительность должна быть положительной")
	}

	cfg.SessionStore = getEnvDefault("TP_SESSION_STORE", SessionStoreMemory)
	if cfg.SessionStore != SessionStoreMemory && cfg.SessionStore != SessionStorePostgres {
		return nil, fmt.Errorf("TP_SESSION_STORE: недопустимое значение %q, допустимые: memory, postgres", cfg.SessionStore)
	}

	cfg.SessionMaxEntries, err = getEnvInt("TP_SESSION_MAX_ENTRIES", 10000)
	if err != nil {
		return nil, fmt.Errorf("TP_SESSION_MAX_ENTRIES: %w", err)
	}
	if cfg.SessionMaxEntries < 1 {
		return nil, fmt.Errorf("TP_SESSION_MAX_ENTRIES: значение %d должно быть положительным", cfg.SessionMaxEntries)
	}

	cfg.SessionCleanupInterval, err = getEnvDuration("TP_SESSION_CLEANUP_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("TP_SESSION_CLEANUP_INTERVAL: %w", err)
	}
	if cfg.SessionCleanupInterval <= 0 {
		return nil, fmt.Errorf("TP_SESSION_CLEANUP_INTERVAL: значение %v должно быть положительным", cfg.SessionCleanupInterval)
	}

	cfg.CookieSecure, err = getEnvBool("TP_COOKIE_SECURE", false)
	if err != nil {
		return nil, fmt.Errorf("TP_COOKIE_SECURE: %w", err)
	}

	// --- PostgreSQL ---

	if cfg.SessionStore == SessionStorePostgres {
		if err := loadDatabase(cfg); err != nil {
			return nil, err
		}
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("TP_DEPHEALTH_GROUP", "transfer-portal")
	cfg.DephealthCheckInterval, err = getEnvDuration("TP_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TP_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("TP_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TP_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// loadDatabase читает параметры PostgreSQL. Вызывается только для
// postgres-хранилища сессий.
func loadDatabase(cfg *Config) error {
	var err error

	cfg.DBHost, err = getEnvRequired("TP_DB_HOST")
	if err != nil {
		return err
	}
	cfg.DBPort, err = getEnvInt("TP_DB_PORT", 5432)
	if err != nil {
		return fmt.Errorf("TP_DB_PORT: %w", err)
	}
	cfg.DBName, err = getEnvRequired("TP_DB_NAME")
	if err != nil {
		return err
	}
	cfg.DBUser, err = getEnvRequired("TP_DB_USER")
	if err != nil {
		return err
	}
	cfg.DBPassword, err = getEnvRequired("TP_DB_PASSWORD")
	if err != nil {
		return err
	}

	cfg.DBSSLMode = getEnvDefault("TP_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return fmt.Errorf("TP_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}
	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL (для golang-migrate и лейблов topologymetrics).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool принимает значения strconv.ParseBool (true, 1, false, 0 и т.д.).
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
	}
	return b, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
