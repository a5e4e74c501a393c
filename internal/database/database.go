// Пакет database — PostgreSQL для хранилища сессий (TP_SESSION_STORE=postgres):
// пул pgxpool, миграции таблицы sessions и проверка её готовности.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/drive-transfer-portal/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Пул под хранилище сессий: короткие запросы по первичному ключу
// и периодическая очистка, много соединений не нужно.
const (
	sessionPoolMaxConns    = 4
	sessionPoolMinConns    = 1
	sessionPoolMaxIdleTime = 5 * time.Minute
	applicationName        = "transfer-portal-sessions"
)

// sessionPoolConfig разбирает DSN и настраивает пул хранилища сессий.
func sessionPoolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN хранилища сессий: %w", err)
	}
	poolCfg.MaxConns = sessionPoolMaxConns
	poolCfg.MinConns = sessionPoolMinConns
	poolCfg.MaxConnIdleTime = sessionPoolMaxIdleTime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	return poolCfg, nil
}

// Connect создаёт пул подключений хранилища сессий и проверяет его ping.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := sessionPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула хранилища сессий: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("хранилище сессий PostgreSQL недоступно: %w", err)
	}

	logger.With(slog.String("component", "session_db")).Info("Хранилище сессий PostgreSQL подключено",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
		slog.Int("max_conns", int(poolCfg.MaxConns)),
	)
	return pool, nil
}

// Migrate создаёт таблицу sessions миграциями из embedded FS (golang-migrate, pgx5).
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	// Создаём источник миграций из embedded FS
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	// Драйвер pgx/v5 golang-migrate регистрируется под схемой pgx5://
	dbURL := "pgx5" + strings.TrimPrefix(cfg.DatabaseURL(), "postgres")

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	// Применяем все миграции
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Миграции хранилища сессий применены",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)

	return nil
}

// sessionsProbe — чтение таблицы sessions: ping не заметит
// неприменённых миграций.
const sessionsProbe = "SELECT 1 FROM sessions LIMIT 1"

// ReadinessChecker — готовность хранилища сессий для /health/ready.
type ReadinessChecker struct {
	pool *pgxpool.Pool
}

// NewReadinessChecker создаёт проверку готовности хранилища сессий.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{pool: pool}
}

// CheckReady проверяет, что таблица sessions доступна на чтение.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := c.pool.Exec(ctx, sessionsProbe); err != nil {
		return "fail", fmt.Sprintf("хранилище сессий недоступно: %v", err)
	}
	return "ok", "таблица sessions доступна"
}
