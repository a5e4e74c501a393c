// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Transfer Portal мониторит:
//   - rclone API — HTTP checker к /healthcheck (critical)
//   - Google JWKS — HTTP checker (critical, без него невозможен вход)
//   - PostgreSQL — только при TP_SESSION_STORE=postgres (pool mode, critical)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthTargets — адреса отслеживаемых зависимостей.
type DephealthTargets struct {
	// RcloneAPIURL — базовый URL rclone API
	RcloneAPIURL string
	// JWKSURL — URL JWKS Google
	JWKSURL string
	// DB — пул PostgreSQL через stdlib.OpenDBFromPool (nil для memory-хранилища)
	DB *sql.DB
	// PostgresURL — URL PostgreSQL для лейблов
	PostgresURL string
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(
	serviceID string,
	group string,
	targets DephealthTargets,
	checkInterval time.Duration,
	logger *slog.Logger,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, targets, checkInterval, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	serviceID string,
	group string,
	targets DephealthTargets,
	checkInterval time.Duration,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, targets, checkInterval, logger,
		dephealth.WithRegisterer(registerer))
}

func newDephealthService(
	serviceID string,
	group string,
	targets DephealthTargets,
	checkInterval time.Duration,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	rcloneOpts := []dephealth.DependencyOption{
		dephealth.FromURL(targets.RcloneAPIURL),
		dephealth.WithHTTPHealthPath("/healthcheck"),
		dephealth.CheckInterval(checkInterval),
		dephealth.Critical(true),
	}

	jwksPath := "/"
	if parsed, err := url.Parse(targets.JWKSURL); err == nil && parsed.Path != "" {
		jwksPath = parsed.Path
	}
	jwksOpts := []dephealth.DependencyOption{
		dephealth.FromURL(targets.JWKSURL),
		dephealth.WithHTTPHealthPath(jwksPath),
		dephealth.CheckInterval(checkInterval),
		dephealth.Critical(true),
	}

	opts := make([]dephealth.Option, 0, 4+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		dephealth.HTTP("rclone-api", rcloneOpts...),
		dephealth.HTTP("google-jwks", jwksOpts...),
	)
	if targets.DB != nil {
		opts = append(opts, dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(targets.DB)),
			dephealth.FromURL(targets.PostgresURL),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		))
	}
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
