// Точка входа Transfer Portal — портал переноса Google Drive → Cloud Storage.
// Загружает конфигурацию, поднимает хранилище сессий (память или PostgreSQL),
// получает OAuth client ID, создаёт клиентов Google Cloud, rclone API и Firestore,
// сервисный слой, API и UI handlers, запускает фоновые задачи
// (очистка сессий, topologymetrics) и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/drive-transfer-portal/internal/api/handlers"
	"github.com/bigkaa/drive-transfer-portal/internal/api/openapi"
	"github.com/bigkaa/drive-transfer-portal/internal/auth"
	"github.com/bigkaa/drive-transfer-portal/internal/config"
	"github.com/bigkaa/drive-transfer-portal/internal/database"
	"github.com/bigkaa/drive-transfer-portal/internal/gcp"
	"github.com/bigkaa/drive-transfer-portal/internal/rclone"
	"github.com/bigkaa/drive-transfer-portal/internal/repository"
	"github.com/bigkaa/drive-transfer-portal/internal/server"
	"github.com/bigkaa/drive-transfer-portal/internal/service"
	"github.com/bigkaa/drive-transfer-portal/internal/sessionstore"
	uihandlers "github.com/bigkaa/drive-transfer-portal/internal/ui/handlers"
	"github.com/bigkaa/drive-transfer-portal/internal/ui/i18n"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Transfer Portal запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("session_store", cfg.SessionStore),
	)

	if os.Getenv("TP_DEPHEALTH_GROUP") == "" {
		logger.Warn("TP_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}
	if cfg.SessionSecret == "" {
		logger.Warn("TP_SESSION_SECRET не задан, сессии не переживут рестарт")
	}

	ctx := context.Background()

	// 3. Хранилище сессий
	var (
		sessionStore   auth.SessionStore
		sessionChecker handlers.ReadinessChecker
		cleanupSvc     *service.SessionCleanupService
		pgDB           *sql.DB
	)
	switch cfg.SessionStore {
	case config.SessionStorePostgres:
		// 3.1 Применение миграций БД
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		// 3.2 Подключение к PostgreSQL (pgxpool)
		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		// 3.3 Адаптер pgxpool → *sql.DB для topologymetrics: проверка
		// идёт через тот же пул соединений
		pgDB = stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()

		pgStore := sessionstore.NewPostgresStore(pool)
		sessionStore = pgStore
		sessionChecker = database.NewReadinessChecker(pool)
		cleanupSvc = service.NewSessionCleanupService(pgStore, cfg.SessionCleanupInterval, logger)
	default:
		memStore := sessionstore.NewMemoryStore(cfg.SessionMaxEntries, cfg.SessionTTL)
		sessionStore = memStore
		sessionChecker = memStore
	}

	// 4. OAuth client ID: напрямую или из Secret Manager
	clientID := cfg.OAuthClientID
	if clientID == "" {
		secretName := gcp.SecretVersionName(cfg.GCPProjectID, cfg.OAuthClientIDSecret)
		clientID, err = gcp.AccessSecret(ctx, secretName)
		if err != nil {
			logger.Error("Ошибка чтения OAuth client ID из Secret Manager",
				slog.String("secret", secretName),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		logger.Info("OAuth client ID получен из Secret Manager", slog.String("secret", secretName))
	}

	// 5. Проверка ID token Google Sign-In
	verifier, err := auth.NewIDTokenVerifier(
		cfg.GoogleJWKSURL,
		clientID,
		cfg.GoogleIssuers,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания verifier ID token", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Verifier ID token инициализирован",
		slog.String("jwks_url", cfg.GoogleJWKSURL),
		slog.Any("issuers", cfg.GoogleIssuers),
	)

	// 6. Session Manager — session cookie (AES-256-GCM) + хранилище
	sessions, err := auth.NewSessionManager(cfg.SessionSecret, sessionStore, cfg.SessionTTL, cfg.CookieSecure, logger)
	if err != nil {
		logger.Error("Ошибка создания Session Manager", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. Клиент rclone API с ID token сервисного аккаунта
	tokens, err := rclone.NewIDTokenSource(ctx, cfg.RcloneAPIURL)
	if err != nil {
		logger.Error("Ошибка создания источника ID token для rclone API", slog.String("error", err.Error()))
		os.Exit(1)
	}
	rcloneClient := rclone.New(cfg.RcloneAPIURL, tokens, nil, logger)
	logger.Info("rclone API клиент создан", slog.String("url", cfg.RcloneAPIURL))

	// 8. Google Cloud: номера проектов и бакеты
	projects, err := gcp.NewProjectNumberResolver(ctx, cfg.ProjectCacheSize, cfg.ProjectCacheTTL, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента Resource Manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	buckets, err := gcp.NewBucketLister(ctx, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента Cloud Storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. Firestore — история заданий
	fsClient, err := repository.NewFirestoreClient(ctx, cfg.GCPProjectID, cfg.FirestoreDatabase)
	if err != nil {
		logger.Error("Ошибка подключения к Firestore", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer fsClient.Close()
	jobRepo := repository.NewJobHistoryRepository(fsClient, cfg.FirestoreCollection, logger)
	logger.Info("Firestore подключён",
		slog.String("database", cfg.FirestoreDatabase),
		slog.String("collection", cfg.FirestoreCollection),
	)

	// 10. Services
	submissionSvc := service.NewSubmissionService(rcloneClient, projects, logger)
	historySvc := service.NewHistoryService(jobRepo, logger)

	// 11. Health handler — readiness по всем зависимостям
	healthHandler := handlers.NewHealthHandler(
		handlers.NamedChecker{Name: "sessions", Checker: sessionChecker},
		handlers.NamedChecker{Name: "rclone_api", Checker: rcloneClient},
		handlers.NamedChecker{Name: "google_jwks", Checker: auth.NewJWKSReadinessChecker(cfg.GoogleJWKSURL, readinessTimeout)},
		handlers.NamedChecker{Name: "firestore", Checker: jobRepo},
	)

	// 12. API handler
	apiHandler := handlers.NewAPIHandler(handlers.Deps{
		Verifier:  verifier,
		Sessions:  sessions,
		Buckets:   buckets,
		Directory: rcloneClient,
		Submitter: submissionSvc,
		History:   historySvc,
		ClientID:  clientID,
	}, logger)

	validator, err := openapi.NewValidator(ctx, logger)
	if err != nil {
		logger.Error("Ошибка загрузки описания API", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 13. UI: переводы и страницы
	bundle := i18n.Init(logger)
	if err := i18n.LoadFromEmbedFS(bundle, logger); err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	pageHandler, err := uihandlers.NewPageHandler(bundle, sessions, historySvc, clientID, logger)
	if err != nil {
		logger.Error("Ошибка разбора шаблонов UI", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 14. Фоновые задачи
	if cleanupSvc != nil {
		cleanupSvc.Start(ctx)
	}

	// 14.1 topologymetrics — мониторинг зависимостей
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"transfer-portal",
		cfg.DephealthGroup,
		service.DephealthTargets{
			RcloneAPIURL: cfg.RcloneAPIURL,
			JWKSURL:      cfg.GoogleJWKSURL,
			DB:           pgDB,
			PostgresURL:  postgresURL(cfg),
		},
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 15. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, server.Components{
		API:                apiHandler,
		Health:             healthHandler,
		Pages:              pageHandler,
		Sessions:           sessions,
		Validator:          validator,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 16. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	if cleanupSvc != nil {
		cleanupSvc.Stop()
	}

	logger.Info("Transfer Portal остановлен")
}

// postgresURL возвращает URL PostgreSQL для лейблов topologymetrics
// (пустой для memory-хранилища).
func postgresURL(cfg *config.Config) string {
	if cfg.SessionStore != config.SessionStorePostgres {
		return ""
	}
	return cfg.DatabaseURL()
}

// readinessTimeout — таймаут одной проверки готовности зависимости.
const readinessTimeout = 3 * time.Second
