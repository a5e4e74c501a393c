// Пакет server — HTTP-сервер Transfer Portal с graceful shutdown.
// Без TLS — TLS termination на балансировщике.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bigkaa/drive-transfer-portal/internal/api/handlers"
	"github.com/bigkaa/drive-transfer-portal/internal/api/middleware"
	"github.com/bigkaa/drive-transfer-portal/internal/api/openapi"
	"github.com/bigkaa/drive-transfer-portal/internal/config"
	uihandlers "github.com/bigkaa/drive-transfer-portal/internal/ui/handlers"
	"github.com/bigkaa/drive-transfer-portal/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/drive-transfer-portal/internal/ui/middleware"
	"github.com/bigkaa/drive-transfer-portal/internal/ui/static"
)

// SessionReader — чтение сессии запроса (auth.SessionManager).
type SessionReader interface {
	middleware.SessionReader
	uimiddleware.SessionReader
}

// Components — обработчики и middleware, из которых собирается роутер.
type Components struct {
	API       *handlers.APIHandler
	Health    *handlers.HealthHandler
	Pages     *uihandlers.PageHandler
	Sessions  SessionReader
	Validator *openapi.Validator
	// CORSAllowedOrigins — пусто, CORS отключён
	CORSAllowedOrigins []string
}

// Server — HTTP-сервер Transfer Portal.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, c Components) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, c),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер API, страниц и служебных endpoints.
// Шлюз сессии стоит перед проверкой параметров: анонимный запрос
// получает 401, а не 400.
func NewRouter(logger *slog.Logger, c Components) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(chimw.Recoverer)

	if len(c.CORSAllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   c.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	apiGate := middleware.RequireSession(c.Sessions, logger)
	pageGate := uimiddleware.RequireSession(c.Sessions, logger)
	validate := func(next http.Handler) http.Handler { return next }
	if c.Validator != nil {
		validate = c.Validator.Middleware
	}

	// Health и metrics — без сессии
	router.Get("/health/live", c.Health.HealthLive)
	router.Get("/health/ready", c.Health.HealthReady)
	router.Get("/metrics", c.Health.GetMetrics)
	router.Get("/openapi.yaml", serveSpec)

	router.Route("/auth", func(r chi.Router) {
		r.With(validate).Post("/sign-in", c.API.SignIn)
		r.Get("/session", c.API.Session)
		r.Get("/client-id", c.API.ClientID)
		r.With(apiGate).Post("/sign-out", c.API.SignOut)
	})

	router.Group(func(r chi.Router) {
		r.Use(apiGate)
		r.Use(validate)

		r.Get("/data/get-buckets", c.API.GetBuckets)
		r.Get("/data/get-group", c.API.GetGroup)
		r.Get("/data/get-shared-drives", c.API.GetSharedDrives)
		r.Get("/data/get-jobs", c.API.GetJobs)
		r.Post("/jobs/new", c.API.NewJob)
	})

	// Страницы UI
	router.Group(func(r chi.Router) {
		r.Use(i18n.Middleware())

		r.Get("/sign-in", c.Pages.HandleSignIn)
		r.Post("/set-language", uihandlers.HandleSetLanguage)

		r.Group(func(r chi.Router) {
			r.Use(pageGate)
			r.Get("/", c.Pages.HandleTransfer)
			r.Get("/history", c.Pages.HandleHistory)
		})
	})

	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))

	return router
}

func serveSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openapi.Spec())
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
