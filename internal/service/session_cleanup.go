// session_cleanup.go — периодическая очистка истёкших сессий PostgreSQL.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sessionsPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "transfer_portal_sessions_purged_total",
	Help: "Total number of expired sessions removed from the session store.",
})

// ExpiredSessionPurger — хранилище, умеющее удалять истёкшие сессии.
type ExpiredSessionPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionCleanupService — фоновая очистка истёкших сессий.
type SessionCleanupService struct {
	purger   ExpiredSessionPurger
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSessionCleanupService создаёт сервис очистки.
func NewSessionCleanupService(purger ExpiredSessionPurger, interval time.Duration, logger *slog.Logger) *SessionCleanupService {
	return &SessionCleanupService{
		purger:   purger,
		interval: interval,
		logger:   logger.With(slog.String("component", "session_cleanup")),
	}
}

// Start запускает фоновую горутину с периодической очисткой.
func (s *SessionCleanupService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info("Очистка истёкших сессий запущена",
			slog.String("interval", s.interval.String()),
		)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Очистка истёкших сессий остановлена")
				return
			case <-ticker.C:
				if _, err := s.CleanNow(ctx); err != nil {
					s.logger.Error("Ошибка очистки истёкших сессий",
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}()
}

// Stop останавливает фоновую горутину и ждёт завершения.
func (s *SessionCleanupService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// CleanNow удаляет истёкшие сессии немедленно.
func (s *SessionCleanupService) CleanNow(ctx context.Context) (int64, error) {
	deleted, err := s.purger.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	sessionsPurgedTotal.Add(float64(deleted))
	if deleted > 0 {
		s.logger.Info("Истёкшие сессии удалены", slog.Int64("deleted", deleted))
	}
	return deleted, nil
}
