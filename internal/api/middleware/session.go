// session.go — шлюз сессии для API: без действующей сессии 401.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/drive-transfer-portal/internal/api/errors"
	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
)

type contextKey string

// ContextKeySession — сессия запроса в контексте.
const ContextKeySession contextKey = "session"

// SessionReader — чтение сессии из запроса (auth.SessionManager).
type SessionReader interface {
	Current(r *http.Request) (*model.Session, error)
}

// RequireSession пропускает запрос дальше только при действующей сессии
// и кладёт её в контекст. Иначе 401 UNAUTHORIZED без вызова обработчика.
func RequireSession(sessions SessionReader, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "session_gate"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := sessions.Current(r)
			if err != nil {
				logger.Error("Ошибка чтения сессии",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				apierrors.InternalError(w, "Ошибка чтения сессии")
				return
			}
			if !session.Authenticated() {
				apierrors.Unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// WithSession кладёт сессию в контекст.
func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, ContextKeySession, s)
}

// SessionFromContext извлекает сессию из контекста. nil, если её нет.
func SessionFromContext(ctx context.Context) *model.Session {
	s, _ := ctx.Value(ContextKeySession).(*model.Session)
	return s
}
