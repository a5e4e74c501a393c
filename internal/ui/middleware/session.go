// Пакет middleware — HTTP middleware для страниц UI.
// session.go — шлюз сессии страниц: без входа redirect на /sign-in.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
)

// SignInPath — страница входа, на которую перенаправляются анонимные запросы.
const SignInPath = "/sign-in"

// contextKey — тип для ключей контекста UI (избегаем коллизий с API middleware).
type contextKey string

const (
	// ContextKeyUISession — сессия в контексте запроса страницы.
	ContextKeyUISession contextKey = "ui_session"
)

// SessionReader — чтение сессии из запроса (auth.SessionManager).
type SessionReader interface {
	Current(r *http.Request) (*model.Session, error)
}

// RequireSession пропускает запрос к странице только при действующей сессии.
// Иначе 302 на SignInPath; обработчик страницы не вызывается.
func RequireSession(sessions SessionReader, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "ui_session_gate"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := sessions.Current(r)
			if err != nil {
				logger.Error("Ошибка чтения сессии",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				http.Redirect(w, r, SignInPath, http.StatusFound)
				return
			}
			if !session.Authenticated() {
				logger.Debug("Нет сессии, redirect на вход",
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
				)
				http.Redirect(w, r, SignInPath, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUISession, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext извлекает сессию из контекста запроса.
// Возвращает nil, если запрос не прошёл через RequireSession.
func SessionFromContext(ctx context.Context) *model.Session {
	session, ok := ctx.Value(ContextKeyUISession).(*model.Session)
	if !ok {
		return nil
	}
	return session
}
