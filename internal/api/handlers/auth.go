// auth.go — обработчики /auth: вход через Google Sign-In, выход,
// состояние сессии и client ID для кнопки входа.
package handlers

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/drive-transfer-portal/internal/api/errors"
	"github.com/bigkaa/drive-transfer-portal/internal/api/middleware"
)

// Максимальный размер тела запроса входа.
const maxSignInBody = 64 << 10

// signInRequest — тело POST /auth/sign-in.
type signInRequest struct {
	Token string `json:"token"`
}

// sessionData — данные ответа о сессии.
type sessionData struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
}

// SignIn — POST /auth/sign-in.
// Принимает ID token в JSON {token} или в поле формы credential
// (redirect-режим кнопки Google Sign-In).
func (h *APIHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSignInBody)

	token, err := readSignInToken(r)
	if err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}
	if token == "" {
		apierrors.ValidationError(w, "Не передан ID token")
		return
	}

	identity, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		h.logger.Warn("Отклонён ID token",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		apierrors.WriteError(w, http.StatusUnauthorized, apierrors.CodeUnauthorized, "Недействительный ID token")
		return
	}

	session, err := h.sessions.Issue(r.Context(), w, identity.Email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.Info("Пользователь вошёл",
		slog.String("email", session.Email),
		slog.String("hd", identity.HostedDomain),
	)
	writeSuccess(w, "", sessionData{Authenticated: true, Email: session.Email})
}

// SignOut — POST /auth/sign-out (за шлюзом сессии).
func (h *APIHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(w, r); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if s := middleware.SessionFromContext(r.Context()); s != nil {
		h.logger.Info("Пользователь вышел", slog.String("email", s.Email))
	}
	writeSuccess(w, "", sessionData{})
}

// Session — GET /auth/session. success совпадает с признаком входа.
func (h *APIHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Current(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	data := sessionData{Authenticated: session.Authenticated()}
	if data.Authenticated {
		data.Email = session.Email
	}
	writeJSON(w, http.StatusOK, envelope{Success: data.Authenticated, Data: data})
}

// ClientID — GET /auth/client-id.
func (h *APIHandler) ClientID(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, "", map[string]string{"clientId": h.clientID})
}

func readSignInToken(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			return "", err
		}
		return strings.TrimSpace(r.PostFormValue("credential")), nil
	}

	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", err
	}
	return strings.TrimSpace(req.Token), nil
}
