package auth

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
	"github.com/bigkaa/drive-transfer-portal/internal/sessionstore"
)

// SessionCookieName — имя cookie с зашифрованным ID сессии.
const SessionCookieName = "tp_session"

// ErrInvalidCookie — cookie сессии повреждён или подписан другим ключом.
var ErrInvalidCookie = errors.New("невалидный cookie сессии")

// SessionStore — хранилище сессий (memory или PostgreSQL).
type SessionStore interface {
	Save(ctx context.Context, s *model.Session) error
	Load(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
}

// SessionManager выдаёт, читает и уничтожает сессии браузера.
// В cookie хранится только ID сессии, зашифрованный AES-256-GCM.
type SessionManager struct {
	gcm    cipher.AEAD
	store  SessionStore
	ttl    time.Duration
	secure bool
	now    func() time.Time
	logger *slog.Logger
}

// NewSessionManager создаёт менеджер сессий.
// key — base64 32-байтовый ключ или произвольная строка (хешируется SHA-256).
// Если key пустой — генерируется случайный ключ (сессии не переживают рестарт).
func NewSessionManager(key string, store SessionStore, ttl time.Duration, secure bool, logger *slog.Logger) (*SessionManager, error) {
	var keyBytes []byte
	if key == "" {
		keyBytes = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, keyBytes); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа сессии: %w", err)
		}
	} else {
		var err error
		keyBytes, err = base64.StdEncoding.DecodeString(key)
		if err != nil || len(keyBytes) != 32 {
			h := sha256.Sum256([]byte(key))
			keyBytes = h[:]
		}
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	return &SessionManager{
		gcm:    gcm,
		store:  store,
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
		logger: logger.With(slog.String("component", "session_manager")),
	}, nil
}

// Issue создаёт сессию для email и устанавливает cookie.
func (sm *SessionManager) Issue(ctx context.Context, w http.ResponseWriter, email string) (*model.Session, error) {
	now := sm.now()
	session := &model.Session{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(sm.ttl),
	}
	if err := sm.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("сохранение сессии: %w", err)
	}

	sealed, err := sm.seal(session.ID)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sealed,
		Path:     "/",
		MaxAge:   int(sm.ttl.Seconds()),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})

	sm.logger.Info("Сессия создана", slog.String("email", email))
	return session, nil
}

// Current возвращает сессию запроса.
// Возвращает nil, nil если cookie нет, он повреждён или сессия истекла.
// Ошибка возвращается только при сбое хранилища.
func (sm *SessionManager) Current(r *http.Request) (*model.Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, nil
	}

	id, err := sm.open(cookie.Value)
	if err != nil {
		sm.logger.Debug("Cookie сессии отклонён", slog.String("error", err.Error()))
		return nil, nil
	}

	session, err := sm.store.Load(r.Context(), id)
	if errors.Is(err, sessionstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("загрузка сессии: %w", err)
	}

	if session.Expired(sm.now()) {
		if err := sm.store.Delete(r.Context(), id); err != nil {
			sm.logger.Warn("Ошибка удаления истёкшей сессии", slog.String("error", err.Error()))
		}
		return nil, nil
	}
	return session, nil
}

// Destroy удаляет сессию из хранилища и очищает cookie.
func (sm *SessionManager) Destroy(w http.ResponseWriter, r *http.Request) error {
	defer sm.clearCookie(w)

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil
	}
	id, err := sm.open(cookie.Value)
	if err != nil {
		return nil
	}
	if err := sm.store.Delete(r.Context(), id); err != nil && !errors.Is(err, sessionstore.ErrNotFound) {
		return fmt.Errorf("удаление сессии: %w", err)
	}
	return nil
}

func (sm *SessionManager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// seal шифрует ID сессии (nonce prepended к ciphertext) в base64url.
func (sm *SessionManager) seal(id string) (string, error) {
	nonce := make([]byte, sm.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}
	ciphertext := sm.gcm.Seal(nonce, nonce, []byte(id), nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func (sm *SessionManager) open(sealed string) (string, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCookie, err)
	}
	nonceSize := sm.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("%w: данные слишком короткие", ErrInvalidCookie)
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := sm.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCookie, err)
	}
	return string(plaintext), nil
}
