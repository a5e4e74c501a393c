// Пакет auth — проверка Google Sign-In ID token и управление сессиями
// браузера (зашифрованный cookie с ID сессии + хранилище сессий).
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken — ID token не прошёл проверку.
var ErrInvalidToken = errors.New("невалидный ID token")

// Identity — личность пользователя из проверенного ID token.
type Identity struct {
	Subject string
	Email   string
	Name    string
	// HostedDomain — домен Google Workspace (claim hd), может быть пустым.
	HostedDomain string
}

// googleClaims — claims ID token Google Sign-In.
type googleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	HostedDomain  string `json:"hd,omitempty"`
}

// IDTokenVerifier проверяет подпись ID token по JWKS Google (RS256),
// issuer, audience (OAuth client ID) и срок действия.
type IDTokenVerifier struct {
	jwks     keyfunc.Keyfunc
	audience string
	issuers  []string
	leeway   time.Duration
	logger   *slog.Logger
}

// NewIDTokenVerifier создаёт verifier с JWKS, обновляемым в фоне.
// audience — OAuth client ID приложения.
func NewIDTokenVerifier(
	jwksURL string,
	audience string,
	issuers []string,
	refreshInterval time.Duration,
	leeway time.Duration,
	logger *slog.Logger,
) (*IDTokenVerifier, error) {
	// NoErrorReturnFirstHTTPReq — стартуем даже если JWKS пока недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           refreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return NewIDTokenVerifierWithKeyfunc(k, audience, issuers, leeway, logger), nil
}

// NewIDTokenVerifierWithKeyfunc создаёт verifier с готовой keyfunc.
// Используется в тестах для подстановки mock JWKS.
func NewIDTokenVerifierWithKeyfunc(
	kf keyfunc.Keyfunc,
	audience string,
	issuers []string,
	leeway time.Duration,
	logger *slog.Logger,
) *IDTokenVerifier {
	return &IDTokenVerifier{
		jwks:     kf,
		audience: audience,
		issuers:  issuers,
		leeway:   leeway,
		logger:   logger.With(slog.String("component", "id_token_verifier")),
	}
}

// Verify проверяет ID token и возвращает личность пользователя.
// Любая ошибка проверки оборачивает ErrInvalidToken.
func (v *IDTokenVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: пустой токен", ErrInvalidToken)
	}

	claims := &googleClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.jwks.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(v.audience),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		v.logger.Debug("ID token не прошёл проверку", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	// Google выпускает токены с двумя вариантами issuer, jwt.WithIssuer принимает один.
	if len(v.issuers) > 0 && !slices.Contains(v.issuers, claims.Issuer) {
		v.logger.Debug("ID token с чужим issuer", slog.String("issuer", claims.Issuer))
		return nil, fmt.Errorf("%w: issuer %q не разрешён", ErrInvalidToken, claims.Issuer)
	}

	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: отсутствует email", ErrInvalidToken)
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return nil, fmt.Errorf("%w: email %s не подтверждён", ErrInvalidToken, email)
	}

	return &Identity{
		Subject:      claims.Subject,
		Email:        email,
		Name:         claims.Name,
		HostedDomain: claims.HostedDomain,
	}, nil
}

// --- ReadinessChecker для JWKS ---

// JWKSReadinessChecker — проверка доступности JWKS Google.
type JWKSReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewJWKSReadinessChecker создаёт checker с таймаутом timeout.
func NewJWKSReadinessChecker(jwksURL string, timeout time.Duration) *JWKSReadinessChecker {
	return &JWKSReadinessChecker{
		jwksURL: jwksURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// CheckReady проверяет, что JWKS отдаёт хотя бы один ключ.
func (c *JWKSReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, c.jwksURL, http.NoBody)
	if err != nil {
		return "fail", "ошибка создания запроса: " + err.Error()
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "fail", fmt.Sprintf("JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "fail", fmt.Sprintf("JWKS вернул статус %d", resp.StatusCode)
	}

	var jwksResp struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return "degraded", fmt.Sprintf("JWKS: невалидный JSON: %v", err)
	}
	if len(jwksResp.Keys) == 0 {
		return "degraded", "JWKS: нет ключей"
	}
	return "ok", fmt.Sprintf("JWKS доступен, ключей: %d", len(jwksResp.Keys))
}
