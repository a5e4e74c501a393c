package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/drive-transfer-portal/internal/api/handlers"
	"github.com/bigkaa/drive-transfer-portal/internal/api/openapi"
	"github.com/bigkaa/drive-transfer-portal/internal/auth"
	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
	"github.com/bigkaa/drive-transfer-portal/internal/rclone"
	"github.com/bigkaa/drive-transfer-portal/internal/service"
	"github.com/bigkaa/drive-transfer-portal/internal/sessionstore"
	uihandlers "github.com/bigkaa/drive-transfer-portal/internal/ui/handlers"
	"github.com/bigkaa/drive-transfer-portal/internal/ui/i18n"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// downstream считает вызовы всех зависимостей за шлюзом сессии.
type downstream struct {
	calls atomic.Int32
}

func (d *downstream) Verify(context.Context, string) (*auth.Identity, error) {
	d.calls.Add(1)
	return &auth.Identity{Email: "user@example.com"}, nil
}

func (d *downstream) ListBuckets(context.Context, string) ([]string, error) {
	d.calls.Add(1)
	return []string{"alpha"}, nil
}

func (d *downstream) ValidateGroup(_ context.Context, _, email string) (*rclone.Group, error) {
	d.calls.Add(1)
	return &rclone.Group{Email: email}, nil
}

func (d *downstream) ListSharedDrives(context.Context, string) ([]rclone.SharedDrive, error) {
	d.calls.Add(1)
	return []rclone.SharedDrive{}, nil
}

func (d *downstream) Submit(context.Context, string, *model.TransferRequest) (*service.SubmissionResult, error) {
	d.calls.Add(1)
	return &service.SubmissionResult{JobID: "job-1"}, nil
}

func (d *downstream) Jobs(context.Context, service.HistoryQuery) (*model.JobPage, error) {
	d.calls.Add(1)
	return &model.JobPage{Rows: []model.JobRecord{}, CurrentPage: 1}, nil
}

type testServer struct {
	handler  http.Handler
	sessions *auth.SessionManager
	deps     *downstream
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := testLogger()

	store := sessionstore.NewMemoryStore(100, time.Hour)
	sessions, err := auth.NewSessionManager("router-test-secret", store, 30*time.Minute, false, logger)
	require.NoError(t, err)

	deps := &downstream{}
	api := handlers.NewAPIHandler(handlers.Deps{
		Verifier:  deps,
		Sessions:  sessions,
		Buckets:   deps,
		Directory: deps,
		Submitter: deps,
		History:   deps,
		ClientID:  "client-123",
	}, logger)

	bundle := i18n.NewBundle(logger)
	require.NoError(t, i18n.LoadFromEmbedFS(bundle, logger))
	pages, err := uihandlers.NewPageHandler(bundle, sessions, deps, "client-123", logger)
	require.NoError(t, err)

	validator, err := openapi.NewValidator(context.Background(), logger)
	require.NoError(t, err)

	router := NewRouter(logger, Components{
		API:       api,
		Health:    handlers.NewHealthHandler(),
		Pages:     pages,
		Sessions:  sessions,
		Validator: validator,
	})
	return &testServer{handler: router, sessions: sessions, deps: deps}
}

// signedInCookie создаёт сессию и возвращает её cookie.
func (s *testServer) signedInCookie(t *testing.T) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	_, err := s.sessions.Issue(context.Background(), rec, "user@example.com")
	require.NoError(t, err)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func (s *testServer) do(method, target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestGatedRoutes_WithoutSession(t *testing.T) {
	srv := newTestServer(t)

	routes := []struct {
		method, target, body string
	}{
		{http.MethodGet, "/data/get-buckets?projectId=p", ""},
		{http.MethodGet, "/data/get-buckets?projectId=", ""},
		{http.MethodGet, "/data/get-group?groupEmail=team@example.com", ""},
		{http.MethodGet, "/data/get-shared-drives", ""},
		{http.MethodGet, "/data/get-jobs?page=1&limit=10", ""},
		{http.MethodPost, "/jobs/new", "drivetype=mydrive"},
		{http.MethodPost, "/auth/sign-out", ""},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.target, func(t *testing.T) {
			rec := srv.do(rt.method, rt.target, rt.body, nil)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "UNAUTHORIZED", body["code"])
			assert.Equal(t, "Forbidden", body["message"])
		})
	}
	assert.Zero(t, srv.deps.calls.Load(), "за шлюзом не должно быть вызовов")
}

func TestGatedRoutes_ForeignCookie(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(http.MethodGet, "/data/get-shared-drives", "", &http.Cookie{Name: auth.SessionCookieName, Value: "forged"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, srv.deps.calls.Load())
}

func TestGetBuckets_EmptyProjectIDThroughRouter(t *testing.T) {
	srv := newTestServer(t)
	cookie := srv.signedInCookie(t)

	for _, target := range []string{"/data/get-buckets?projectId=", "/data/get-buckets"} {
		rec := srv.do(http.MethodGet, target, "", cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), `"code":"VALIDATION_ERROR"`)
	}
	assert.Zero(t, srv.deps.calls.Load(), "lister не должен вызываться")

	rec := srv.do(http.MethodGet, "/data/get-buckets?projectId=target-project", "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), srv.deps.calls.Load())
}

func TestGetJobs_InvalidLimitThroughRouter(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(http.MethodGet, "/data/get-jobs?limit=abc", "", srv.signedInCookie(t))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"limit"`)
	assert.Zero(t, srv.deps.calls.Load())
}

func TestPages_RedirectWithoutSession(t *testing.T) {
	srv := newTestServer(t)

	for _, target := range []string{"/", "/history"} {
		rec := srv.do(http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusFound, rec.Code, target)
		assert.Equal(t, "/sign-in", rec.Header().Get("Location"))
	}

	rec := srv.do(http.MethodGet, "/sign-in", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, srv.deps.calls.Load())
}

func TestPages_WithSession(t *testing.T) {
	srv := newTestServer(t)
	cookie := srv.signedInCookie(t)

	rec := srv.do(http.MethodGet, "/history", "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), srv.deps.calls.Load())

	rec = srv.do(http.MethodGet, "/", "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user@example.com")
}

func TestPublicRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		target      string
		contentType string
	}{
		{"/health/live", "application/json"},
		{"/health/ready", "application/json"},
		{"/auth/client-id", "application/json"},
		{"/auth/session", "application/json"},
		{"/static/css/app.css", "text/css"},
		{"/static/js/app.js", "javascript"},
		{"/openapi.yaml", "application/yaml"},
	}
	for _, tt := range tests {
		rec := srv.do(http.MethodGet, tt.target, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, tt.target)
		assert.Contains(t, rec.Header().Get("Content-Type"), tt.contentType, tt.target)
	}
}

func TestSignInThroughRouter(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", strings.NewReader(`{"token":"id-token"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	// Полученная cookie открывает защищённые маршруты
	rec = srv.do(http.MethodGet, "/data/get-shared-drives", "", cookies[0])
	assert.Equal(t, http.StatusOK, rec.Code)
}
