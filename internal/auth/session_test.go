package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
	"github.com/bigkaa/drive-transfer-portal/internal/sessionstore"
)

// failingStore — хранилище, которое всегда возвращает ошибку.
type failingStore struct{}

func (failingStore) Save(context.Context, *model.Session) error { return errors.New("db down") }
func (failingStore) Load(context.Context, string) (*model.Session, error) {
	return nil, errors.New("db down")
}
func (failingStore) Delete(context.Context, string) error { return errors.New("db down") }

func newTestManager(t *testing.T, key string) (*SessionManager, *sessionstore.MemoryStore) {
	t.Helper()
	store := sessionstore.NewMemoryStore(100, time.Hour)
	sm, err := NewSessionManager(key, store, 30*time.Minute, true, testLogger())
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}
	return sm, store
}

// requestWithCookies переносит cookie из ответа в новый запрос.
func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSessionManager_IssueAndCurrent(t *testing.T) {
	sm, store := newTestManager(t, "")

	rec := httptest.NewRecorder()
	issued, err := sm.Issue(context.Background(), rec, "user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("в хранилище %d сессий, ожидается 1", store.Len())
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("ожидался 1 cookie, получено %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookieName || !c.HttpOnly || !c.Secure || c.Path != "/" {
		t.Errorf("неожиданные атрибуты cookie: %+v", c)
	}
	if c.MaxAge != 1800 {
		t.Errorf("MaxAge = %d, ожидается 1800", c.MaxAge)
	}
	if c.Value == issued.ID {
		t.Error("ID сессии не должен храниться в cookie открытым текстом")
	}

	current, err := sm.Current(requestWithCookies(rec))
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current == nil || current.Email != "user@example.com" || current.ID != issued.ID {
		t.Errorf("Current вернул %+v", current)
	}
}

func TestSessionManager_CurrentWithoutCookie(t *testing.T) {
	sm, _ := newTestManager(t, "")

	session, err := sm.Current(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || session != nil {
		t.Errorf("ожидалось nil, nil; получено %+v, %v", session, err)
	}
}

func TestSessionManager_ForeignKey(t *testing.T) {
	issuer, _ := newTestManager(t, "key-one")
	reader, _ := newTestManager(t, "key-two")

	rec := httptest.NewRecorder()
	if _, err := issuer.Issue(context.Background(), rec, "user@example.com"); err != nil {
		t.Fatal(err)
	}

	session, err := reader.Current(requestWithCookies(rec))
	if err != nil || session != nil {
		t.Errorf("cookie с чужим ключом должен игнорироваться: %+v, %v", session, err)
	}
}

func TestSessionManager_TamperedCookie(t *testing.T) {
	sm, _ := newTestManager(t, "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "bm90LWEtc2Vzc2lvbg=="})

	session, err := sm.Current(req)
	if err != nil || session != nil {
		t.Errorf("повреждённый cookie должен игнорироваться: %+v, %v", session, err)
	}
	if _, err := sm.open("###"); !errors.Is(err, ErrInvalidCookie) {
		t.Errorf("ожидалась ErrInvalidCookie, получено %v", err)
	}
}

func TestSessionManager_Expired(t *testing.T) {
	sm, store := newTestManager(t, "")

	rec := httptest.NewRecorder()
	if _, err := sm.Issue(context.Background(), rec, "user@example.com"); err != nil {
		t.Fatal(err)
	}

	sm.now = func() time.Time { return time.Now().Add(time.Hour) }

	session, err := sm.Current(requestWithCookies(rec))
	if err != nil || session != nil {
		t.Errorf("истёкшая сессия должна игнорироваться: %+v, %v", session, err)
	}
	if store.Len() != 0 {
		t.Errorf("истёкшая сессия должна удаляться из хранилища, осталось %d", store.Len())
	}
}

func TestSessionManager_Destroy(t *testing.T) {
	sm, store := newTestManager(t, "")

	rec := httptest.NewRecorder()
	if _, err := sm.Issue(context.Background(), rec, "user@example.com"); err != nil {
		t.Fatal(err)
	}

	out := httptest.NewRecorder()
	if err := sm.Destroy(out, requestWithCookies(rec)); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("сессия не удалена из хранилища")
	}
	cleared := out.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Errorf("cookie должен очищаться: %+v", cleared)
	}

	// Без cookie — только очистка cookie
	out = httptest.NewRecorder()
	if err := sm.Destroy(out, httptest.NewRequest(http.MethodPost, "/", nil)); err != nil {
		t.Errorf("Destroy без cookie: %v", err)
	}
	if len(out.Result().Cookies()) != 1 {
		t.Error("cookie должен очищаться и без активной сессии")
	}
}

func TestSessionManager_StoreFailure(t *testing.T) {
	sm, err := NewSessionManager("", failingStore{}, time.Minute, false, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	if _, err := sm.Issue(context.Background(), rec, "user@example.com"); err == nil {
		t.Error("ожидалась ошибка сохранения")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("cookie не должен устанавливаться при ошибке хранилища")
	}

	sealed, err := sm.seal("some-id")
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sealed})
	if _, err := sm.Current(req); err == nil {
		t.Error("ожидалась ошибка загрузки сессии")
	}
}
