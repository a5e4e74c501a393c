package i18n

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLoadFromEmbedFS_CatalogsHaveSameKeys(t *testing.T) {
	bundle := NewBundle(testLogger())
	if err := LoadFromEmbedFS(bundle, testLogger()); err != nil {
		t.Fatalf("LoadFromEmbedFS: %v", err)
	}

	en := bundle.catalogs["en"]
	ru := bundle.catalogs["ru"]
	if len(en) == 0 {
		t.Fatal("пустой каталог en")
	}
	for key := range en {
		if _, ok := ru[key]; !ok {
			t.Errorf("ключ %q отсутствует в ru", key)
		}
	}
	for key := range ru {
		if _, ok := en[key]; !ok {
			t.Errorf("ключ %q отсутствует в en", key)
		}
	}
}

func TestBundle_TranslateFallback(t *testing.T) {
	bundle := NewBundle(nil)
	_ = bundle.LoadMessages("en", []byte(`{"greeting":"Hello","only.en":"English only","count":"%d items"}`))
	_ = bundle.LoadMessages("ru", []byte(`{"greeting":"Привет","count":"%d шт."}`))

	tests := []struct {
		lang, key, expected string
	}{
		{"ru", "greeting", "Привет"},
		{"en", "greeting", "Hello"},
		{"ru", "only.en", "English only"},
		{"ru", "missing.key", "missing.key"},
		{"de", "greeting", "Hello"},
	}
	for _, tt := range tests {
		if got := bundle.Translate(tt.lang, tt.key); got != tt.expected {
			t.Errorf("Translate(%s, %s) = %q, ожидается %q", tt.lang, tt.key, got, tt.expected)
		}
	}

	if got := bundle.Translatef("ru", "count", 3); got != "3 шт." {
		t.Errorf("Translatef = %q", got)
	}

	catalog := bundle.Catalog("ru")
	if catalog["greeting"] != "Привет" || catalog["only.en"] != "English only" {
		t.Errorf("Catalog(ru) = %v", catalog)
	}
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		accept   string
		expected string
	}{
		{"ru-RU,ru;q=0.9,en;q=0.8", "ru"},
		{"en-US,en;q=0.9", "en"},
		{"de-DE", "en"},
		{"", "en"},
		{"не заголовок", "en"},
	}
	for _, tt := range tests {
		if got := MatchLanguage(tt.accept); got != tt.expected {
			t.Errorf("MatchLanguage(%q) = %q, ожидается %q", tt.accept, got, tt.expected)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name     string
		cookie   string
		accept   string
		expected string
	}{
		{"cookie имеет приоритет", "ru", "en-US", "ru"},
		{"неподдерживаемая cookie", "fr", "ru", "ru"},
		{"только Accept-Language", "", "ru", "ru"},
		{"по умолчанию", "", "", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: LangCookieName, Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}

			var got string
			Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = LangFromContext(r.Context())
			})).ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.expected {
				t.Errorf("язык = %q, ожидается %q", got, tt.expected)
			}
		})
	}
}
