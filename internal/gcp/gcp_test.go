package gcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/api/option"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockGoogleAPI поднимает mock-сервер и возвращает опции клиента Google API для него.
func mockGoogleAPI(t *testing.T, basePath string, handler http.HandlerFunc) []option.ClientOption {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return []option.ClientOption{
		option.WithEndpoint(server.URL + basePath),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestProjectNumberResolver_Resolve(t *testing.T) {
	var calls atomic.Int32
	opts := mockGoogleAPI(t, "/", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v3/projects/target-project" {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": 404, "message": "not found"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"name":      "projects/123456789",
			"projectId": "target-project",
		})
	})

	resolver, err := NewProjectNumberResolver(context.Background(), 16, time.Minute, testLogger(), opts...)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		number, err := resolver.Resolve(context.Background(), "target-project")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if number != "123456789" {
			t.Errorf("номер проекта = %q, ожидается 123456789", number)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("ожидался 1 запрос к API (остальные из кеша), выполнено %d", calls.Load())
	}
}

func TestProjectNumberResolver_NotFound(t *testing.T) {
	opts := mockGoogleAPI(t, "/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": map[string]any{"code": 403, "message": "permission denied"}})
	})

	resolver, err := NewProjectNumberResolver(context.Background(), 16, time.Minute, testLogger(), opts...)
	if err != nil {
		t.Fatal(err)
	}

	_, err = resolver.Resolve(context.Background(), "missing")
	if !errors.Is(err, ErrGCP) {
		t.Errorf("ожидалась ErrGCP, получено %v", err)
	}
}

func TestBucketLister_ListBuckets_AllPages(t *testing.T) {
	opts := mockGoogleAPI(t, "/storage/v1/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/b" {
			t.Errorf("неожиданный путь %s", r.URL.Path)
		}
		if r.URL.Query().Get("project") != "target-project" {
			t.Errorf("project = %q", r.URL.Query().Get("project"))
		}
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, http.StatusOK, map[string]any{
				"items":         []map[string]any{{"name": "alpha"}, {"name": "beta"}},
				"nextPageToken": "page-2",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{{"name": "gamma"}}})
	})

	lister, err := NewBucketLister(context.Background(), testLogger(), opts...)
	if err != nil {
		t.Fatal(err)
	}

	names, err := lister.ListBuckets(context.Background(), " target-project ")
	if err != nil {
		t.Fatalf("ListBuckets: %v", err)
	}
	expected := []string{"alpha", "beta", "gamma"}
	if len(names) != len(expected) {
		t.Fatalf("получено %v, ожидается %v", names, expected)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("names[%d] = %q, ожидается %q", i, names[i], expected[i])
		}
	}
}

func TestBucketLister_EmptyProject(t *testing.T) {
	opts := mockGoogleAPI(t, "/storage/v1/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	lister, err := NewBucketLister(context.Background(), testLogger(), opts...)
	if err != nil {
		t.Fatal(err)
	}

	names, err := lister.ListBuckets(context.Background(), "empty-project")
	if err != nil {
		t.Fatalf("ListBuckets: %v", err)
	}
	if names == nil || len(names) != 0 {
		t.Errorf("ожидался пустой срез (не nil), получено %#v", names)
	}
}

func TestAccessSecret(t *testing.T) {
	name := SecretVersionName("portal-project", "oauth-client-id")
	if name != "projects/portal-project/secrets/oauth-client-id/versions/latest" {
		t.Fatalf("SecretVersionName = %q", name)
	}

	opts := mockGoogleAPI(t, "/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/"+name+":access" {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": 404, "message": "no secret"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"name": name,
			"payload": map[string]any{
				"data": base64.StdEncoding.EncodeToString([]byte("client-123.apps.googleusercontent.com\n")),
			},
		})
	})

	value, err := AccessSecret(context.Background(), name, opts...)
	if err != nil {
		t.Fatalf("AccessSecret: %v", err)
	}
	if value != "client-123.apps.googleusercontent.com" {
		t.Errorf("значение секрета = %q", value)
	}

	if _, err := AccessSecret(context.Background(), "projects/p/secrets/none/versions/latest", opts...); !errors.Is(err, ErrGCP) {
		t.Errorf("ожидалась ErrGCP для отсутствующего секрета, получено %v", err)
	}
}
