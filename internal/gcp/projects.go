// Пакет gcp — обращения к Google Cloud API: номер проекта
// (Resource Manager v3), список бакетов (Cloud Storage JSON API v1)
// и OAuth client ID из Secret Manager.
package gcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/api/cloudresourcemanager/v3"
	"google.golang.org/api/option"
)

// ErrGCP — ошибка обращения к Google Cloud API.
var ErrGCP = errors.New("ошибка Google Cloud API")

// Prometheus-метрики кеша номеров проектов.
var (
	projectCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transfer_portal_project_cache_hits_total",
		Help: "Total number of project number cache hits.",
	})
	projectCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transfer_portal_project_cache_misses_total",
		Help: "Total number of project number cache misses.",
	})
)

// ProjectNumberResolver — получение номера проекта по его ID.
// Номера проектов неизменны, поэтому результаты кешируются в LRU с TTL.
type ProjectNumberResolver struct {
	projects *cloudresourcemanager.ProjectsService
	cache    *expirable.LRU[string, string]
	logger   *slog.Logger
}

// NewProjectNumberResolver создаёт resolver.
// opts — опции клиента Google API (в тестах — endpoint mock-сервера).
func NewProjectNumberResolver(
	ctx context.Context,
	cacheSize int,
	cacheTTL time.Duration,
	logger *slog.Logger,
	opts ...option.ClientOption,
) (*ProjectNumberResolver, error) {
	svc, err := cloudresourcemanager.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("создание клиента Resource Manager: %w", err)
	}
	return &ProjectNumberResolver{
		projects: svc.Projects,
		cache:    expirable.NewLRU[string, string](cacheSize, nil, cacheTTL),
		logger:   logger.With(slog.String("component", "project_resolver")),
	}, nil
}

// Resolve возвращает номер проекта (строкой, как его ожидает внешний API).
func (r *ProjectNumberResolver) Resolve(ctx context.Context, projectID string) (string, error) {
	projectID = strings.TrimSpace(projectID)
	if number, ok := r.cache.Get(projectID); ok {
		projectCacheHitsTotal.Inc()
		return number, nil
	}
	projectCacheMissesTotal.Inc()

	project, err := r.projects.Get("projects/" + projectID).Context(ctx).Do()
	if err != nil {
		r.logger.Error("Ошибка получения проекта",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("%w: проект %s: %w", ErrGCP, projectID, err)
	}

	// Name имеет вид projects/{number}
	number, found := strings.CutPrefix(project.Name, "projects/")
	if !found || number == "" {
		return "", fmt.Errorf("%w: неожиданное имя проекта %q", ErrGCP, project.Name)
	}

	r.cache.Add(projectID, number)
	r.logger.Debug("Номер проекта получен",
		slog.String("project_id", projectID),
		slog.String("project_number", number),
	)
	return number, nil
}
