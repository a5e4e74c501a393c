package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/storage/v1"
)

// BucketLister — список бакетов проекта через Cloud Storage JSON API.
type BucketLister struct {
	buckets *storage.BucketsService
	logger  *slog.Logger
}

// NewBucketLister создаёт клиент Cloud Storage с учётными данными приложения.
func NewBucketLister(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*BucketLister, error) {
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("создание клиента Cloud Storage: %w", err)
	}
	return &BucketLister{
		buckets: svc.Buckets,
		logger:  logger.With(slog.String("component", "bucket_lister")),
	}, nil
}

// ListBuckets возвращает имена всех бакетов проекта (все страницы).
func (l *BucketLister) ListBuckets(ctx context.Context, projectID string) ([]string, error) {
	projectID = strings.TrimSpace(projectID)
	names := []string{}

	err := l.buckets.List(projectID).
		Fields(googleapi.Field("items(name),nextPageToken")).
		Pages(ctx, func(page *storage.Buckets) error {
			for _, b := range page.Items {
				names = append(names, b.Name)
			}
			return nil
		})
	if err != nil {
		l.logger.Error("Ошибка получения списка бакетов",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: список бакетов %s: %w", ErrGCP, projectID, err)
	}

	return names, nil
}
