package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
	"github.com/bigkaa/drive-transfer-portal/internal/repository"
)

// Параметры пагинации истории.
const (
	DefaultPage     = 1
	DefaultJobLimit = 10
	MaxJobLimit     = 100
)

// JobHistoryStore — источник истории заданий.
type JobHistoryStore interface {
	List(ctx context.Context, q repository.JobQuery) (*repository.JobList, error)
	Count(ctx context.Context, userID string) (int64, error)
}

// HistoryQuery — запрос страницы истории.
type HistoryQuery struct {
	UserID string
	Page   int
	Limit  int
	// Cursor имеет приоритет над Page
	Cursor string
}

// HistoryService — постраничная история заданий пользователя.
type HistoryService struct {
	store  JobHistoryStore
	logger *slog.Logger
}

// NewHistoryService создаёт сервис истории.
func NewHistoryService(store JobHistoryStore, logger *slog.Logger) *HistoryService {
	return &HistoryService{
		store:  store,
		logger: logger.With(slog.String("component", "history_service")),
	}
}

// Jobs возвращает страницу истории. Page и Limit меньше 1 заменяются
// значениями по умолчанию, Limit ограничен MaxJobLimit.
func (s *HistoryService) Jobs(ctx context.Context, q HistoryQuery) (*model.JobPage, error) {
	if q.UserID == "" {
		return nil, fmt.Errorf("%w: пустой пользователь", ErrValidation)
	}
	page := q.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultJobLimit
	}
	limit = min(limit, MaxJobLimit)

	list, err := s.store.List(ctx, repository.JobQuery{
		UserID: q.UserID,
		Limit:  limit,
		Offset: (page - 1) * limit,
		Cursor: q.Cursor,
	})
	if err != nil {
		return nil, err
	}

	total, err := s.store.Count(ctx, q.UserID)
	if err != nil {
		return nil, err
	}

	// Устаревший курсор: страница выбрана с начала
	if list.Restarted {
		page = DefaultPage
	}

	result := &model.JobPage{
		Rows:        list.Rows,
		TotalRows:   int(total),
		CurrentPage: page,
		TotalPages:  int((total + int64(limit) - 1) / int64(limit)),
	}
	if result.Rows == nil {
		result.Rows = []model.JobRecord{}
	}
	if list.HasMore && len(result.Rows) > 0 {
		result.NextPageCursor = result.Rows[len(result.Rows)-1].ID
	}

	s.logger.Debug("История заданий",
		slog.String("user", q.UserID),
		slog.Int("page", page),
		slog.Int("limit", limit),
		slog.Int("rows", len(result.Rows)),
		slog.Int("total", result.TotalRows),
	)
	return result, nil
}
