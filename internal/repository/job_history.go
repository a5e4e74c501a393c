package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
)

// Поля документа задания в Firestore.
const (
	fieldUserID     = "user_id"
	fieldJobStarted = "job_started"
)

// jobDocument — документ истории заданий, который пишет внешний API.
type jobDocument struct {
	UserID       string     `firestore:"user_id"`
	JobType      string     `firestore:"job_type"`
	SrcName      string     `firestore:"src_name"`
	DstName      string     `firestore:"dst_name"`
	Status       string     `firestore:"status"`
	JobStarted   *time.Time `firestore:"job_started"`
	JobCompleted *time.Time `firestore:"job_completed"`
}

// JobQuery — параметры выборки страницы истории.
type JobQuery struct {
	UserID string
	Limit  int
	// Offset используется, только если Cursor пуст.
	Offset int
	// Cursor — ID документа, после которого начинается страница.
	Cursor string
}

// JobList — страница документов.
type JobList struct {
	Rows []model.JobRecord
	// HasMore — за страницей есть ещё документы.
	HasMore bool
	// Restarted — курсор не найден, страница выбрана с начала.
	Restarted bool
}

// JobHistoryRepository — чтение истории заданий из коллекции Firestore.
type JobHistoryRepository struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

// NewFirestoreClient создаёт клиент Firestore для базы databaseID.
// При заданной FIRESTORE_EMULATOR_HOST клиент подключается к эмулятору.
func NewFirestoreClient(ctx context.Context, projectID, databaseID string, opts ...option.ClientOption) (*firestore.Client, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("создание клиента Firestore: %w", err)
	}
	return client, nil
}

// NewJobHistoryRepository создаёт репозиторий истории заданий.
func NewJobHistoryRepository(client *firestore.Client, collection string, logger *slog.Logger) *JobHistoryRepository {
	return &JobHistoryRepository{
		client:     client,
		collection: collection,
		logger:     logger.With(slog.String("component", "job_history_repo")),
	}
}

// userQuery — задания пользователя, новые первыми.
func (r *JobHistoryRepository) userQuery(userID string) firestore.Query {
	return r.client.Collection(r.collection).
		Where(fieldUserID, "==", userID).
		OrderBy(fieldJobStarted, firestore.Desc)
}

// List возвращает страницу заданий пользователя.
// Отсутствующий (или чужой) курсор не ошибка: пишется Warn и
// выборка начинается с первого документа, Offset игнорируется.
func (r *JobHistoryRepository) List(ctx context.Context, q JobQuery) (*JobList, error) {
	query := r.userQuery(q.UserID)

	cursor, err := r.cursorSnapshot(ctx, q.UserID, q.Cursor)
	if err != nil {
		return nil, err
	}
	restarted := q.Cursor != "" && cursor == nil
	switch {
	case cursor != nil:
		query = query.StartAfter(cursor)
	case !restarted && q.Offset > 0:
		query = query.Offset(q.Offset)
	}

	// Лишний документ показывает, есть ли следующая страница
	docs, err := query.Limit(q.Limit + 1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения истории заданий: %w", err)
	}

	result := &JobList{
		Rows:      make([]model.JobRecord, 0, min(len(docs), q.Limit)),
		Restarted: restarted,
	}
	if len(docs) > q.Limit {
		result.HasMore = true
		docs = docs[:q.Limit]
	}

	for _, doc := range docs {
		var d jobDocument
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("ошибка разбора задания %s: %w", doc.Ref.ID, err)
		}
		result.Rows = append(result.Rows, model.JobRecord{
			ID:           doc.Ref.ID,
			UserID:       d.UserID,
			JobType:      d.JobType,
			SrcName:      d.SrcName,
			DstName:      d.DstName,
			Status:       model.NormalizeJobStatus(d.Status),
			JobStarted:   d.JobStarted,
			JobCompleted: d.JobCompleted,
		})
	}
	return result, nil
}

// cursorSnapshot загружает документ-курсор. Возвращает nil, если
// курсор пуст, не найден или принадлежит другому пользователю.
func (r *JobHistoryRepository) cursorSnapshot(ctx context.Context, userID, cursor string) (*firestore.DocumentSnapshot, error) {
	if cursor == "" {
		return nil, nil
	}

	snap, err := r.client.Collection(r.collection).Doc(cursor).Get(ctx)
	if grpcstatus.Code(err) == codes.NotFound {
		r.logger.Warn("Документ-курсор не найден, выборка с начала",
			slog.String("cursor", cursor),
			slog.String("user_id", userID),
		)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения курсора %s: %w", cursor, err)
	}

	owner, _ := snap.DataAt(fieldUserID)
	if owner != userID {
		r.logger.Warn("Документ-курсор принадлежит другому пользователю, выборка с начала",
			slog.String("cursor", cursor),
			slog.String("user_id", userID),
		)
		return nil, nil
	}
	return snap, nil
}

// Count возвращает общее число заданий пользователя (aggregation query).
func (r *JobHistoryRepository) Count(ctx context.Context, userID string) (int64, error) {
	q := r.client.Collection(r.collection).Where(fieldUserID, "==", userID)
	res, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта заданий: %w", err)
	}

	v, ok := res["all"]
	if !ok {
		return 0, fmt.Errorf("ошибка подсчёта заданий: нет результата агрегации")
	}
	pv, ok := v.(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("ошибка подсчёта заданий: неожиданный тип %T", v)
	}
	return pv.GetIntegerValue(), nil
}

// CheckReady проверяет доступность Firestore пробным чтением одного документа.
func (r *JobHistoryRepository) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := r.client.Collection(r.collection).Limit(1).Documents(ctx).GetAll(); err != nil {
		return "fail", fmt.Sprintf("Firestore недоступен: %v", err)
	}
	return "ok", "коллекция " + r.collection + " доступна"
}
