// handler.go — основной обработчик API Transfer Portal.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/drive-transfer-portal/internal/api/errors"
	"github.com/bigkaa/drive-transfer-portal/internal/auth"
	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
	"github.com/bigkaa/drive-transfer-portal/internal/gcp"
	"github.com/bigkaa/drive-transfer-portal/internal/rclone"
	"github.com/bigkaa/drive-transfer-portal/internal/service"
)

// TokenVerifier — проверка ID token Google Sign-In.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// Sessions — управление сессиями браузера (auth.SessionManager).
type Sessions interface {
	Issue(ctx context.Context, w http.ResponseWriter, email string) (*model.Session, error)
	Current(r *http.Request) (*model.Session, error)
	Destroy(w http.ResponseWriter, r *http.Request) error
}

// BucketLister — список бакетов проекта.
type BucketLister interface {
	ListBuckets(ctx context.Context, projectID string) ([]string, error)
}

// DirectoryAPI — справочные вызовы внешнего API от имени пользователя.
type DirectoryAPI interface {
	ValidateGroup(ctx context.Context, user, groupEmail string) (*rclone.Group, error)
	ListSharedDrives(ctx context.Context, user string) ([]rclone.SharedDrive, error)
}

// Submitter — отправка задания переноса.
type Submitter interface {
	Submit(ctx context.Context, user string, req *model.TransferRequest) (*service.SubmissionResult, error)
}

// JobHistory — страница истории заданий.
type JobHistory interface {
	Jobs(ctx context.Context, q service.HistoryQuery) (*model.JobPage, error)
}

// Deps — зависимости APIHandler.
type Deps struct {
	Verifier  TokenVerifier
	Sessions  Sessions
	Buckets   BucketLister
	Directory DirectoryAPI
	Submitter Submitter
	History   JobHistory
	// ClientID — OAuth client ID для кнопки Google Sign-In
	ClientID string
}

// APIHandler — обработчик API Transfer Portal.
type APIHandler struct {
	verifier  TokenVerifier
	sessions  Sessions
	buckets   BucketLister
	directory DirectoryAPI
	submitter Submitter
	history   JobHistory
	clientID  string
	logger    *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(deps Deps, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		verifier:  deps.Verifier,
		sessions:  deps.Sessions,
		buckets:   deps.Buckets,
		directory: deps.Directory,
		submitter: deps.Submitter,
		history:   deps.History,
		clientID:  deps.ClientID,
		logger:    logger.With(slog.String("component", "api_handler")),
	}
}

// --- Вспомогательные функции ---

// envelope — конверт успешного ответа.
type envelope struct {
	Success bool    `json:"success"`
	Message *string `json:"message"`
	Data    any     `json:"data"`
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeSuccess — 200 {success: true, message, data}. Пустой message передаётся как null.
func writeSuccess(w http.ResponseWriter, message string, data any) {
	body := envelope{Success: true, Data: data}
	if message != "" {
		body.Message = &message
	}
	writeJSON(w, http.StatusOK, body)
}

// writeServiceError преобразует ошибку сервисного слоя в HTTP-ответ.
// Единственное место сопоставления ошибок и кодов ответа.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr     *model.ValidationError
		upstream *rclone.UpstreamError
		stepErr  *service.StepError
	)

	switch {
	case errors.As(err, &verr):
		apierrors.ValidationErrorWithDetails(w, "Некорректные параметры переноса", verr.Fields)
	case errors.Is(err, model.ErrValidation), errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, rclone.ErrGroupInvalid):
		// Внешний API ответил success=false: ошибка upstream, не валидация
		h.logger.Warn("Группа отклонена внешним API",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.UpstreamError(w, err.Error())
	case errors.As(err, &upstream):
		attrs := []any{
			slog.String("path", r.URL.Path),
			slog.String("operation", upstream.Op),
			slog.String("error", err.Error()),
		}
		if errors.As(err, &stepErr) {
			attrs = append(attrs, slog.String("step", string(stepErr.Step)))
		}
		h.logger.Error("Ошибка внешнего API", attrs...)
		apierrors.UpstreamError(w, upstream.Message)
	case errors.Is(err, rclone.ErrUpstream), errors.Is(err, gcp.ErrGCP):
		h.logger.Error("Ошибка внешнего API",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.UpstreamError(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
