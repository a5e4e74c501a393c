// submission.go — отправка задания переноса Drive → GCS.
//
// Четыре шага строго по порядку:
//  1. конфигурация источника (Drive)
//  2. номер проекта + конфигурация назначения (GCS)
//  3. конфигурация задания
//  4. запуск задания
//
// Первая ошибка прерывает отправку. Отката нет: созданные конфигурации
// остаются во внешнем API и пишутся в лог как осиротевшие.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
	"github.com/bigkaa/drive-transfer-portal/internal/rclone"
)

var submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "transfer_portal_submissions_total",
	Help: "Total number of transfer submissions by result (ok or failed step).",
}, []string{"result"})

// TransferAPI — операции внешнего API, нужные для отправки.
type TransferAPI interface {
	CreateDriveConfig(ctx context.Context, user string, cfg rclone.DriveConfig) (string, error)
	CreateGCSConfig(ctx context.Context, user string, cfg rclone.GCSConfig) (string, error)
	CreateJobConfig(ctx context.Context, user string, cfg rclone.JobConfig) (string, error)
	StartJob(ctx context.Context, user, jobID string) (*rclone.StartedJob, error)
}

// ProjectNumberResolver — номер проекта GCP по его ID.
type ProjectNumberResolver interface {
	Resolve(ctx context.Context, projectID string) (string, error)
}

// SubmissionResult — результат успешной отправки.
type SubmissionResult struct {
	JobID               string `json:"job_id"`
	WorkflowURL         string `json:"workflow_url"`
	SourceConfigID      string `json:"src_config_id"`
	DestinationConfigID string `json:"dst_config_id"`
}

// SubmissionService — отправка заданий переноса.
type SubmissionService struct {
	api      TransferAPI
	projects ProjectNumberResolver
	logger   *slog.Logger
}

// NewSubmissionService создаёт сервис отправки.
func NewSubmissionService(api TransferAPI, projects ProjectNumberResolver, logger *slog.Logger) *SubmissionService {
	return &SubmissionService{
		api:      api,
		projects: projects,
		logger:   logger.With(slog.String("component", "submission_service")),
	}
}

// Submit выполняет четыре шага отправки от имени user.
// Ошибка шага возвращается как *StepError.
func (s *SubmissionService) Submit(ctx context.Context, user string, req *model.TransferRequest) (*SubmissionResult, error) {
	sagaID := uuid.NewString()
	log := s.logger.With(slog.String("saga_id", sagaID), slog.String("user", user))
	result := &SubmissionResult{}

	fail := func(step Step, err error) (*SubmissionResult, error) {
		submissionsTotal.WithLabelValues(string(step)).Inc()
		attrs := []any{
			slog.String("step", string(step)),
			slog.String("error", err.Error()),
		}
		if result.SourceConfigID != "" || result.DestinationConfigID != "" || result.JobID != "" {
			attrs = append(attrs,
				slog.String("orphan_src_config_id", result.SourceConfigID),
				slog.String("orphan_dst_config_id", result.DestinationConfigID),
				slog.String("orphan_job_id", result.JobID),
			)
			log.Warn("Отправка прервана, созданные ресурсы не откатываются", attrs...)
		} else {
			log.Warn("Отправка прервана", attrs...)
		}
		return nil, &StepError{Step: step, Err: err}
	}

	// 1. Источник
	srcID, err := s.api.CreateDriveConfig(ctx, user, driveConfig(req))
	if err != nil {
		return fail(StepSourceConfig, err)
	}
	result.SourceConfigID = srcID
	log.Debug("Конфигурация источника создана", slog.String("config_id", srcID))

	// 2. Назначение
	projectNumber, err := s.projects.Resolve(ctx, req.ProjectID)
	if err != nil {
		return fail(StepDestinationConfig, fmt.Errorf("номер проекта %s: %w", req.ProjectID, err))
	}
	dstID, err := s.api.CreateGCSConfig(ctx, user, gcsConfig(req, projectNumber))
	if err != nil {
		return fail(StepDestinationConfig, err)
	}
	result.DestinationConfigID = dstID
	log.Debug("Конфигурация назначения создана", slog.String("config_id", dstID))

	// 3. Задание
	jobID, err := s.api.CreateJobConfig(ctx, user, rclone.JobConfig{
		JobType:     string(req.Mode),
		SrcConfigID: srcID,
		DstConfigID: dstID,
		NotifyUsers: req.NotifyUsers(),
	})
	if err != nil {
		return fail(StepJobConfig, err)
	}
	result.JobID = jobID

	// 4. Запуск
	started, err := s.api.StartJob(ctx, user, jobID)
	if err != nil {
		return fail(StepStartJob, err)
	}
	if started.JobID != "" {
		result.JobID = started.JobID
	}
	result.WorkflowURL = started.WorkflowURL

	submissionsTotal.WithLabelValues("ok").Inc()
	log.Info("Задание переноса запущено",
		slog.String("job_id", result.JobID),
		slog.String("mode", string(req.Mode)),
		slog.String("drive_type", string(req.Source.DriveType())),
		slog.String("bucket", req.Destination.BucketName()),
	)
	return result, nil
}

// driveConfig строит конфигурацию источника по варианту Source.
func driveConfig(req *model.TransferRequest) rclone.DriveConfig {
	cfg := rclone.DriveConfig{
		DriveType: string(req.Source.DriveType()),
		URL:       req.SourceURL,
	}
	switch src := req.Source.(type) {
	case model.MyDriveSource:
		cfg.ImpersonateUser = src.OwnerEmail
	case model.SharedDriveSource:
		cfg.SharedDriveID = src.SharedDriveID
	case model.GroupSource:
		cfg.Group = src.GroupEmail
	}
	return cfg
}

// gcsConfig строит конфигурацию назначения. Класс хранения передаётся
// только для нового бакета: по нему внешний API понимает, что бакет нужно создать.
func gcsConfig(req *model.TransferRequest, projectNumber string) rclone.GCSConfig {
	cfg := rclone.GCSConfig{
		ProjectNumber: projectNumber,
		Bucket:        req.Destination.BucketName(),
		Prefix:        req.PathPrefix,
	}
	if nb, ok := req.Destination.(model.NewBucket); ok {
		cfg.StorageClass = string(nb.StorageClass)
	}
	return cfg
}
