// data.go — справочные данные для формы переноса и история заданий.
package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/drive-transfer-portal/internal/api/errors"
	"github.com/bigkaa/drive-transfer-portal/internal/api/middleware"
	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
	"github.com/bigkaa/drive-transfer-portal/internal/service"
)

// GetBuckets — GET /data/get-buckets?projectId=.
func (h *APIHandler) GetBuckets(w http.ResponseWriter, r *http.Request) {
	var projectID string
	if err := runtime.BindQueryParameter("form", true, true, "projectId", r.URL.Query(), &projectID); err != nil {
		paramError(w, "projectId", "параметр projectId обязателен")
		return
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		paramError(w, "projectId", "параметр projectId обязателен")
		return
	}

	names, err := h.buckets.ListBuckets(r.Context(), projectID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, "", names)
}

// GetGroup — GET /data/get-group?groupEmail=.
func (h *APIHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	var groupEmail string
	if err := runtime.BindQueryParameter("form", true, true, "groupEmail", r.URL.Query(), &groupEmail); err != nil {
		paramError(w, "groupEmail", "параметр groupEmail обязателен")
		return
	}
	groupEmail = strings.TrimSpace(groupEmail)
	if groupEmail == "" {
		paramError(w, "groupEmail", "параметр groupEmail обязателен")
		return
	}

	session := middleware.SessionFromContext(r.Context())
	group, err := h.directory.ValidateGroup(r.Context(), session.Email, groupEmail)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, "", group)
}

// GetSharedDrives — GET /data/get-shared-drives.
func (h *APIHandler) GetSharedDrives(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	drives, err := h.directory.ListSharedDrives(r.Context(), session.Email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, "", drives)
}

// GetJobs — GET /data/get-jobs?page=&limit=&cursor=.
// Отсутствующие page и limit заменяются значениями по умолчанию в сервисе.
func (h *APIHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	var (
		page   *int
		limit  *int
		cursor *string
	)
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", query, &page); err != nil {
		paramError(w, "page", "некорректный параметр page")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &limit); err != nil {
		paramError(w, "limit", "некорректный параметр limit")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "cursor", query, &cursor); err != nil {
		paramError(w, "cursor", "некорректный параметр cursor")
		return
	}

	session := middleware.SessionFromContext(r.Context())
	q := service.HistoryQuery{UserID: session.Email}
	if page != nil {
		q.Page = *page
	}
	if limit != nil {
		q.Limit = *limit
	}
	if cursor != nil {
		q.Cursor = strings.TrimSpace(*cursor)
	}

	result, err := h.history.Jobs(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.logger.Debug("История заданий",
		slog.String("user", session.Email),
		slog.Int("rows", len(result.Rows)),
		slog.Int("total_rows", result.TotalRows),
	)
	writeSuccess(w, "", result)
}

// paramError — 400 с ошибкой одного query-параметра.
func paramError(w http.ResponseWriter, name, message string) {
	apierrors.ValidationErrorWithDetails(w, message, []model.FieldError{{Field: name, Message: message}})
}
