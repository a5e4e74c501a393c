// jobs.go — запуск задания переноса.
package handlers

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	apierrors "github.com/bigkaa/drive-transfer-portal/internal/api/errors"
	"github.com/bigkaa/drive-transfer-portal/internal/api/middleware"
	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
)

// Максимальный размер тела формы переноса.
const maxTransferFormBody = 64 << 10

// NewJob — POST /jobs/new. Принимает форму переноса в JSON
// или application/x-www-form-urlencoded.
func (h *APIHandler) NewJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTransferFormBody)

	form, err := readTransferForm(r)
	if err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	req, err := model.NewTransferRequest(form)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	session := middleware.SessionFromContext(r.Context())
	result, err := h.submitter.Submit(r.Context(), session.Email, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.Info("Задание переноса запущено",
		slog.String("user", session.Email),
		slog.String("job_id", result.JobID),
		slog.String("drive_type", string(req.Source.DriveType())),
	)
	writeSuccess(w, "Задание переноса запущено", result)
}

func readTransferForm(r *http.Request) (model.TransferForm, error) {
	var form model.TransferForm

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&form)
		return form, err
	}

	if err := r.ParseForm(); err != nil {
		return form, err
	}
	get := r.PostForm.Get
	form = model.TransferForm{
		URL:            get("url"),
		ProjectID:      get("project_id"),
		Bucket:         get("bucket"),
		BucketName:     get("bucketName"),
		StorageClass:   get("storageClass"),
		Path:           get("path"),
		TransferType:   get("transfertype"),
		DriveType:      get("drivetype"),
		TransferOption: get("transferoption"),
		Email:          get("email"),
		UserEmail:      get("userEmail"),
		GroupEmail:     get("groupEmail"),
		SharedDriveID:  get("sharedDriveId"),
	}
	return form, nil
}
