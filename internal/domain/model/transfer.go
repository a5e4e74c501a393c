package model

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ErrValidation — ошибка валидации входных данных.
var ErrValidation = errors.New("ошибка валидации")

// DriveType — тип источника Google Drive.
type DriveType string

const (
	DriveTypeMyDrive DriveType = "mydrive"
	DriveTypeShared  DriveType = "shared"
	DriveTypeGroup   DriveType = "group"
)

// Scope — объём переноса.
type Scope string

const (
	ScopeFullDrive    Scope = "fulldrive"
	ScopeSingleFolder Scope = "singlefolder"
	ScopeSingleFile   Scope = "singlefile"
)

// TransferMode — семантика переноса (копирование или перемещение).
type TransferMode string

const (
	TransferModeCopy TransferMode = "copy"
	TransferModeMove TransferMode = "move"
)

// StorageClass — класс хранения нового GCS-бакета.
type StorageClass string

const (
	StorageClassStandard StorageClass = "standard"
	StorageClassNearline StorageClass = "nearline"
	StorageClassColdline StorageClass = "coldline"
	StorageClassArchive  StorageClass = "archive"
)

// Значения поля bucket, означающие создание нового бакета.
// "new-bucket" отправляет форма UI, "new" — API-клиенты.
const (
	NewBucketSentinel   = "new"
	NewBucketSentinelUI = "new-bucket"
)

// Source — источник переноса. Реализуется только типами этого пакета:
// MyDriveSource, SharedDriveSource, GroupSource.
type Source interface {
	DriveType() DriveType
	isSource()
}

// MyDriveSource — личный диск пользователя OwnerEmail (impersonation).
type MyDriveSource struct {
	OwnerEmail string
}

// SharedDriveSource — общий диск.
type SharedDriveSource struct {
	SharedDriveID string
}

// GroupSource — диски участников Google Group.
type GroupSource struct {
	GroupEmail string
}

func (MyDriveSource) DriveType() DriveType     { return DriveTypeMyDrive }
func (SharedDriveSource) DriveType() DriveType { return DriveTypeShared }
func (GroupSource) DriveType() DriveType       { return DriveTypeGroup }

func (MyDriveSource) isSource()     {}
func (SharedDriveSource) isSource() {}
func (GroupSource) isSource()       {}

// Destination — GCS-назначение. Реализуется ExistingBucket и NewBucket.
type Destination interface {
	BucketName() string
	isDestination()
}

// ExistingBucket — существующий бакет.
type ExistingBucket struct {
	Name string
}

// NewBucket — бакет, который внешний API создаст с указанным классом хранения.
type NewBucket struct {
	Name         string
	StorageClass StorageClass
}

func (b ExistingBucket) BucketName() string { return b.Name }
func (b NewBucket) BucketName() string      { return b.Name }

func (ExistingBucket) isDestination() {}
func (NewBucket) isDestination()      {}

// TransferRequest — проверенный запрос на перенос Drive → GCS.
// Создаётся только через NewTransferRequest, поэтому недопустимые
// сочетания полей в нём невозможны.
type TransferRequest struct {
	Source       Source
	Scope        Scope
	// SourceURL — ссылка на папку или файл; пустая для ScopeFullDrive.
	SourceURL    string
	ProjectID    string
	Destination  Destination
	PathPrefix   string
	Mode         TransferMode
	NotifyEmails []string
}

// TransferForm — сырые поля формы нового переноса.
// Имена полей совпадают с именами в HTML-форме и JSON-запросе.
type TransferForm struct {
	URL            string `json:"url"`
	ProjectID      string `json:"project_id"`
	Bucket         string `json:"bucket"`
	BucketName     string `json:"bucketName"`
	StorageClass   string `json:"storageClass"`
	Path           string `json:"path"`
	TransferType   string `json:"transfertype"`
	DriveType      string `json:"drivetype"`
	TransferOption string `json:"transferoption"`
	Email          string `json:"email"`
	UserEmail      string `json:"userEmail"`
	GroupEmail     string `json:"groupEmail"`
	SharedDriveID  string `json:"sharedDriveId"`
}

// FieldError — ошибка конкретного поля формы.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError — набор ошибок полей. errors.Is(err, ErrValidation) == true.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// NewTransferRequest проверяет форму и строит TransferRequest.
// Возвращает *ValidationError со всеми найденными ошибками полей.
//
//nolint:cyclop // последовательная проверка полей формы
func NewTransferRequest(form TransferForm) (*TransferRequest, error) {
	form = trimForm(form)
	verr := &ValidationError{}
	req := &TransferRequest{
		ProjectID:  form.ProjectID,
		PathPrefix: form.Path,
	}

	// Источник: обязательное поле зависит от drivetype
	switch DriveType(form.DriveType) {
	case DriveTypeMyDrive:
		if checkEmail(verr, "userEmail", form.UserEmail) {
			req.Source = MyDriveSource{OwnerEmail: form.UserEmail}
		}
	case DriveTypeShared:
		if form.SharedDriveID == "" {
			verr.add("sharedDriveId", "обязательно для общего диска")
		} else {
			req.Source = SharedDriveSource{SharedDriveID: form.SharedDriveID}
		}
	case DriveTypeGroup:
		if checkEmail(verr, "groupEmail", form.GroupEmail) {
			req.Source = GroupSource{GroupEmail: form.GroupEmail}
		}
	case "":
		verr.add("drivetype", "обязательное поле")
	default:
		verr.add("drivetype", fmt.Sprintf("недопустимое значение %q, допустимые: mydrive, shared, group", form.DriveType))
	}

	// Объём: без явного значения — вся папка по ссылке или весь диск без ссылки
	scope := Scope(form.TransferOption)
	if scope == "" {
		scope = ScopeSingleFolder
		if form.URL == "" {
			scope = ScopeFullDrive
		}
	}
	switch scope {
	case ScopeFullDrive:
		req.Scope = scope
	case ScopeSingleFolder, ScopeSingleFile:
		req.Scope = scope
		if form.URL == "" {
			verr.add("url", "обязательно, если переносится не весь диск")
		}
		req.SourceURL = form.URL
	default:
		verr.add("transferoption", fmt.Sprintf("недопустимое значение %q, допустимые: fulldrive, singlefolder, singlefile", form.TransferOption))
	}

	if form.ProjectID == "" {
		verr.add("project_id", "обязательное поле")
	}

	// Назначение: существующий бакет или sentinel нового
	switch form.Bucket {
	case "":
		verr.add("bucket", "обязательное поле")
	case NewBucketSentinel, NewBucketSentinelUI:
		nb := NewBucket{Name: form.BucketName, StorageClass: StorageClass(strings.ToLower(form.StorageClass))}
		ok := true
		if nb.Name == "" {
			verr.add("bucketName", "обязательно для нового бакета")
			ok = false
		}
		if !validStorageClass(nb.StorageClass) {
			verr.add("storageClass", "обязательно для нового бакета: standard, nearline, coldline, archive")
			ok = false
		}
		if ok {
			req.Destination = nb
		}
	default:
		req.Destination = ExistingBucket{Name: form.Bucket}
	}

	switch TransferMode(form.TransferType) {
	case TransferModeCopy, TransferModeMove:
		req.Mode = TransferMode(form.TransferType)
	case "":
		verr.add("transfertype", "обязательное поле")
	default:
		verr.add("transfertype", fmt.Sprintf("недопустимое значение %q, допустимые: copy, move", form.TransferType))
	}

	for _, addr := range splitEmails(form.Email) {
		if checkEmail(verr, "email", addr) {
			req.NotifyEmails = append(req.NotifyEmails, addr)
		}
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return req, nil
}

// NotifyUsers возвращает адреса уведомления через запятую (формат внешнего API).
func (r *TransferRequest) NotifyUsers() string {
	return strings.Join(r.NotifyEmails, ",")
}

func trimForm(f TransferForm) TransferForm {
	return TransferForm{
		URL:            strings.TrimSpace(f.URL),
		ProjectID:      strings.TrimSpace(f.ProjectID),
		Bucket:         strings.TrimSpace(f.Bucket),
		BucketName:     strings.TrimSpace(f.BucketName),
		StorageClass:   strings.TrimSpace(f.StorageClass),
		Path:           strings.TrimSpace(f.Path),
		TransferType:   strings.ToLower(strings.TrimSpace(f.TransferType)),
		DriveType:      strings.ToLower(strings.TrimSpace(f.DriveType)),
		TransferOption: strings.ToLower(strings.TrimSpace(f.TransferOption)),
		Email:          strings.TrimSpace(f.Email),
		UserEmail:      strings.TrimSpace(f.UserEmail),
		GroupEmail:     strings.TrimSpace(f.GroupEmail),
		SharedDriveID:  strings.TrimSpace(f.SharedDriveID),
	}
}

// checkEmail добавляет ошибку поля и возвращает false, если адрес пустой или некорректный.
func checkEmail(verr *ValidationError, field, addr string) bool {
	if addr == "" {
		verr.add(field, "обязательное поле")
		return false
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		verr.add(field, fmt.Sprintf("некорректный адрес %q", addr))
		return false
	}
	return true
}

func splitEmails(s string) []string {
	var out []string
	for _, p := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == ' ' }) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validStorageClass(c StorageClass) bool {
	switch c {
	case StorageClassStandard, StorageClassNearline, StorageClassColdline, StorageClassArchive:
		return true
	}
	return false
}
