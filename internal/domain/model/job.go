// Пакет model — доменные типы Transfer Portal.
package model

import "time"

// JobStatus — статус задания переноса во внешней системе.
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusComplete JobStatus = "complete"
	JobStatusError    JobStatus = "error"
	JobStatusUnknown  JobStatus = "unknown"
)

// NormalizeJobStatus приводит произвольное значение к известному статусу.
// Неизвестные и пустые значения становятся JobStatusUnknown.
func NormalizeJobStatus(s string) JobStatus {
	switch st := JobStatus(s); st {
	case JobStatusPending, JobStatusRunning, JobStatusComplete, JobStatusError:
		return st
	default:
		return JobStatusUnknown
	}
}

// JobRecord — запись истории заданий. Документы создаёт и изменяет
// внешняя система, здесь они только читаются.
type JobRecord struct {
	// ID — идентификатор документа Firestore (используется как курсор)
	ID string `json:"id"`
	// UserID — email владельца задания
	UserID string `json:"-"`
	// JobType — copy или move
	JobType string `json:"job_type"`
	// SrcName — имя источника
	SrcName string `json:"src_name"`
	// DstName — имя назначения
	DstName string `json:"dst_name"`
	// Status — статус задания
	Status JobStatus `json:"status"`
	// JobStarted — время запуска
	JobStarted *time.Time `json:"job_started"`
	// JobCompleted — время завершения (nil, если не завершено)
	JobCompleted *time.Time `json:"job_completed"`
}

// JobPage — страница истории с метаданными пагинации.
type JobPage struct {
	Rows        []JobRecord `json:"rows"`
	TotalRows   int         `json:"totalRows"`
	CurrentPage int         `json:"currentPage"`
	TotalPages  int         `json:"totalPages"`
	// NextPageCursor — ID последнего документа, если есть следующая страница
	NextPageCursor string `json:"nextPageCursor,omitempty"`
}
