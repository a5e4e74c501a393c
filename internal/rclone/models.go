package rclone

// envelope — общая часть всех ответов внешнего API.
type envelope struct {
	Success bool    `json:"success"`
	Message *string `json:"message"`
}

// GroupMember — участник Google Group (поля Admin Directory API).
type GroupMember struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
	Type   string `json:"type,omitempty"`
	Status string `json:"status,omitempty"`
}

// Group — результат GET /group/validate.
type Group struct {
	ID      string        `json:"group_id"`
	Email   string        `json:"group_email"`
	Members []GroupMember `json:"group_members"`
}

// groupResponse — ответ /group/validate. При недействительной группе
// success остаётся true, а причина передаётся в поле error.
type groupResponse struct {
	Group
	Error string `json:"error,omitempty"`
}

// Коды недействительной группы в поле error ответа /group/validate.
const (
	GroupNotValid  = "GROUP_NOT_VALID"
	GroupNoMembers = "GROUP_NO_MEMBERS"
)

// SharedDrive — общий диск (элемент teamDrives Drive API).
type SharedDrive struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type sharedDrivesResponse struct {
	SharedDrives []SharedDrive `json:"shared_drives"`
}

// DriveConfig — параметры конфигурации источника Google Drive.
type DriveConfig struct {
	DriveType       string `json:"drive_type"`
	SharedDriveID   string `json:"shared_drive_id,omitempty"`
	URL             string `json:"url,omitempty"`
	ImpersonateUser string `json:"impersonate_user,omitempty"`
	Group           string `json:"group,omitempty"`
}

// drivePayload — тело POST /configs/add для источника.
type drivePayload struct {
	Scope       string `json:"scope"`
	StorageType string `json:"storage_type"`
	DriveConfig
}

// GCSConfig — параметры конфигурации назначения GCS.
// StorageClass задаётся только для нового бакета.
type GCSConfig struct {
	ProjectNumber string `json:"project_number"`
	Bucket        string `json:"bucket"`
	Prefix        string `json:"prefix"`
	StorageClass  string `json:"storage_class,omitempty"`
}

// gcsPayload — тело POST /configs/add для назначения.
type gcsPayload struct {
	StorageType string `json:"storage_type"`
	ObjectACL   string `json:"object_acl"`
	BucketACL   string `json:"bucket_acl"`
	Location    string `json:"location"`
	GCSConfig
}

type configResponse struct {
	ConfigID string `json:"config_id"`
}

// JobConfig — параметры задания переноса.
type JobConfig struct {
	JobType     string `json:"job_type"`
	SrcConfigID string `json:"src_config_id"`
	DstConfigID string `json:"dst_config_id"`
	NotifyUsers string `json:"notify_users"`
}

type jobPayload struct {
	UserType string `json:"user_type"`
	JobConfig
}

type jobResponse struct {
	JobID string `json:"job_id"`
}

type startPayload struct {
	JobID string `json:"job_id"`
}

// StartedJob — результат POST /jobs/start.
type StartedJob struct {
	JobID       string `json:"job_id"`
	WorkflowURL string `json:"workflow_url"`
}
