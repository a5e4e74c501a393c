// Пакет rclone — HTTP-клиент внешнего API управления заданиями переноса.
// Каждый запрос авторизуется ID token (audience — базовый URL API),
// POST-запросы дополняются email пользователя в поле uid.
// Одна попытка на вызов: без повторов и без собственного таймаута,
// время жизни запроса ограничивает context вызывающего.
package rclone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

// Максимальный размер тела ответа внешнего API.
const maxResponseSize = 4 << 20

var (
	// ErrUpstream — внешний API недоступен или вернул success=false.
	ErrUpstream = errors.New("ошибка внешнего API")
	// ErrGroupInvalid — группа не найдена или не содержит участников.
	ErrGroupInvalid = errors.New("недействительная группа")
)

// UpstreamError — отказ внешнего API. Message передаётся клиенту как есть.
type UpstreamError struct {
	// Op — логическое имя операции (create_drive_config и т.д.)
	Op string
	// Endpoint — путь запроса
	Endpoint string
	// StatusCode — HTTP-статус ответа (0 при сетевой ошибке)
	StatusCode int
	// Message — сообщение из конверта ответа или описание сетевой ошибки
	Message string
	// Err — исходная ошибка транспорта/декодирования (может быть nil)
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Endpoint, e.Message)
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUpstream, e.Err}
	}
	return []error{ErrUpstream}
}

// GroupError — группа отклонена внешним API (GROUP_NOT_VALID, GROUP_NO_MEMBERS).
type GroupError struct {
	Email string
	Code  string
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("группа %s: %s", e.Email, e.Code)
}

func (e *GroupError) Unwrap() error { return ErrGroupInvalid }

// Client — клиент внешнего rclone API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth2.TokenSource
	logger     *slog.Logger
}

// New создаёт клиент.
// tokens — источник bearer-токенов; httpClient == nil — клиент без таймаута.
func New(baseURL string, tokens oauth2.TokenSource, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger.With(slog.String("component", "rclone_client")),
	}
}

// NewIDTokenSource возвращает источник ID token для сервисного аккаунта
// приложения (Application Default Credentials) с audience "<baseURL>/".
func NewIDTokenSource(ctx context.Context, baseURL string) (oauth2.TokenSource, error) {
	ts, err := idtoken.NewTokenSource(ctx, strings.TrimRight(baseURL, "/")+"/")
	if err != nil {
		return nil, fmt.Errorf("создание источника ID token: %w", err)
	}
	return ts, nil
}

// BaseURL возвращает базовый URL API (для проверок здоровья).
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ValidateGroup проверяет Google Group.
// GET /group/validate?email=
func (c *Client) ValidateGroup(ctx context.Context, user, groupEmail string) (*Group, error) {
	var resp groupResponse
	q := url.Values{"email": []string{groupEmail}}
	if err := c.do(ctx, "validate_group", http.MethodGet, "/group/validate", q, nil, user, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &GroupError{Email: groupEmail, Code: resp.Error}
	}
	return &resp.Group, nil
}

// ListSharedDrives возвращает общие диски организации.
// GET /drive/list
func (c *Client) ListSharedDrives(ctx context.Context, user string) ([]SharedDrive, error) {
	var resp sharedDrivesResponse
	if err := c.do(ctx, "list_shared_drives", http.MethodGet, "/drive/list", nil, nil, user, &resp); err != nil {
		return nil, err
	}
	if resp.SharedDrives == nil {
		return []SharedDrive{}, nil
	}
	return resp.SharedDrives, nil
}

// CreateDriveConfig создаёт конфигурацию источника и возвращает её ID.
// POST /configs/add
func (c *Client) CreateDriveConfig(ctx context.Context, user string, cfg DriveConfig) (string, error) {
	var resp configResponse
	payload := drivePayload{Scope: "drive", StorageType: "drive", DriveConfig: cfg}
	if err := c.do(ctx, "create_drive_config", http.MethodPost, "/configs/add", nil, payload, user, &resp); err != nil {
		return "", err
	}
	return resp.ConfigID, nil
}

// CreateGCSConfig создаёт конфигурацию назначения и возвращает её ID.
// POST /configs/add
func (c *Client) CreateGCSConfig(ctx context.Context, user string, cfg GCSConfig) (string, error) {
	var resp configResponse
	payload := gcsPayload{
		StorageType: "gcs",
		ObjectACL:   "private",
		BucketACL:   "private",
		Location:    "us",
		GCSConfig:   cfg,
	}
	if err := c.do(ctx, "create_gcs_config", http.MethodPost, "/configs/add", nil, payload, user, &resp); err != nil {
		return "", err
	}
	return resp.ConfigID, nil
}

// CreateJobConfig создаёт задание и возвращает его ID.
// POST /jobs/add
func (c *Client) CreateJobConfig(ctx context.Context, user string, cfg JobConfig) (string, error) {
	var resp jobResponse
	payload := jobPayload{UserType: "admin", JobConfig: cfg}
	if err := c.do(ctx, "create_job_config", http.MethodPost, "/jobs/add", nil, payload, user, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// StartJob запускает задание.
// POST /jobs/start
func (c *Client) StartJob(ctx context.Context, user, jobID string) (*StartedJob, error) {
	var resp StartedJob
	if err := c.do(ctx, "start_job", http.MethodPost, "/jobs/start", nil, startPayload{JobID: jobID}, user, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do выполняет один запрос к внешнему API и разбирает конверт {success, message}.
// Для POST тело дополняется полем uid = user. out может быть nil.
//
//nolint:cyclop // последовательность шагов запроса
func (c *Client) do(
	ctx context.Context,
	op, method, endpoint string,
	query url.Values,
	payload any,
	user string,
	out any,
) (err error) {
	start := time.Now()
	defer func() {
		observeUpstream(op, err, time.Since(start))
	}()

	reqURL := c.baseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	c.logger.Debug("Запрос к внешнему API",
		slog.String("operation", op),
		slog.String("method", method),
		slog.String("endpoint", endpoint),
	)

	fail := func(status int, msg string, cause error) error {
		ue := &UpstreamError{Op: op, Endpoint: endpoint, StatusCode: status, Message: msg, Err: cause}
		c.logger.Error("Ошибка запроса к внешнему API",
			slog.String("operation", op),
			slog.String("endpoint", endpoint),
			slog.Int("status", status),
			slog.String("error", msg),
		)
		return ue
	}

	var body io.Reader
	if method == http.MethodPost {
		data, mErr := withUID(payload, user)
		if mErr != nil {
			return fmt.Errorf("сериализация запроса %s: %w", op, mErr)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("создание запроса %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		tok, tErr := c.tokens.Token()
		if tErr != nil {
			return fail(0, "не удалось получить ID token: "+tErr.Error(), tErr)
		}
		tok.SetAuthHeader(req)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL из конфигурации
	if err != nil {
		return fail(0, err.Error(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fail(resp.StatusCode, "чтение ответа: "+err.Error(), err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fail(resp.StatusCode,
			fmt.Sprintf("некорректный ответ (статус %d): %s", resp.StatusCode, truncate(string(raw), 200)), err)
	}

	if !env.Success {
		msg := "Unknown Error"
		if env.Message != nil && *env.Message != "" {
			msg = *env.Message
		}
		return fail(resp.StatusCode, msg, nil)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fail(resp.StatusCode, "декодирование ответа: "+err.Error(), err)
		}
	}
	return nil
}

// withUID сериализует payload как JSON-объект и добавляет поле uid.
func withUID(payload any, user string) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("payload должен быть JSON-объектом: %w", err)
		}
	}
	uid, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}
	fields["uid"] = uid
	return json.Marshal(fields)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// CheckReady проверяет доступность внешнего API через GET /healthcheck.
// Реализует handlers.ReadinessChecker.
func (c *Client) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", http.NoBody)
	if err != nil {
		return "fail", "ошибка создания запроса: " + err.Error()
	}
	if c.tokens != nil {
		tok, tErr := c.tokens.Token()
		if tErr != nil {
			return "fail", "не удалось получить ID token: " + tErr.Error()
		}
		tok.SetAuthHeader(req)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL из конфигурации
	if err != nil {
		return "fail", fmt.Sprintf("rclone API недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "fail", fmt.Sprintf("rclone API вернул статус %d", resp.StatusCode)
	}
	return "ok", "rclone API доступен"
}
