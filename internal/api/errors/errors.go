// Пакет errors — ответы с ошибками в конверте Transfer Portal:
// {"success": false, "message": "...", "data": null, "code": "..."}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	"net/http"
)

// Коды ошибок, определённые в OpenAPI контракте.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeUpstreamError   = "UPSTREAM_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
)

// UnauthorizedMessage — сообщение ответа 401, которое ожидает UI.
const UnauthorizedMessage = "Forbidden"

// errorBody — конверт ответа с ошибкой.
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Code    string `json:"code"`
	// Details — ошибки отдельных полей формы (только для VALIDATION_ERROR)
	Details any `json:"details,omitempty"`
}

// WriteError записывает ответ ошибки.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	write(w, statusCode, errorBody{Code: code, Message: message})
}

func write(w http.ResponseWriter, statusCode int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// ValidationErrorWithDetails — 400 с перечнем ошибок полей.
func ValidationErrorWithDetails(w http.ResponseWriter, message string, details any) {
	write(w, http.StatusBadRequest, errorBody{
		Code:    CodeValidationError,
		Message: message,
		Details: details,
	})
}

// Unauthorized — 401 нет действующей сессии.
func Unauthorized(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, UnauthorizedMessage)
}

// UpstreamError — 500 отказ внешнего API, сообщение передаётся как есть.
func UpstreamError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeUpstreamError, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
