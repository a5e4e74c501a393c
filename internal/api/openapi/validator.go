// Пакет openapi — встроенное описание API портала и middleware
// проверки query-параметров запросов по этому описанию.
package openapi

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	apierrors "github.com/bigkaa/drive-transfer-portal/internal/api/errors"
	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
)

//go:embed openapi.yaml
var specYAML []byte

// Spec возвращает исходный текст описания API.
func Spec() []byte {
	return specYAML
}

// Load загружает и проверяет встроенное описание API.
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("загрузка описания API: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("некорректное описание API: %w", err)
	}
	return doc, nil
}

// Validator проверяет параметры запросов по описанию API.
// Тела запросов не проверяются: их разбирают и валидируют обработчики.
type Validator struct {
	router routers.Router
	logger *slog.Logger
}

// NewValidator создаёт Validator по встроенному описанию API.
func NewValidator(ctx context.Context, logger *slog.Logger) (*Validator, error) {
	doc, err := Load(ctx)
	if err != nil {
		return nil, err
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("построение маршрутизатора описания API: %w", err)
	}
	return &Validator{
		router: router,
		logger: logger.With(slog.String("component", "openapi_validator")),
	}, nil
}

// Validate проверяет запрос. Для путей, отсутствующих в описании, возвращает nil.
func (v *Validator) Validate(r *http.Request) error {
	route, pathParams, err := v.router.FindRoute(r)
	if err != nil {
		if errors.Is(err, routers.ErrPathNotFound) || errors.Is(err, routers.ErrMethodNotAllowed) {
			return nil
		}
		return err
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			ExcludeRequestBody: true,
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}
	return openapi3filter.ValidateRequest(r.Context(), input)
}

// Middleware отвечает 400 VALIDATION_ERROR на запросы, не прошедшие проверку.
func (v *Validator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := v.Validate(r); err != nil {
			field, message := describe(err)
			v.logger.Debug("Запрос не прошёл проверку",
				slog.String("path", r.URL.Path),
				slog.String("field", field),
				slog.String("error", err.Error()),
			)
			if field == "" {
				apierrors.ValidationError(w, message)
				return
			}
			apierrors.ValidationErrorWithDetails(w, message, []model.FieldError{{Field: field, Message: message}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// describe извлекает имя параметра и краткое сообщение из ошибки kin-openapi.
func describe(err error) (string, string) {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) && reqErr.Parameter != nil {
		name := reqErr.Parameter.Name
		var schemaErr *openapi3.SchemaError
		switch {
		case errors.Is(reqErr.Err, openapi3filter.ErrInvalidRequired):
			return name, fmt.Sprintf("параметр %s обязателен", name)
		case errors.As(reqErr.Err, &schemaErr):
			return name, fmt.Sprintf("некорректный параметр %s: %s", name, schemaErr.Reason)
		default:
			return name, fmt.Sprintf("некорректный параметр %s", name)
		}
	}
	return "", "некорректный запрос"
}
