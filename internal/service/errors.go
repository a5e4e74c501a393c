// errors.go — ошибки сервисного слоя.
package service

import (
	"errors"
	"fmt"
)

// ErrValidation — ошибка валидации входных данных запроса.
var ErrValidation = errors.New("ошибка валидации")

// Step — шаг отправки задания переноса.
type Step string

// Шаги отправки в порядке выполнения.
const (
	StepSourceConfig      Step = "source_config"
	StepDestinationConfig Step = "destination_config"
	StepJobConfig         Step = "job_config"
	StepStartJob          Step = "start_job"
)

// StepError — ошибка шага отправки. Оставшиеся шаги не выполнялись.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("шаг %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
