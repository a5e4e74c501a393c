package gcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/secretmanager/v1"
)

// SecretVersionName возвращает полное имя последней версии секрета.
func SecretVersionName(projectID, secret string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, secret)
}

// AccessSecret читает значение версии секрета Secret Manager.
// name — полное имя версии (см. SecretVersionName).
func AccessSecret(ctx context.Context, name string, opts ...option.ClientOption) (string, error) {
	svc, err := secretmanager.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("создание клиента Secret Manager: %w", err)
	}

	resp, err := svc.Projects.Secrets.Versions.Access(name).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: чтение секрета %s: %w", ErrGCP, name, err)
	}
	if resp.Payload == nil {
		return "", fmt.Errorf("%w: секрет %s без данных", ErrGCP, name)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Payload.Data)
	if err != nil {
		return "", fmt.Errorf("%w: декодирование секрета %s: %w", ErrGCP, name, err)
	}
	return strings.TrimSpace(string(data)), nil
}
