package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется *pgxpool.Pool и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore — хранилище сессий в таблице sessions.
type PostgresStore struct {
	db  DBTX
	now func() time.Time
}

// NewPostgresStore создаёт хранилище поверх пула pgx.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Save создаёт или перезаписывает сессию (upsert).
func (s *PostgresStore) Save(ctx context.Context, session *model.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("сохранение сессии: пустой ID")
	}
	query := `
		INSERT INTO sessions (id, email, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
			expires_at = EXCLUDED.expires_at`

	_, err := s.db.Exec(ctx, query, session.ID, session.Email, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения сессии: %w", err)
	}
	return nil
}

// Load возвращает неистёкшую сессию по ID или ErrNotFound.
func (s *PostgresStore) Load(ctx context.Context, id string) (*model.Session, error) {
	query := `
		SELECT id, email, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > $2`

	session := &model.Session{}
	err := s.db.QueryRow(ctx, query, id, s.now()).Scan(
		&session.ID, &session.Email, &session.CreatedAt, &session.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сессии: %w", err)
	}
	return session, nil
}

// Delete удаляет сессию. Отсутствие сессии ошибкой не считается.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("ошибка удаления сессии: %w", err)
	}
	return nil
}

// DeleteExpired удаляет истёкшие сессии и возвращает их количество.
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки истёкших сессий: %w", err)
	}
	return tag.RowsAffected(), nil
}
