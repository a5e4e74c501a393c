package sessionstore

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
)

// MemoryStore — хранилище сессий в памяти процесса.
// Записи вытесняются по TTL и при превышении maxEntries (LRU).
// Сессии не переживают рестарт и не разделяются между репликами.
type MemoryStore struct {
	cache *expirable.LRU[string, model.Session]
	now   func() time.Time
}

// NewMemoryStore создаёт хранилище на maxEntries сессий с временем жизни ttl.
func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: expirable.NewLRU[string, model.Session](maxEntries, nil, ttl),
		now:   time.Now,
	}
}

// Save сохраняет копию сессии.
func (s *MemoryStore) Save(_ context.Context, session *model.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("сохранение сессии: пустой ID")
	}
	s.cache.Add(session.ID, *session)
	return nil
}

// Load возвращает сессию по ID или ErrNotFound.
func (s *MemoryStore) Load(_ context.Context, id string) (*model.Session, error) {
	session, ok := s.cache.Get(id)
	if !ok || session.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return &session, nil
}

// Delete удаляет сессию. Отсутствие сессии ошибкой не считается.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.cache.Remove(id)
	return nil
}

// Len — количество сессий в памяти.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

// CheckReady всегда готово, сообщает число активных сессий.
func (s *MemoryStore) CheckReady() (status, message string) {
	return "ok", fmt.Sprintf("сессий в памяти: %d", s.cache.Len())
}
