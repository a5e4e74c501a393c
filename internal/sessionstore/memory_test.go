package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/drive-transfer-portal/internal/domain/model"
)

func newSession(id string, ttl time.Duration) *model.Session {
	now := time.Now()
	return &model.Session{ID: id, Email: id + "@example.com", CreatedAt: now, ExpiresAt: now.Add(ttl)}
}

func TestMemoryStore_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, time.Hour)

	require.NoError(t, store.Save(ctx, newSession("s1", time.Hour)))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1@example.com", got.Email)

	// Изменение возвращённой копии не затрагивает хранилище
	got.Email = "changed@example.com"
	again, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1@example.com", again.Email)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Повторное удаление — не ошибка
	assert.NoError(t, store.Delete(ctx, "s1"))
}

func TestMemoryStore_ExpiredSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, time.Hour)

	require.NoError(t, store.Save(ctx, newSession("old", -time.Minute)))

	_, err := store.Load(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2, time.Hour)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(ctx, newSession(id, time.Hour)))
	}

	assert.Equal(t, 2, store.Len())
	_, err := store.Load(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Load(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryStore_RejectsEmptyID(t *testing.T) {
	store := NewMemoryStore(2, time.Hour)
	assert.Error(t, store.Save(context.Background(), &model.Session{}))
	assert.Error(t, store.Save(context.Background(), nil))
}

func TestMemoryStore_CheckReady(t *testing.T) {
	store := NewMemoryStore(2, time.Hour)
	status, _ := store.CheckReady()
	assert.Equal(t, "ok", status)
}
