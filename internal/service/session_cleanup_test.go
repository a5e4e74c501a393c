package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	calls   atomic.Int32
	deleted int64
	err     error
}

func (p *fakePurger) DeleteExpired(context.Context) (int64, error) {
	p.calls.Add(1)
	return p.deleted, p.err
}

func TestSessionCleanup_CleanNow(t *testing.T) {
	purger := &fakePurger{deleted: 3}
	svc := NewSessionCleanupService(purger, time.Minute, testLogger())

	deleted, err := svc.CleanNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	purger.err = errors.New("db down")
	_, err = svc.CleanNow(context.Background())
	assert.Error(t, err)
}

func TestSessionCleanup_StartStop(t *testing.T) {
	purger := &fakePurger{}
	svc := NewSessionCleanupService(purger, 10*time.Millisecond, testLogger())

	svc.Start(context.Background())
	assert.Eventually(t, func() bool { return purger.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	svc.Stop()

	calls := purger.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, purger.calls.Load(), "после Stop очистка не выполняется")
}
