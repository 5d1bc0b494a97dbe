package activity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"garden/internal/models"
	"garden/internal/store"
)

func TestIsOnline(t *testing.T) {
	now := time.Now()
	recent := now.Add(-time.Minute)
	stale := now.Add(-10 * time.Minute)

	assert.False(t, IsOnline(nil, SessionWindow, now))
	assert.True(t, IsOnline(&recent, SessionWindow, now))
	assert.False(t, IsOnline(&stale, SessionWindow, now))
	assert.True(t, IsOnline(&stale, AuthorshipWindow, now))

	edge := now.Add(-SessionWindow)
	assert.False(t, IsOnline(&edge, SessionWindow, now), "threshold is exclusive")
}

func TestTouchAndOnline(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.CreateUser(ctx, models.User{Email: "admin@garden.com", Role: models.RoleAdmin}))
	require.NoError(t, mem.CreateUser(ctx, models.User{Email: "u@garden.com", Role: models.RoleUser}))

	tr := NewTracker(mem, zap.NewNop())
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	require.NoError(t, tr.Touch(ctx, "u@garden.com"))
	require.NoError(t, tr.Touch(ctx, "ghost@garden.com"), "unknown users are a no-op")

	online, err := tr.Online(ctx, SessionWindow)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, "u@garden.com", online[0].Email)

	present, err := tr.AdminPresent(ctx, AuthorshipWindow)
	require.NoError(t, err)
	assert.False(t, present)

	require.NoError(t, tr.Touch(ctx, "admin@garden.com"))
	now = now.Add(2 * time.Hour)
	present, err = tr.AdminPresent(ctx, AuthorshipWindow)
	require.NoError(t, err)
	assert.True(t, present)
	online, err = tr.Online(ctx, SessionWindow)
	require.NoError(t, err)
	assert.Empty(t, online)
}

func TestHeartbeatStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	mem := store.NewMemory()
	require.NoError(t, mem.CreateUser(ctx, models.User{Email: "u@garden.com", Role: models.RoleUser}))
	tr := NewTracker(mem, zap.NewNop())

	done := make(chan struct{})
	go func() {
		Heartbeat(ctx, 5*time.Millisecond, func(ctx context.Context) error {
			return tr.Touch(ctx, "u@garden.com")
		}, zap.NewNop())
		close(done)
	}()

	require.Eventually(t, func() bool {
		u, err := mem.GetUser(context.Background(), "u@garden.com")
		return err == nil && u.LastActive != nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestHeartbeatKeepsGoingAfterFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		Heartbeat(ctx, 2*time.Millisecond, func(context.Context) error {
			calls.Add(1)
			return errors.New("unreachable")
		}, zap.NewNop())
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 2*time.Millisecond)
	cancel()
	<-done
}
