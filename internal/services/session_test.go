package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yungbote/noctisium-backend/internal/realtime/invalidation"
	"github.com/yungbote/noctisium-backend/internal/syncer"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestReapIdleTearsDownExpiredSessions(t *testing.T) {
	fx := newTrackingFixture(t)
	clock := &fakeClock{t: time.Date(2025, 4, 21, 9, 0, 0, 0, time.UTC)}
	mgr := fx.sessions.(*sessionManager)
	mgr.now = clock.now

	ignore := goleak.IgnoreCurrent()

	user := uuid.New()
	idle, active := uuid.New(), uuid.New()
	idleSess, err := fx.sessions.Open(fx.ctx, user, idle)
	require.NoError(t, err)
	_, err = fx.sessions.Open(fx.ctx, user, active)
	require.NoError(t, err)
	require.NoError(t, idleSess.Scope.SubscribeAll(func(context.Context, invalidation.Notice) {}))

	_, err = fx.tracking.UpdateWeeklyKPI(fx.ctx, idleSess, "2025-W17", "pages", 12)
	require.NoError(t, err)
	require.NotZero(t, fx.cache.Len())

	clock.t = clock.t.Add(20 * time.Minute)
	require.NotNil(t, fx.sessions.Get(active))
	clock.t = clock.t.Add(15 * time.Minute)

	require.Equal(t, 1, fx.sessions.ReapIdle(fx.ctx, 30*time.Minute))
	require.Nil(t, fx.sessions.Get(idle))
	require.NotNil(t, fx.sessions.Get(active))

	_, ok, err := idleSess.Sync.Cached(fx.ctx, syncer.WeeklyKPI(user, "2025-W17", "pages"))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 0, fx.cache.Len())

	fx.sessions.CloseAll(fx.ctx)
	for _, topic := range invalidation.Topics {
		require.Zero(t, fx.bus.SubscriberCount(topic), topic.String())
	}
	goleak.VerifyNone(t, ignore)
}

func TestReapIdleKeepsTouchedSessions(t *testing.T) {
	fx := newTrackingFixture(t)
	clock := &fakeClock{t: time.Date(2025, 4, 21, 9, 0, 0, 0, time.UTC)}
	fx.sessions.(*sessionManager).now = clock.now

	user, sid := uuid.New(), uuid.New()
	_, err := fx.sessions.Open(fx.ctx, user, sid)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		clock.t = clock.t.Add(10 * time.Minute)
		_, err = fx.sessions.Open(fx.ctx, user, sid)
		require.NoError(t, err)
		require.Zero(t, fx.sessions.ReapIdle(fx.ctx, 15*time.Minute))
	}
	require.Zero(t, fx.sessions.ReapIdle(fx.ctx, 0))

	clock.t = clock.t.Add(16 * time.Minute)
	require.Equal(t, 1, fx.sessions.ReapIdle(fx.ctx, 15*time.Minute))
	require.Zero(t, fx.sessions.ReapIdle(fx.ctx, 15*time.Minute))
}

func TestRunReaperStopsWithContext(t *testing.T) {
	fx := newTrackingFixture(t)
	ctx, cancel := context.WithCancel(fx.ctx)
	done := make(chan error, 1)
	go func() { done <- fx.sessions.RunReaper(ctx, time.Minute) }()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("RunReaper did not return after cancel")
	}
}
