package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/noctisium-backend/internal/data/repos"
	"github.com/yungbote/noctisium-backend/internal/data/repos/testutil"
	types "github.com/yungbote/noctisium-backend/internal/domain/tracking"
	"github.com/yungbote/noctisium-backend/internal/platform/dbctx"
	"github.com/yungbote/noctisium-backend/internal/realtime/invalidation"
)

type progressionFixture struct {
	svc   ProgressionService
	prog  repos.ProgressionRepo
	ach   repos.AchievementRepo
	bus   *invalidation.Bus
	dbc   dbctx.Context
	ctx   context.Context
	topic chan invalidation.Notice
}

func newProgressionFixture(t *testing.T, mode InvariantMode) *progressionFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	bus := invalidation.NewBus(log)
	t.Cleanup(bus.Close)

	notices := make(chan invalidation.Notice, 64)
	_, err := bus.Subscribe(invalidation.TopicProgression, func(_ context.Context, n invalidation.Notice) {
		notices <- n
	})
	require.NoError(t, err)

	prog := repos.NewProgressionRepo(db, log)
	ach := repos.NewAchievementRepo(db, log)
	svc := NewProgressionService(db, log, prog, ach, repos.NewContentItemRepo(db, log), nil, bus, mode)
	ctx := context.Background()
	return &progressionFixture{
		svc:   svc,
		prog:  prog,
		ach:   ach,
		bus:   bus,
		dbc:   dbctx.Context{Ctx: ctx},
		ctx:   ctx,
		topic: notices,
	}
}

func achievementIDs(out Outcome) []string {
	ids := make([]string, 0, len(out.Unlocked))
	for _, a := range out.Unlocked {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestOnShipCrossesLevel(t *testing.T) {
	fx := newProgressionFixture(t, InvariantStrict)
	user := uuid.New()

	seed := types.DefaultProgression(user)
	seed.XP = 95
	require.NoError(t, fx.prog.Upsert(fx.dbc, seed))

	out, err := fx.svc.OnShip(fx.ctx, user)
	require.NoError(t, err)
	require.Equal(t, 10, out.XPGained)
	require.True(t, out.LeveledUp)
	require.Equal(t, 2, out.NewLevel)
	require.Equal(t, 105, out.Progression.XP)
	require.Equal(t, 1, out.Progression.TotalShips)
	require.Contains(t, achievementIDs(out), "first_ship")

	stored, err := fx.prog.Get(fx.dbc, user)
	require.NoError(t, err)
	require.Equal(t, 105, stored.XP)
	require.Equal(t, 2, stored.Level)

	select {
	case n := <-fx.topic:
		require.Equal(t, user, n.UserID)
	case <-time.After(time.Second):
		t.Fatalf("no progression notice published")
	}
}

func TestOnWeekCompleteFirstUse(t *testing.T) {
	fx := newProgressionFixture(t, InvariantStrict)
	user := uuid.New()

	out, err := fx.svc.OnWeekComplete(fx.ctx, user, 100, 50)
	require.NoError(t, err)
	require.Equal(t, 100, out.XPGained)
	require.True(t, out.LeveledUp)

	p := out.Progression
	require.Equal(t, 2, p.Level)
	require.Equal(t, 50, p.RRPoints)
	require.Equal(t, "bronze", p.RankTier)
	require.Equal(t, 1, p.CurrentStreak)
	require.Equal(t, 1, p.LongestStreak)
	require.Equal(t, 1, p.WeeksCompleted)
	require.Equal(t, 1, p.PerfectWeeks)
	require.ElementsMatch(t, []string{"first_week", "perfect_week"}, achievementIDs(out))

	again, err := fx.svc.OnWeekComplete(fx.ctx, user, 30, -80)
	require.NoError(t, err)
	require.Empty(t, again.Unlocked)
	require.Equal(t, 0, again.Progression.RRPoints)
	require.Equal(t, 0, again.Progression.CurrentStreak)
	require.Equal(t, 1, again.Progression.LongestStreak)
	require.Equal(t, 10, again.XPGained)
}

func TestContentRecordsItem(t *testing.T) {
	fx := newProgressionFixture(t, InvariantRepair)
	user := uuid.New()

	out, err := fx.svc.OnContent(fx.ctx, user, &types.ContentItem{Title: "launch post", Platform: "blog"})
	require.NoError(t, err)
	require.Equal(t, 15, out.XPGained)
	require.Equal(t, 1, out.Progression.TotalContent)
	require.Contains(t, achievementIDs(out), "first_content")
}

func TestMissingUserIsNoop(t *testing.T) {
	fx := newProgressionFixture(t, InvariantStrict)

	out, err := fx.svc.OnShip(fx.ctx, uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, Outcome{}, out)

	view, err := fx.svc.GetProgression(fx.ctx, uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, 1, view.Progression.Level)
	require.Equal(t, "bronze", view.Progression.RankTier)

	sum, err := fx.svc.GetAchievements(fx.ctx, uuid.Nil)
	require.NoError(t, err)
	require.Empty(t, sum.Unlocked)
	require.NotEmpty(t, sum.Locked)
}

func TestGetAchievementsPartitions(t *testing.T) {
	fx := newProgressionFixture(t, InvariantStrict)
	user := uuid.New()

	_, err := fx.svc.OnShip(fx.ctx, user)
	require.NoError(t, err)

	sum, err := fx.svc.GetAchievements(fx.ctx, user)
	require.NoError(t, err)
	require.Len(t, sum.Unlocked, 1)
	require.Equal(t, "first_ship", sum.Unlocked[0].ID)
	require.NotEmpty(t, sum.Unlocked[0].UnlockedAt)
	for _, a := range sum.Locked {
		require.NotEqual(t, "first_ship", a.ID)
	}
}

func TestRepairModeCorrectsStoredRow(t *testing.T) {
	fx := newProgressionFixture(t, InvariantRepair)
	user := uuid.New()

	bad := types.DefaultProgression(user)
	bad.XP = 250
	bad.Level = 7
	bad.RRPoints = 1200
	bad.RankTier = "bronze"
	require.NoError(t, fx.prog.Upsert(fx.dbc, bad))

	view, err := fx.svc.GetProgression(fx.ctx, user)
	require.NoError(t, err)
	require.Equal(t, 3, view.Progression.Level)
	require.Equal(t, "gold", view.Progression.RankTier)

	stored, err := fx.prog.Get(fx.dbc, user)
	require.NoError(t, err)
	require.Equal(t, 3, stored.Level)
	require.Equal(t, "gold", stored.RankTier)
}

func TestStrictModePanicsOnCorruptRow(t *testing.T) {
	fx := newProgressionFixture(t, InvariantStrict)
	user := uuid.New()

	bad := types.DefaultProgression(user)
	bad.XP = 10
	bad.Level = 4
	require.NoError(t, fx.prog.Upsert(fx.dbc, bad))

	defer func() {
		r := recover()
		ierr, ok := r.(*InvariantError)
		require.True(t, ok, "expected *InvariantError panic, got %v", r)
		require.Equal(t, user, ierr.UserID)
	}()
	_, _ = fx.svc.OnShip(fx.ctx, user)
	t.Fatalf("OnShip did not panic")
}

func TestConcurrentEventsForOneUserAreSerialised(t *testing.T) {
	fx := newProgressionFixture(t, InvariantStrict)
	user := uuid.New()

	const n = 12
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := fx.svc.OnShip(fx.ctx, user); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	p, err := fx.prog.Get(fx.dbc, user)
	require.NoError(t, err)
	require.Equal(t, n, p.TotalShips)
	require.Equal(t, n*10, p.XP)

	rows, err := fx.ach.ListByUser(fx.dbc, user)
	require.NoError(t, err)
	require.Len(t, rows, 2) // first_ship, ship_10
}

func TestParseInvariantMode(t *testing.T) {
	require.Equal(t, InvariantStrict, ParseInvariantMode(" STRICT "))
	require.Equal(t, InvariantRepair, ParseInvariantMode(""))
	require.Equal(t, InvariantRepair, ParseInvariantMode("repair"))
}
