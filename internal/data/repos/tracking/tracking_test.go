package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/noctisium-backend/internal/data/repos/testutil"
	types "github.com/yungbote/noctisium-backend/internal/domain/tracking"
	"github.com/yungbote/noctisium-backend/internal/platform/dbctx"
)

func f(v float64) *float64 { return &v }

func TestWeeklyValueUpsertKeepsOtherKPIs(t *testing.T) {
	db := testutil.DB(t)
	repo := NewWeeklyValueRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	user := uuid.New()

	if err := repo.Upsert(dbc, user, "2025-W17", "a", 2); err != nil {
		t.Fatalf("Upsert a: %v", err)
	}
	if err := repo.Upsert(dbc, user, "2025-W17", "b", 5); err != nil {
		t.Fatalf("Upsert b: %v", err)
	}
	if err := repo.Upsert(dbc, user, "2025-W17", "a", 4); err != nil {
		t.Fatalf("Upsert a again: %v", err)
	}

	rec, err := repo.GetWeek(dbc, user, "2025-W17")
	if err != nil {
		t.Fatalf("GetWeek: %v", err)
	}
	if len(rec.Values) != 2 || rec.Values["a"] != 4 || rec.Values["b"] != 5 {
		t.Fatalf("unexpected week record: %+v", rec.Values)
	}

	if _, ok, err := repo.Get(dbc, user, "2025-W18", "a"); err != nil || ok {
		t.Fatalf("Get missing: ok=%v err=%v", ok, err)
	}
}

func TestDailyMetricListDates(t *testing.T) {
	db := testutil.DB(t)
	repo := NewDailyMetricRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	user := uuid.New()

	for date, v := range map[string]float64{"2025-04-21": 7, "2025-04-22": 6.5, "2025-04-30": 8} {
		if err := repo.Upsert(dbc, user, date, "sleep_hours", v); err != nil {
			t.Fatalf("Upsert %s: %v", date, err)
		}
	}
	rows, err := repo.ListDates(dbc, user, "sleep_hours", []string{"2025-04-21", "2025-04-22", "2025-04-23"})
	if err != nil {
		t.Fatalf("ListDates: %v", err)
	}
	if len(rows) != 2 || rows[0].Date != "2025-04-21" || rows[1].Value != 6.5 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestProgressionUpsertCreatesThenUpdates(t *testing.T) {
	db := testutil.DB(t)
	repo := NewProgressionRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	user := uuid.New()

	got, err := repo.Get(dbc, user)
	if err != nil || got != nil {
		t.Fatalf("Get before create: got=%+v err=%v", got, err)
	}

	p := types.DefaultProgression(user)
	p.XP = 40
	if err := repo.Upsert(dbc, p); err != nil {
		t.Fatalf("Upsert create: %v", err)
	}
	created := p.CreatedAt

	p.XP = 140
	p.Level = 2
	p.TotalShips = 3
	if err := repo.Upsert(dbc, p); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}

	got, err = repo.Get(dbc, user)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.XP != 140 || got.Level != 2 || got.TotalShips != 3 || got.RankTier != "bronze" {
		t.Fatalf("unexpected row: %+v", got)
	}
	if d := got.CreatedAt.Sub(created); d > time.Millisecond || d < -time.Millisecond {
		t.Fatalf("created_at rewritten: %v != %v", got.CreatedAt, created)
	}
}

func TestAchievementUnlockIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	repo := NewAchievementRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	user := uuid.New()

	inserted, err := repo.Unlock(dbc, &types.UnlockedAchievement{UserID: user, AchievementID: "first_ship"})
	if err != nil || !inserted {
		t.Fatalf("first unlock: inserted=%v err=%v", inserted, err)
	}

	var wg sync.WaitGroup
	results := make([]bool, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repo.Unlock(dbc, &types.UnlockedAchievement{UserID: user, AchievementID: "first_ship"})
		}(i)
	}
	wg.Wait()
	for i := range results {
		if errs[i] != nil || results[i] {
			t.Fatalf("duplicate unlock %d: inserted=%v err=%v", i, results[i], errs[i])
		}
	}

	rows, err := repo.ListByUser(dbc, user)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 unlock, got %d", len(rows))
	}
}

func TestKPIUpsertAndOrder(t *testing.T) {
	db := testutil.DB(t)
	repo := NewKPIRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	user := uuid.New()

	defs := []*types.KPIDefinition{
		{UserID: user, ID: "deep_work", Name: "Deep work", Target: f(20), SortOrder: 2, Active: true},
		{UserID: user, ID: "ships", Name: "Ships", Target: f(3), SortOrder: 1, Active: true},
	}
	for _, d := range defs {
		if err := repo.Upsert(dbc, d); err != nil {
			t.Fatalf("Upsert %s: %v", d.ID, err)
		}
	}
	defs[0].Target = f(25)
	if err := repo.Upsert(dbc, defs[0]); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}

	got, err := repo.ListByUser(dbc, user)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 2 || got[0].ID != "ships" || got[1].ID != "deep_work" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[1].Target == nil || *got[1].Target != 25 || got[1].Kind != types.KPIKindCounter {
		t.Fatalf("unexpected deep_work row: %+v", got[1])
	}

	one, err := repo.Get(dbc, user, "ships")
	if err != nil || one == nil || one.Name != "Ships" {
		t.Fatalf("Get: %+v err=%v", one, err)
	}
}

func TestRollupAndContent(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	user := uuid.New()

	rollups := NewRollupRepo(db, log)
	if err := rollups.Upsert(dbc, &types.WeeklyMetricRollup{UserID: user, WeekKey: "2025-W17", Metric: "sleep_hours", Total: 13.5, Days: 2}); err != nil {
		t.Fatalf("rollup Upsert: %v", err)
	}
	if err := rollups.Upsert(dbc, &types.WeeklyMetricRollup{UserID: user, WeekKey: "2025-W17", Metric: "sleep_hours", Total: 21.5, Days: 3}); err != nil {
		t.Fatalf("rollup Upsert again: %v", err)
	}
	r, err := rollups.Get(dbc, user, "2025-W17", "sleep_hours")
	if err != nil || r == nil || r.Total != 21.5 || r.Days != 3 {
		t.Fatalf("rollup Get: %+v err=%v", r, err)
	}

	content := NewContentItemRepo(db, log)
	if err := content.Create(dbc, &types.ContentItem{UserID: user, Title: "post"}); err != nil {
		t.Fatalf("content Create: %v", err)
	}
	items, err := content.ListRecent(dbc, user, 0)
	if err != nil || len(items) != 1 {
		t.Fatalf("ListRecent: %+v err=%v", items, err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errString("UNIQUE constraint failed: unlocked_achievements.user_id"), true},
		{errString("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"), true},
		{errString("connection refused"), false},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err); got != tc.want {
			t.Fatalf("IsUniqueViolation(%v)=%v want %v", tc.err, got, tc.want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }
