package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/noctisium-backend/internal/completion"
	"github.com/yungbote/noctisium-backend/internal/data/repos"
	types "github.com/yungbote/noctisium-backend/internal/domain/tracking"
	"github.com/yungbote/noctisium-backend/internal/platform/dbctx"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
	"github.com/yungbote/noctisium-backend/internal/syncer"
)

// MetricStore is the remote side of the synchronizer: weekly KPI values and
// daily metrics keyed by (user, period, sub-key). Daily writes are mirrored
// into the weekly rollup table.
type MetricStore struct {
	db      *gorm.DB
	log     *logger.Logger
	weekly  repos.WeeklyValueRepo
	daily   repos.DailyMetricRepo
	rollups repos.RollupRepo
}

func NewMetricStore(
	db *gorm.DB,
	baseLog *logger.Logger,
	weekly repos.WeeklyValueRepo,
	daily repos.DailyMetricRepo,
	rollups repos.RollupRepo,
) *MetricStore {
	return &MetricStore{
		db:      db,
		log:     baseLog.With("service", "MetricStore"),
		weekly:  weekly,
		daily:   daily,
		rollups: rollups,
	}
}

var (
	_ syncer.Remote = (*MetricStore)(nil)
	_ syncer.Mirror = (*MetricStore)(nil)
)

func (s *MetricStore) Upsert(ctx context.Context, key syncer.Key, value float64) error {
	dbc := dbctx.Context{Ctx: ctx}
	var err error
	switch key.Collection {
	case syncer.CollectionWeeklyKPI:
		err = s.weekly.Upsert(dbc, key.UserID, key.Period, key.SubKey, value)
	case syncer.CollectionDailyMetric:
		err = s.daily.Upsert(dbc, key.UserID, key.Period, key.SubKey, value)
	default:
		return fmt.Errorf("unknown collection %q", key.Collection)
	}
	if repos.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", syncer.ErrConflict, err)
	}
	return err
}

func (s *MetricStore) Select(ctx context.Context, key syncer.Key) (float64, bool, error) {
	dbc := dbctx.Context{Ctx: ctx}
	switch key.Collection {
	case syncer.CollectionWeeklyKPI:
		return s.weekly.Get(dbc, key.UserID, key.Period, key.SubKey)
	case syncer.CollectionDailyMetric:
		return s.daily.Get(dbc, key.UserID, key.Period, key.SubKey)
	}
	return 0, false, fmt.Errorf("unknown collection %q", key.Collection)
}

// Mirror recomputes the weekly rollup for a daily metric from the stored days.
func (s *MetricStore) Mirror(ctx context.Context, key syncer.Key, _ float64) error {
	if key.Collection != syncer.CollectionDailyMetric {
		return nil
	}
	week, err := completion.WeekKeyForDate(key.Period)
	if err != nil {
		return err
	}
	dates, err := completion.WeekDates(week)
	if err != nil {
		return err
	}
	dbc := dbctx.Context{Ctx: ctx}
	rows, err := s.daily.ListDates(dbc, key.UserID, key.SubKey, dates)
	if err != nil {
		return fmt.Errorf("load week %s: %w", week, err)
	}
	rollup := &types.WeeklyMetricRollup{UserID: key.UserID, WeekKey: week, Metric: key.SubKey}
	for _, r := range rows {
		rollup.Total += r.Value
		rollup.Days++
	}
	return s.rollups.Upsert(dbc, rollup)
}
