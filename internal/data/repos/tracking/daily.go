package tracking

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/noctisium-backend/internal/domain/tracking"
	"github.com/yungbote/noctisium-backend/internal/platform/dbctx"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
)

type DailyMetricRepo interface {
	Upsert(dbc dbctx.Context, userID uuid.UUID, date, metric string, value float64) error
	Get(dbc dbctx.Context, userID uuid.UUID, date, metric string) (float64, bool, error)
	ListDates(dbc dbctx.Context, userID uuid.UUID, metric string, dates []string) ([]*types.DailyMetric, error)
}

type dailyMetricRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDailyMetricRepo(db *gorm.DB, baseLog *logger.Logger) DailyMetricRepo {
	return &dailyMetricRepo{db: db, log: baseLog.With("repo", "DailyMetricRepo")}
}

func (r *dailyMetricRepo) Upsert(dbc dbctx.Context, userID uuid.UUID, date, metric string, value float64) error {
	now := time.Now().UTC()
	row := &types.DailyMetric{
		UserID:    userID,
		Date:      date,
		Metric:    metric,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}, {Name: "metric"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(row).Error
}

func (r *dailyMetricRepo) Get(dbc dbctx.Context, userID uuid.UUID, date, metric string) (float64, bool, error) {
	var rows []*types.DailyMetric
	if err := dbc.DB(r.db).
		Where("user_id = ? AND date = ? AND metric = ?", userID, date, metric).
		Limit(1).
		Find(&rows).Error; err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].Value, true, nil
}

func (r *dailyMetricRepo) ListDates(dbc dbctx.Context, userID uuid.UUID, metric string, dates []string) ([]*types.DailyMetric, error) {
	var out []*types.DailyMetric
	if userID == uuid.Nil || len(dates) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ? AND metric = ? AND date IN ?", userID, metric, dates).
		Order("date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
