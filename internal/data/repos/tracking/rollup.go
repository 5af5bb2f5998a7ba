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

type RollupRepo interface {
	Upsert(dbc dbctx.Context, row *types.WeeklyMetricRollup) error
	Get(dbc dbctx.Context, userID uuid.UUID, weekKey, metric string) (*types.WeeklyMetricRollup, error)
}

type rollupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRollupRepo(db *gorm.DB, baseLog *logger.Logger) RollupRepo {
	return &rollupRepo{db: db, log: baseLog.With("repo", "RollupRepo")}
}

func (r *rollupRepo) Upsert(dbc dbctx.Context, row *types.WeeklyMetricRollup) error {
	if row == nil || row.UserID == uuid.Nil {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "week_key"}, {Name: "metric"}},
			DoUpdates: clause.AssignmentColumns([]string{"total", "days", "updated_at"}),
		}).
		Create(row).Error
}

func (r *rollupRepo) Get(dbc dbctx.Context, userID uuid.UUID, weekKey, metric string) (*types.WeeklyMetricRollup, error) {
	var rows []*types.WeeklyMetricRollup
	if err := dbc.DB(r.db).
		Where("user_id = ? AND week_key = ? AND metric = ?", userID, weekKey, metric).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
