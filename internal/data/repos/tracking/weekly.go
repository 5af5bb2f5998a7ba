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

type WeeklyValueRepo interface {
	Upsert(dbc dbctx.Context, userID uuid.UUID, weekKey, kpiID string, value float64) error
	Get(dbc dbctx.Context, userID uuid.UUID, weekKey, kpiID string) (float64, bool, error)
	GetWeek(dbc dbctx.Context, userID uuid.UUID, weekKey string) (*types.WeeklyRecord, error)
}

type weeklyValueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWeeklyValueRepo(db *gorm.DB, baseLog *logger.Logger) WeeklyValueRepo {
	return &weeklyValueRepo{db: db, log: baseLog.With("repo", "WeeklyValueRepo")}
}

// Upsert writes only value and updated_at on an existing row.
func (r *weeklyValueRepo) Upsert(dbc dbctx.Context, userID uuid.UUID, weekKey, kpiID string, value float64) error {
	now := time.Now().UTC()
	row := &types.WeeklyKPIValue{
		UserID:    userID,
		WeekKey:   weekKey,
		KPIID:     kpiID,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "week_key"}, {Name: "kpi_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(row).Error
}

func (r *weeklyValueRepo) Get(dbc dbctx.Context, userID uuid.UUID, weekKey, kpiID string) (float64, bool, error) {
	var rows []*types.WeeklyKPIValue
	if err := dbc.DB(r.db).
		Where("user_id = ? AND week_key = ? AND kpi_id = ?", userID, weekKey, kpiID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].Value, true, nil
}

func (r *weeklyValueRepo) GetWeek(dbc dbctx.Context, userID uuid.UUID, weekKey string) (*types.WeeklyRecord, error) {
	var rows []*types.WeeklyKPIValue
	if userID != uuid.Nil {
		if err := dbc.DB(r.db).
			Where("user_id = ? AND week_key = ?", userID, weekKey).
			Find(&rows).Error; err != nil {
			return nil, err
		}
	}
	return types.NewWeeklyRecord(userID, weekKey, rows), nil
}
