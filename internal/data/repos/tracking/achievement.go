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

type AchievementRepo interface {
	// Unlock inserts row unless (user_id, achievement_id) exists. inserted is false on a duplicate.
	Unlock(dbc dbctx.Context, row *types.UnlockedAchievement) (inserted bool, err error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UnlockedAchievement, error)
}

type achievementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAchievementRepo(db *gorm.DB, baseLog *logger.Logger) AchievementRepo {
	return &achievementRepo{db: db, log: baseLog.With("repo", "AchievementRepo")}
}

func (r *achievementRepo) Unlock(dbc dbctx.Context, row *types.UnlockedAchievement) (bool, error) {
	if row == nil || row.UserID == uuid.Nil || row.AchievementID == "" {
		return false, nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.UnlockedAt.IsZero() {
		row.UnlockedAt = time.Now().UTC()
	}

	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			r.log.Debug("duplicate unlock ignored", "user_id", row.UserID, "achievement", row.AchievementID)
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *achievementRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UnlockedAchievement, error) {
	var out []*types.UnlockedAchievement
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("unlocked_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
