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

type ProgressionRepo interface {
	// Get returns nil when the user has no row yet.
	Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserProgression, error)
	Upsert(dbc dbctx.Context, p *types.UserProgression) error
}

type progressionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressionRepo(db *gorm.DB, baseLog *logger.Logger) ProgressionRepo {
	return &progressionRepo{db: db, log: baseLog.With("repo", "ProgressionRepo")}
}

func (r *progressionRepo) Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserProgression, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var rows []*types.UserProgression
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Upsert writes every progression field in one statement.
func (r *progressionRepo) Upsert(dbc dbctx.Context, p *types.UserProgression) error {
	if p == nil || p.UserID == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"level", "xp", "rank_tier", "rr_points",
				"current_streak", "longest_streak",
				"weeks_completed", "perfect_weeks",
				"total_ships", "total_content",
				"updated_at",
			}),
		}).
		Create(p).Error
}
