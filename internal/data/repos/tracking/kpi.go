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

type KPIRepo interface {
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.KPIDefinition, error)
	Get(dbc dbctx.Context, userID uuid.UUID, kpiID string) (*types.KPIDefinition, error)
	Upsert(dbc dbctx.Context, def *types.KPIDefinition) error
}

type kpiRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKPIRepo(db *gorm.DB, baseLog *logger.Logger) KPIRepo {
	return &kpiRepo{db: db, log: baseLog.With("repo", "KPIRepo")}
}

func (r *kpiRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.KPIDefinition, error) {
	var out []*types.KPIDefinition
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("sort_order ASC, kpi_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *kpiRepo) Get(dbc dbctx.Context, userID uuid.UUID, kpiID string) (*types.KPIDefinition, error) {
	if userID == uuid.Nil || kpiID == "" {
		return nil, nil
	}
	var rows []*types.KPIDefinition
	if err := dbc.DB(r.db).
		Where("user_id = ? AND kpi_id = ?", userID, kpiID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *kpiRepo) Upsert(dbc dbctx.Context, def *types.KPIDefinition) error {
	if def == nil || def.UserID == uuid.Nil || def.ID == "" {
		return nil
	}
	if def.Kind == "" {
		def.Kind = types.KPIKindCounter
	}
	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now

	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "kpi_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "target", "unit", "color", "kind", "auto_sync_source",
				"weight", "sort_order", "active", "updated_at",
			}),
		}).
		Create(def).Error
}
