package tracking

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/noctisium-backend/internal/domain/tracking"
	"github.com/yungbote/noctisium-backend/internal/platform/dbctx"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
)

type ContentItemRepo interface {
	Create(dbc dbctx.Context, item *types.ContentItem) error
	ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ContentItem, error)
}

type contentItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentItemRepo(db *gorm.DB, baseLog *logger.Logger) ContentItemRepo {
	return &contentItemRepo{db: db, log: baseLog.With("repo", "ContentItemRepo")}
}

func (r *contentItemRepo) Create(dbc dbctx.Context, item *types.ContentItem) error {
	if item == nil || item.UserID == uuid.Nil {
		return nil
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.PublishedAt.IsZero() {
		item.PublishedAt = time.Now().UTC()
	}
	return dbc.DB(r.db).Create(item).Error
}

func (r *contentItemRepo) ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ContentItem, error) {
	var out []*types.ContentItem
	if userID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("published_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
