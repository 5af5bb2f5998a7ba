package tracking

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserProgression is the single gamification row per user. XP is the source of
// truth; Level and RankTier are always derivable from XP and RRPoints.
type UserProgression struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Level          int       `gorm:"column:level;not null;default:1" json:"level"`
	XP             int       `gorm:"column:xp;not null;default:0" json:"xp"`
	RankTier       string    `gorm:"column:rank_tier;type:text;not null;default:'bronze'" json:"rank_tier"`
	RRPoints       int       `gorm:"column:rr_points;not null;default:0" json:"rr_points"`
	CurrentStreak  int       `gorm:"column:current_streak;not null;default:0" json:"current_streak"`
	LongestStreak  int       `gorm:"column:longest_streak;not null;default:0" json:"longest_streak"`
	WeeksCompleted int       `gorm:"column:weeks_completed;not null;default:0" json:"weeks_completed"`
	PerfectWeeks   int       `gorm:"column:perfect_weeks;not null;default:0" json:"perfect_weeks"`
	TotalShips     int       `gorm:"column:total_ships;not null;default:0" json:"total_ships"`
	TotalContent   int       `gorm:"column:total_content;not null;default:0" json:"total_content"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (UserProgression) TableName() string { return "user_progression" }

// DefaultProgression is the row a user starts with.
func DefaultProgression(userID uuid.UUID) *UserProgression {
	return &UserProgression{
		UserID:   userID,
		Level:    1,
		RankTier: "bronze",
	}
}

// UnlockedAchievement records a one-time unlock; (user_id, achievement_id) is unique.
type UnlockedAchievement struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievement,priority:1" json:"user_id"`
	AchievementID  string         `gorm:"column:achievement_id;type:text;not null;uniqueIndex:idx_user_achievement,priority:2" json:"achievement_id"`
	CatalogVersion int            `gorm:"column:catalog_version;not null;default:1" json:"catalog_version"`
	Snapshot       datatypes.JSON `gorm:"column:snapshot" json:"snapshot,omitempty"`
	UnlockedAt     time.Time      `gorm:"column:unlocked_at;not null;index" json:"unlocked_at"`
}

func (UnlockedAchievement) TableName() string { return "unlocked_achievements" }

// ContentItem is one published piece of content logged through the content event.
type ContentItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string    `gorm:"column:title;type:text" json:"title,omitempty"`
	Platform    string    `gorm:"column:platform;type:text" json:"platform,omitempty"`
	PublishedAt time.Time `gorm:"column:published_at;not null;index" json:"published_at"`
}

func (ContentItem) TableName() string { return "content_items" }
