package repos

import (
	"github.com/yungbote/noctisium-backend/internal/data/repos/tracking"
)

type KPIRepo = tracking.KPIRepo
type WeeklyValueRepo = tracking.WeeklyValueRepo
type DailyMetricRepo = tracking.DailyMetricRepo
type RollupRepo = tracking.RollupRepo
type ProgressionRepo = tracking.ProgressionRepo
type AchievementRepo = tracking.AchievementRepo
type ContentItemRepo = tracking.ContentItemRepo

var (
	NewKPIRepo         = tracking.NewKPIRepo
	NewWeeklyValueRepo = tracking.NewWeeklyValueRepo
	NewDailyMetricRepo = tracking.NewDailyMetricRepo
	NewRollupRepo      = tracking.NewRollupRepo
	NewProgressionRepo = tracking.NewProgressionRepo
	NewAchievementRepo = tracking.NewAchievementRepo
	NewContentItemRepo = tracking.NewContentItemRepo
)

var IsUniqueViolation = tracking.IsUniqueViolation
