package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/noctisium-backend/internal/data/repos"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
)

type Repos struct {
	KPI          repos.KPIRepo
	Weekly       repos.WeeklyValueRepo
	Daily        repos.DailyMetricRepo
	Rollup       repos.RollupRepo
	Progression  repos.ProgressionRepo
	Achievement  repos.AchievementRepo
	ContentItems repos.ContentItemRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		KPI:          repos.NewKPIRepo(db, log),
		Weekly:       repos.NewWeeklyValueRepo(db, log),
		Daily:        repos.NewDailyMetricRepo(db, log),
		Rollup:       repos.NewRollupRepo(db, log),
		Progression:  repos.NewProgressionRepo(db, log),
		Achievement:  repos.NewAchievementRepo(db, log),
		ContentItems: repos.NewContentItemRepo(db, log),
	}
}
