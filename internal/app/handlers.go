package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/noctisium-backend/internal/http/handlers"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
	"github.com/yungbote/noctisium-backend/internal/realtime"
)

type Handlers struct {
	Health      *httpH.HealthHandler
	Tracking    *httpH.TrackingHandler
	Progression *httpH.ProgressionHandler
	Session     *httpH.SessionHandler
	Realtime    *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, s Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(db),
		Tracking:    httpH.NewTrackingHandler(s.Tracking, s.Sessions),
		Progression: httpH.NewProgressionHandler(log, s.Progression, hub),
		Session:     httpH.NewSessionHandler(s.Sessions),
		Realtime:    httpH.NewRealtimeHandler(log, hub, s.Sessions),
	}
}
