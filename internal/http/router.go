package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/noctisium-backend/internal/http/handlers"
	httpMW "github.com/yungbote/noctisium-backend/internal/http/middleware"
	"github.com/yungbote/noctisium-backend/internal/observability"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	TrackingHandler    *httpH.TrackingHandler
	ProgressionHandler *httpH.ProgressionHandler
	SessionHandler     *httpH.SessionHandler
	RealtimeHandler    *httpH.RealtimeHandler
	HealthHandler      *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	api.Use(httpMW.AttachIdentity())
	{
		// Tracking
		if cfg.TrackingHandler != nil {
			api.PUT("/weeks/:week/kpis/:kpi", cfg.TrackingHandler.UpdateWeeklyKPI)
			api.PUT("/days/:date/metrics/:metric", cfg.TrackingHandler.UpdateDailyMetric)
			api.GET("/weeks/:week/completion", cfg.TrackingHandler.WeekCompletion)
			api.GET("/kpis", cfg.TrackingHandler.ListKPIs)
			api.PUT("/kpis/:kpi", cfg.TrackingHandler.SaveKPI)
		}

		// Progression
		if cfg.ProgressionHandler != nil {
			api.POST("/progression/ship", cfg.ProgressionHandler.Ship)
			api.POST("/progression/content", cfg.ProgressionHandler.Content)
			api.POST("/progression/week-complete", cfg.ProgressionHandler.WeekComplete)
			api.GET("/progression", cfg.ProgressionHandler.Get)
			api.GET("/achievements", cfg.ProgressionHandler.Achievements)
			api.GET("/content", cfg.ProgressionHandler.RecentContent)
		}

		// Session
		if cfg.SessionHandler != nil {
			api.POST("/session/close", cfg.SessionHandler.Close)
		}
	}

	protected := api.Group("/")
	protected.Use(httpMW.RequireIdentity())
	{
		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/realtime/stream", cfg.RealtimeHandler.SSEStream)
		}
	}

	return r
}
