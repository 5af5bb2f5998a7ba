package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/noctisium-backend/internal/data/changefeed"
	httpx "github.com/yungbote/noctisium-backend/internal/http"
	"github.com/yungbote/noctisium-backend/internal/observability"
	"github.com/yungbote/noctisium-backend/internal/platform/envutil"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
	"github.com/yungbote/noctisium-backend/internal/realtime"
	"github.com/yungbote/noctisium-backend/internal/realtime/bus"
	"github.com/yungbote/noctisium-backend/internal/realtime/invalidation"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  *Clients
	Repos    Repos
	Services Services
	Bus      *invalidation.Bus
	SSEHub   *realtime.SSEHub
	Server   *httpx.Server
	Metrics  *observability.Metrics

	relay        bus.Bus
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
	group        *errgroup.Group
}

func New() (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, cfg.Otel)
	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.Init()
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	localBus := invalidation.NewBus(log)
	hub := realtime.NewSSEHub(log)
	reposet := wireRepos(clients.DB, log)
	serviceset, err := wireServices(log, cfg, clients, reposet, localBus, hub)
	if err != nil {
		localBus.Close()
		clients.Close()
		log.Sync()
		return nil, err
	}
	handlerset := wireHandlers(log, clients.DB, serviceset, hub)
	server := httpx.NewServer(httpx.RouterConfig{
		Log:                log,
		ServiceName:        cfg.Otel.ServiceName,
		CORSOrigins:        cfg.CORSOrigins,
		Metrics:            metrics,
		TrackingHandler:    handlerset.Tracking,
		ProgressionHandler: handlerset.Progression,
		SessionHandler:     handlerset.Session,
		RealtimeHandler:    handlerset.Realtime,
		HealthHandler:      handlerset.Health,
	})

	a := &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Bus:          localBus,
		SSEHub:       hub,
		Server:       server,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}
	if clients.Redis != nil {
		a.relay = bus.NewRedisBusFromClient(log, clients.Redis, cfg.RedisChannel)
	}
	return a, nil
}

// Start launches the background workers: the cross-instance relay, the
// Postgres change feed, the idle session reaper and the metrics collectors.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	a.group = g

	if a.relay != nil {
		if err := bus.Relay(gctx, a.relay, a.Bus); err != nil {
			return fmt.Errorf("start invalidation relay: %w", err)
		}
		a.Log.Info("Cross-instance invalidation relay started", "channel", a.Cfg.RedisChannel)
	}
	if a.Cfg.ChangefeedEnabled && a.Clients.PostgresDSN != "" {
		feed := changefeed.New(a.Log, a.Clients.PostgresDSN, a.Bus)
		g.Go(func() error { return feed.Run(gctx) })
	}
	if a.Cfg.SessionIdleTimeout > 0 {
		g.Go(func() error { return a.Services.Sessions.RunReaper(gctx, a.Cfg.SessionIdleTimeout) })
	}
	if a.Metrics != nil {
		a.Metrics.StartServer(gctx, a.Log, a.Cfg.MetricsAddr)
		a.Metrics.StartPostgresCollector(gctx, a.Log, a.Clients.DB, 15*time.Second)
		a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis, 15*time.Second)
	}
	return nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "port", a.Cfg.Port)
	return a.Server.Run(":" + a.Cfg.Port)
}

// Shutdown ends the event streams, drains HTTP, closes every session and
// stops the workers.
func (a *App) Shutdown(ctx context.Context) {
	if a == nil {
		return
	}
	// Server.Shutdown cannot drain while a stream is open.
	if n := a.SSEHub.CloseAll(); n > 0 {
		a.Log.Info("Closed event streams", "count", n)
	}
	if err := a.Server.Shutdown(ctx); err != nil {
		a.Log.Warn("http shutdown", "error", err)
	}
	a.Services.Sessions.CloseAll(ctx)
	if a.cancel != nil {
		a.cancel()
		if err := a.group.Wait(); err != nil {
			a.Log.Warn("background worker exited with error", "error", err)
		}
		a.cancel = nil
	}
	// the relay shares the redis client; Clients.Close releases it.
	a.Bus.Close()
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	a.Clients.Close()
	a.Log.Sync()
}
