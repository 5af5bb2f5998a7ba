package app

import (
	"fmt"
	"os"

	"github.com/yungbote/noctisium-backend/internal/cache"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
	"github.com/yungbote/noctisium-backend/internal/progression"
	"github.com/yungbote/noctisium-backend/internal/realtime"
	"github.com/yungbote/noctisium-backend/internal/realtime/invalidation"
	"github.com/yungbote/noctisium-backend/internal/services"
)

type Services struct {
	Metrics     *services.MetricStore
	Sessions    services.SessionManager
	Tracking    services.TrackingService
	Progression services.ProgressionService
}

func wireCache(log *logger.Logger, cfg Config, clients *Clients) cache.Store {
	if cfg.CacheBackend == "redis" && clients.Redis != nil {
		log.Info("Using redis session cache", "ttl", cfg.CacheTTL.String())
		return cache.NewRedisStoreFromClient(log, clients.Redis, "noctisium:cache", cfg.CacheTTL)
	}
	return cache.NewMemoryStore()
}

func loadCatalog(log *logger.Logger, path string) (*progression.Catalog, error) {
	if path == "" {
		return progression.DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read achievement catalog: %w", err)
	}
	catalog, err := progression.ParseCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("parse achievement catalog: %w", err)
	}
	log.Info("Loaded achievement catalog", "path", path, "version", catalog.Version(), "count", len(catalog.All()))
	return catalog, nil
}

func wireServices(
	log *logger.Logger,
	cfg Config,
	clients *Clients,
	r Repos,
	bus *invalidation.Bus,
	hub *realtime.SSEHub,
) (Services, error) {
	log.Info("Wiring services...")
	catalog, err := loadCatalog(log, cfg.CatalogPath)
	if err != nil {
		return Services{}, err
	}
	store := services.NewMetricStore(clients.DB, log, r.Weekly, r.Daily, r.Rollup)
	return Services{
		Metrics:  store,
		Sessions: services.NewSessionManager(log, wireCache(log, cfg, clients), store, r.Weekly, bus, hub),
		Tracking: services.NewTrackingService(clients.DB, log, r.KPI, r.Rollup, bus),
		Progression: services.NewProgressionService(
			clients.DB, log,
			r.Progression, r.Achievement, r.ContentItems,
			catalog, bus, cfg.InvariantMode,
		),
	}, nil
}
