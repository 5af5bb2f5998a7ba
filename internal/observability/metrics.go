package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/noctisium-backend/internal/platform/logger"
)

// Metrics is the process registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	apiRequests  *series
	apiLatency   *histogram
	apiInflight  *series
	syncWrites   *series
	syncLatency  *histogram
	progEvents   *series
	achievements *series
	sessions     *series
	redisUp      *series
	redisPing    *series
	pgStats      *series
}

var (
	initMu   sync.Mutex
	instance *Metrics
)

// Init creates the registry once; later calls return the same instance.
func Init() *Metrics {
	initMu.Lock()
	defer initMu.Unlock()
	if instance == nil {
		instance = newMetrics()
	}
	return instance
}

// Current returns the registry or nil when metrics are disabled.
func Current() *Metrics {
	initMu.Lock()
	defer initMu.Unlock()
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: newCounter("noctisium_api_requests_total", "Total API requests by method/route/status.", "method", "route", "status"),
		apiLatency: newHistogram(
			"noctisium_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			"method", "route",
		),
		apiInflight:  newGauge("noctisium_api_inflight_requests", "In-flight API requests."),
		syncWrites:   newCounter("noctisium_sync_writes_total", "Synchronizer writes by collection and outcome.", "collection", "outcome"),
		syncLatency:  newHistogram("noctisium_sync_write_duration_seconds", "Optimistic write round trip in seconds by collection.", nil, "collection"),
		progEvents:   newCounter("noctisium_progression_events_total", "Progression events by kind and leveled_up.", "event", "leveled_up"),
		achievements: newCounter("noctisium_achievements_unlocked_total", "Achievement unlocks by id.", "achievement"),
		sessions:     newGauge("noctisium_open_sessions", "Open engine sessions."),
		redisUp:      newGauge("noctisium_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing:    newGauge("noctisium_redis_ping_seconds", "Redis ping latency in seconds."),
		pgStats:      newGauge("noctisium_postgres_pool", "database/sql pool stats.", "stat"),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.syncWrites, m.syncLatency,
		m.progEvents, m.achievements, m.sessions,
		m.redisUp, m.redisPing, m.pgStats,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

// TrackInflight counts one in-flight request until the returned func runs.
func (m *Metrics) TrackInflight() (done func()) {
	if m == nil {
		return func() {}
	}
	m.apiInflight.Add(1)
	return func() { m.apiInflight.Add(-1) }
}

// ObserveSyncWrite records one UpdateValue outcome: committed, rolled_back or rejected.
func (m *Metrics) ObserveSyncWrite(collection, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.syncWrites.Inc(collection, outcome)
	m.syncLatency.Observe(dur.Seconds(), collection)
}

func (m *Metrics) SyncWrites(collection, outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.syncWrites.Value(collection, outcome)
}

func (m *Metrics) IncProgressionEvent(event string, leveledUp bool) {
	if m == nil {
		return
	}
	lv := "false"
	if leveledUp {
		lv = "true"
	}
	m.progEvents.Inc(event, lv)
}

func (m *Metrics) IncAchievement(id string) {
	if m == nil {
		return
	}
	m.achievements.Inc(id)
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Add(1)
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Add(-1)
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("metrics: sql db unavailable", "error", err)
		}
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_seconds")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
