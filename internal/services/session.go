package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/noctisium-backend/internal/cache"
	"github.com/yungbote/noctisium-backend/internal/completion"
	"github.com/yungbote/noctisium-backend/internal/data/repos"
	"github.com/yungbote/noctisium-backend/internal/observability"
	"github.com/yungbote/noctisium-backend/internal/platform/apierr"
	"github.com/yungbote/noctisium-backend/internal/platform/dbctx"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
	"github.com/yungbote/noctisium-backend/internal/realtime"
	"github.com/yungbote/noctisium-backend/internal/realtime/invalidation"
	"github.com/yungbote/noctisium-backend/internal/syncer"
)

var errSessionUserMismatch = errors.New("session belongs to another user")

// Session is the per-sign-in service object: it owns the synchronizer whose
// cache entries are prefixed by the session id and the bus scope whose
// handlers are torn down with it.
type Session struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Sync   *syncer.Synchronizer
	Scope  *invalidation.Scope

	lastSeen time.Time // guarded by sessionManager.mu
}

type SessionManager interface {
	// Open returns the live session for sessionID, creating and hydrating it on
	// first use. Nil ids yield a nil session and no error.
	Open(ctx context.Context, userID, sessionID uuid.UUID) (*Session, error)
	Get(sessionID uuid.UUID) *Session
	// Close discards the session's cache entries and subscriptions.
	Close(ctx context.Context, sessionID uuid.UUID) error
	CloseAll(ctx context.Context)
	// ReapIdle closes sessions untouched for longer than idle that have no
	// live stream, returning how many it closed.
	ReapIdle(ctx context.Context, idle time.Duration) int
	// RunReaper calls ReapIdle periodically until ctx is done.
	RunReaper(ctx context.Context, idle time.Duration) error
}

type sessionManager struct {
	log    *logger.Logger
	cache  cache.Store
	store  *MetricStore
	weekly repos.WeeklyValueRepo
	bus    *invalidation.Bus
	hub    *realtime.SSEHub
	now    func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewSessionManager(
	baseLog *logger.Logger,
	store cache.Store,
	metrics *MetricStore,
	weekly repos.WeeklyValueRepo,
	bus *invalidation.Bus,
	hub *realtime.SSEHub,
) SessionManager {
	return &sessionManager{
		log:      baseLog.With("service", "SessionManager"),
		cache:    store,
		store:    metrics,
		weekly:   weekly,
		bus:      bus,
		hub:      hub,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (m *sessionManager) Open(ctx context.Context, userID, sessionID uuid.UUID) (*Session, error) {
	if userID == uuid.Nil || sessionID == uuid.Nil {
		return nil, nil
	}

	m.mu.Lock()
	if s, ok := m.sessions[sessionID]; ok {
		if s.UserID != userID {
			m.mu.Unlock()
			return nil, apierr.New(http.StatusForbidden, "session_user_mismatch", errSessionUserMismatch)
		}
		s.lastSeen = m.now()
		m.mu.Unlock()
		return s, nil
	}

	scope := m.bus.Session(userID)
	synchronizer, err := syncer.New(syncer.Options{
		Log:       m.log,
		Cache:     m.cache,
		Remote:    m.store,
		Mirror:    m.store,
		SessionID: sessionID.String(),
		OnChange: func(syncer.Key) {
			scope.Publish(invalidation.TopicKPIData, "syncer")
		},
	})
	if err != nil {
		m.mu.Unlock()
		scope.Close()
		return nil, fmt.Errorf("new synchronizer: %w", err)
	}
	s := &Session{ID: sessionID, UserID: userID, Sync: synchronizer, Scope: scope, lastSeen: m.now()}
	if m.hub != nil {
		if err := realtime.Bridge(m.hub, scope, realtime.SessionChannel(sessionID)); err != nil {
			m.mu.Unlock()
			scope.Close()
			return nil, fmt.Errorf("bridge session: %w", err)
		}
	}
	m.sessions[sessionID] = s
	m.mu.Unlock()

	if err := m.hydrate(ctx, s); err != nil {
		m.log.Warn("session hydrate failed; values load lazily", "session_id", sessionID, "error", err)
	}
	observability.Current().SessionOpened()
	m.log.Info("Session opened", "user_id", userID, "session_id", sessionID)
	return s, nil
}

// hydrate loads the current and previous week's KPI values into the cache.
func (m *sessionManager) hydrate(ctx context.Context, s *Session) error {
	now := m.now().UTC()
	weeks := []string{completion.WeekKey(now), completion.WeekKey(now.AddDate(0, 0, -7))}

	var mu sync.Mutex
	values := make(map[syncer.Key]float64)
	g, gctx := errgroup.WithContext(ctx)
	for _, wk := range weeks {
		wk := wk
		g.Go(func() error {
			rec, err := m.weekly.GetWeek(dbctx.Context{Ctx: gctx}, s.UserID, wk)
			if err != nil {
				return fmt.Errorf("week %s: %w", wk, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for kpi, v := range rec.Values {
				values[syncer.WeeklyKPI(s.UserID, wk, kpi)] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return s.Sync.Hydrate(ctx, values)
}

func (m *sessionManager) Get(sessionID uuid.UUID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[sessionID]
	if s != nil {
		s.lastSeen = m.now()
	}
	return s
}

func (m *sessionManager) Close(ctx context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return m.teardown(ctx, s)
}

func (m *sessionManager) teardown(ctx context.Context, s *Session) error {
	sessionID := s.ID
	s.Scope.Close()
	observability.Current().SessionClosed()
	if m.hub != nil {
		m.hub.Broadcast(realtime.SSEMessage{
			Channel: realtime.SessionChannel(sessionID),
			Event:   realtime.SSEEventSessionClosed,
		})
	}
	if err := s.Sync.Discard(ctx); err != nil {
		return fmt.Errorf("discard session cache: %w", err)
	}
	m.log.Info("Session closed", "user_id", s.UserID, "session_id", sessionID)
	return nil
}

func (m *sessionManager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	ids := make([]uuid.UUID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		if err := m.Close(ctx, id); err != nil {
			m.log.Warn("session close failed", "session_id", id, "error", err)
		}
	}
}

func (m *sessionManager) ReapIdle(ctx context.Context, idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	now := m.now()
	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) <= idle {
			continue
		}
		// an open stream keeps the session alive.
		if m.hub != nil && m.hub.ChannelSize(realtime.SessionChannel(id)) > 0 {
			s.lastSeen = now
			continue
		}
		delete(m.sessions, id)
		expired = append(expired, s)
	}
	m.mu.Unlock()

	for _, s := range expired {
		if err := m.teardown(ctx, s); err != nil {
			m.log.Warn("idle session teardown failed", "session_id", s.ID, "error", err)
		}
	}
	if len(expired) > 0 {
		m.log.Info("Reaped idle sessions", "count", len(expired), "idle", idle.String())
	}
	return len(expired)
}

func (m *sessionManager) RunReaper(ctx context.Context, idle time.Duration) error {
	if idle <= 0 {
		return nil
	}
	every := idle / 4
	if every < time.Second {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.ReapIdle(ctx, idle)
		}
	}
}
