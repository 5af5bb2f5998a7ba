package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/noctisium-backend/internal/data/repos"
	types "github.com/yungbote/noctisium-backend/internal/domain/tracking"
	"github.com/yungbote/noctisium-backend/internal/observability"
	"github.com/yungbote/noctisium-backend/internal/platform/dbctx"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
	"github.com/yungbote/noctisium-backend/internal/progression"
	"github.com/yungbote/noctisium-backend/internal/realtime/invalidation"
)

type InvariantMode string

const (
	// InvariantStrict panics with *InvariantError on a corrupt progression row.
	InvariantStrict InvariantMode = "strict"
	// InvariantRepair logs and recomputes derived fields from xp and rr.
	InvariantRepair InvariantMode = "repair"
)

func ParseInvariantMode(s string) InvariantMode {
	if strings.EqualFold(strings.TrimSpace(s), string(InvariantStrict)) {
		return InvariantStrict
	}
	return InvariantRepair
}

type InvariantError struct {
	UserID     uuid.UUID
	Violations []progression.Violation
}

func (e *InvariantError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("progression invariant violated for user %s: %s", e.UserID, strings.Join(parts, "; "))
}

// NoticePublisher is the slice of the invalidation bus the services publish on.
type NoticePublisher interface {
	PublishFor(topic invalidation.Topic, userID uuid.UUID, origin string)
}

// Outcome is what a progression event reports back for UI feedback.
type Outcome struct {
	XPGained    int                       `json:"xp_gained"`
	LeveledUp   bool                      `json:"leveled_up"`
	NewLevel    int                       `json:"new_level"`
	RankChanged bool                      `json:"rank_changed"`
	Progression *types.UserProgression    `json:"progression,omitempty"`
	Unlocked    []progression.Achievement `json:"unlocked,omitempty"`
}

type UnlockedView struct {
	progression.Achievement
	UnlockedAt string `json:"unlocked_at"`
}

type AchievementSummary struct {
	Unlocked []UnlockedView            `json:"unlocked"`
	Locked   []progression.Achievement `json:"locked"`
}

type ProgressionView struct {
	Progression *types.UserProgression    `json:"progression"`
	Level       progression.LevelProgress `json:"level"`
	Rank        progression.RankProgress  `json:"rank"`
}

type ProgressionService interface {
	OnShip(ctx context.Context, userID uuid.UUID) (Outcome, error)
	OnContent(ctx context.Context, userID uuid.UUID, item *types.ContentItem) (Outcome, error)
	OnWeekComplete(ctx context.Context, userID uuid.UUID, completionPct float64, rrDelta int) (Outcome, error)
	GetProgression(ctx context.Context, userID uuid.UUID) (*ProgressionView, error)
	GetAchievements(ctx context.Context, userID uuid.UUID) (*AchievementSummary, error)
	RecentContent(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ContentItem, error)
}

type progressionService struct {
	db           *gorm.DB
	log          *logger.Logger
	progression  repos.ProgressionRepo
	achievements repos.AchievementRepo
	content      repos.ContentItemRepo
	catalog      *progression.Catalog
	pub          NoticePublisher
	mode         InvariantMode
	tracer       trace.Tracer

	locksMu sync.Mutex
	locks   map[uuid.UUID]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewProgressionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	progressionRepo repos.ProgressionRepo,
	achievementRepo repos.AchievementRepo,
	contentRepo repos.ContentItemRepo,
	catalog *progression.Catalog,
	pub NoticePublisher,
	mode InvariantMode,
) ProgressionService {
	if catalog == nil {
		catalog = progression.DefaultCatalog()
	}
	return &progressionService{
		db:           db,
		log:          baseLog.With("service", "ProgressionService"),
		progression:  progressionRepo,
		achievements: achievementRepo,
		content:      contentRepo,
		catalog:      catalog,
		pub:          pub,
		mode:         mode,
		tracer:       otel.Tracer("noctisium/services"),
		locks:        make(map[uuid.UUID]*userLock),
	}
}

// lock serialises events for one user; the returned func releases it.
func (s *progressionService) lock(userID uuid.UUID) func() {
	s.locksMu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.locksMu.Unlock()
	}
}

func (s *progressionService) OnShip(ctx context.Context, userID uuid.UUID) (Outcome, error) {
	return s.handle(ctx, userID, progression.Ship())
}

func (s *progressionService) OnContent(ctx context.Context, userID uuid.UUID, item *types.ContentItem) (Outcome, error) {
	if userID == uuid.Nil {
		return Outcome{}, nil
	}
	if item != nil {
		item.UserID = userID
		if err := s.content.Create(dbctx.Context{Ctx: ctx}, item); err != nil {
			return Outcome{}, fmt.Errorf("record content item: %w", err)
		}
		s.publish(invalidation.TopicContent, userID)
	}
	return s.handle(ctx, userID, progression.Content())
}

func (s *progressionService) OnWeekComplete(ctx context.Context, userID uuid.UUID, completionPct float64, rrDelta int) (Outcome, error) {
	return s.handle(ctx, userID, progression.WeekComplete(completionPct, rrDelta))
}

func (s *progressionService) handle(ctx context.Context, userID uuid.UUID, ev progression.Event) (Outcome, error) {
	if userID == uuid.Nil {
		return Outcome{}, nil
	}
	ctx, span := s.tracer.Start(ctx, "progression."+string(ev.Kind), trace.WithAttributes(
		attribute.String("event", string(ev.Kind)),
	))
	defer span.End()

	unlock := s.lock(userID)
	defer unlock()

	dbc := dbctx.Context{Ctx: ctx}
	cur, err := s.load(dbc, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return Outcome{}, err
	}

	next, gained, err := progression.Apply(*cur, ev)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.progression.Upsert(dbc, &next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return Outcome{}, fmt.Errorf("persist progression: %w", err)
	}

	unlocked, err := s.unlock(dbc, next)
	if err != nil {
		// progression is already durable; the next event re-evaluates.
		s.log.Warn("achievement unlock failed", "user_id", userID, "error", err)
	}

	s.publish(invalidation.TopicProgression, userID)

	out := Outcome{
		XPGained:    gained,
		LeveledUp:   progression.LeveledUp(cur.XP, next.XP),
		NewLevel:    next.Level,
		RankChanged: cur.RankTier != next.RankTier,
		Progression: &next,
		Unlocked:    unlocked,
	}
	m := observability.Current()
	m.IncProgressionEvent(string(ev.Kind), out.LeveledUp)
	for _, a := range unlocked {
		m.IncAchievement(a.ID)
	}
	span.SetAttributes(
		attribute.Int("xp_gained", gained),
		attribute.Bool("leveled_up", out.LeveledUp),
		attribute.Int("unlocked", len(unlocked)),
	)
	s.log.Debug("progression event applied",
		"user_id", userID,
		"event", string(ev.Kind),
		"xp", next.XP,
		"level", next.Level,
		"rank", next.RankTier,
	)
	return out, nil
}

// load returns the stored row or a fresh default, auditing derived fields.
func (s *progressionService) load(dbc dbctx.Context, userID uuid.UUID) (*types.UserProgression, error) {
	row, err := s.progression.Get(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load progression: %w", err)
	}
	if row == nil {
		return types.DefaultProgression(userID), nil
	}
	if v := progression.Audit(*row); len(v) > 0 {
		ierr := &InvariantError{UserID: userID, Violations: v}
		if s.mode == InvariantStrict {
			panic(ierr)
		}
		s.log.Error("progression invariant violated; repairing", "user_id", userID, "error", ierr.Error())
		repaired := progression.Repair(*row)
		row = &repaired
	}
	return row, nil
}

func (s *progressionService) unlock(dbc dbctx.Context, p types.UserProgression) ([]progression.Achievement, error) {
	have, err := s.unlockedSet(dbc, p.UserID)
	if err != nil {
		return nil, err
	}
	candidates := s.catalog.Evaluate(p, have)
	if len(candidates) == 0 {
		return nil, nil
	}
	snapshot, _ := json.Marshal(map[string]any{
		"level":     p.Level,
		"xp":        p.XP,
		"rank_tier": p.RankTier,
	})
	var out []progression.Achievement
	for _, a := range candidates {
		inserted, err := s.achievements.Unlock(dbc, &types.UnlockedAchievement{
			UserID:         p.UserID,
			AchievementID:  a.ID,
			CatalogVersion: s.catalog.Version(),
			Snapshot:       datatypes.JSON(snapshot),
		})
		if err != nil {
			return out, fmt.Errorf("unlock %s: %w", a.ID, err)
		}
		if inserted {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *progressionService) unlockedSet(dbc dbctx.Context, userID uuid.UUID) (map[string]bool, error) {
	rows, err := s.achievements.ListByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	have := make(map[string]bool, len(rows))
	for _, r := range rows {
		have[r.AchievementID] = true
	}
	return have, nil
}

func (s *progressionService) GetProgression(ctx context.Context, userID uuid.UUID) (*ProgressionView, error) {
	if userID == uuid.Nil {
		return newProgressionView(types.DefaultProgression(uuid.Nil)), nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	row, err := s.progression.Get(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load progression: %w", err)
	}
	if row == nil {
		return newProgressionView(types.DefaultProgression(userID)), nil
	}
	if len(progression.Audit(*row)) > 0 {
		unlock := s.lock(userID)
		defer unlock()
		repaired, err := s.load(dbc, userID)
		if err != nil {
			return nil, err
		}
		if err := s.progression.Upsert(dbc, repaired); err != nil {
			return nil, fmt.Errorf("persist repaired progression: %w", err)
		}
		row = repaired
	}
	return newProgressionView(row), nil
}

func newProgressionView(p *types.UserProgression) *ProgressionView {
	return &ProgressionView{
		Progression: p,
		Level:       progression.XPProgress(p.XP),
		Rank:        progression.RRProgress(p.RRPoints),
	}
}

func (s *progressionService) GetAchievements(ctx context.Context, userID uuid.UUID) (*AchievementSummary, error) {
	out := &AchievementSummary{Unlocked: []UnlockedView{}}
	if userID == uuid.Nil {
		out.Locked = s.catalog.All()
		return out, nil
	}
	rows, err := s.achievements.ListByUser(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	have := make(map[string]bool, len(rows))
	when := make(map[string]string, len(rows))
	for _, r := range rows {
		have[r.AchievementID] = true
		when[r.AchievementID] = r.UnlockedAt.UTC().Format(time.RFC3339)
	}
	got, locked := s.catalog.Partition(have)
	for _, a := range got {
		out.Unlocked = append(out.Unlocked, UnlockedView{Achievement: a, UnlockedAt: when[a.ID]})
	}
	out.Locked = locked
	return out, nil
}

func (s *progressionService) publish(topic invalidation.Topic, userID uuid.UUID) {
	if s.pub == nil {
		return
	}
	s.pub.PublishFor(topic, userID, "progression")
}

func (s *progressionService) RecentContent(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ContentItem, error) {
	if userID == uuid.Nil {
		return []*types.ContentItem{}, nil
	}
	items, err := s.content.ListRecent(dbctx.Context{Ctx: ctx}, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return items, nil
}
