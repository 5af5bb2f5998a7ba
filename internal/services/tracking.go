package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/noctisium-backend/internal/completion"
	"github.com/yungbote/noctisium-backend/internal/data/repos"
	types "github.com/yungbote/noctisium-backend/internal/domain/tracking"
	"github.com/yungbote/noctisium-backend/internal/observability"
	"github.com/yungbote/noctisium-backend/internal/platform/apierr"
	"github.com/yungbote/noctisium-backend/internal/platform/dbctx"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
	"github.com/yungbote/noctisium-backend/internal/realtime/invalidation"
	"github.com/yungbote/noctisium-backend/internal/syncer"
)

type WeekCompletionResult struct {
	WeekKey    string                   `json:"week_key"`
	Completion float64                  `json:"completion"`
	KPIs       []completion.KPIProgress `json:"kpis"`
}

type KPIPatch struct {
	Name           OptionalString  `json:"name"`
	Target         OptionalFloat64 `json:"target"`
	Unit           OptionalString  `json:"unit"`
	Color          OptionalString  `json:"color"`
	Kind           OptionalString  `json:"kind"`
	AutoSyncSource OptionalString  `json:"auto_sync_source"`
	Weight         OptionalFloat64 `json:"weight"`
	SortOrder      *int            `json:"sort_order"`
	Active         *bool           `json:"active"`
}

type TrackingService interface {
	UpdateWeeklyKPI(ctx context.Context, sess *Session, weekKey, kpiID string, value float64) (float64, error)
	UpdateDailyMetric(ctx context.Context, sess *Session, date, metric string, value float64) (float64, error)
	WeekCompletion(ctx context.Context, sess *Session, weekKey string) (*WeekCompletionResult, error)
	ListKPIs(ctx context.Context, userID uuid.UUID) ([]*types.KPIDefinition, error)
	SaveKPI(ctx context.Context, userID uuid.UUID, kpiID string, patch KPIPatch) (*types.KPIDefinition, error)
}

type trackingService struct {
	db      *gorm.DB
	log     *logger.Logger
	kpis    repos.KPIRepo
	rollups repos.RollupRepo
	pub     NoticePublisher
}

func NewTrackingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	kpis repos.KPIRepo,
	rollups repos.RollupRepo,
	pub NoticePublisher,
) TrackingService {
	return &trackingService{
		db:      db,
		log:     baseLog.With("service", "TrackingService"),
		kpis:    kpis,
		rollups: rollups,
		pub:     pub,
	}
}

// sanitizeValue rejects non-finite input and clamps negatives to zero.
func sanitizeValue(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apierr.BadRequest("invalid_value", fmt.Errorf("value must be a finite number"))
	}
	if v < 0 {
		return 0, nil
	}
	return v, nil
}

func validateWeek(weekKey string) error {
	if _, err := completion.ParseWeekKey(weekKey); err != nil {
		return apierr.BadRequest("invalid_week", err)
	}
	return nil
}

func validateSubKey(field, v string) error {
	if strings.TrimSpace(v) == "" || strings.Contains(v, ":") {
		return apierr.BadRequest("invalid_"+field, fmt.Errorf("%s must be non-empty and contain no ':'", field))
	}
	return nil
}

func (s *trackingService) UpdateWeeklyKPI(ctx context.Context, sess *Session, weekKey, kpiID string, value float64) (float64, error) {
	if sess == nil {
		return 0, nil
	}
	if err := validateWeek(weekKey); err != nil {
		return 0, err
	}
	if err := validateSubKey("kpi", kpiID); err != nil {
		return 0, err
	}
	v, err := sanitizeValue(value)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	err = sess.Sync.UpdateValue(ctx, syncer.WeeklyKPI(sess.UserID, weekKey, kpiID), v)
	observeWrite(syncer.CollectionWeeklyKPI, start, err)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (s *trackingService) UpdateDailyMetric(ctx context.Context, sess *Session, date, metric string, value float64) (float64, error) {
	if sess == nil {
		return 0, nil
	}
	if _, err := time.Parse(completion.DateLayout, date); err != nil {
		return 0, apierr.BadRequest("invalid_date", err)
	}
	if err := validateSubKey("metric", metric); err != nil {
		return 0, err
	}
	v, err := sanitizeValue(value)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	err = sess.Sync.UpdateValue(ctx, syncer.DailyMetric(sess.UserID, date, metric), v)
	observeWrite(syncer.CollectionDailyMetric, start, err)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func observeWrite(c syncer.Collection, start time.Time, err error) {
	outcome := "committed"
	switch {
	case syncer.IsRemoteError(err):
		outcome = "rolled_back"
	case err != nil:
		outcome = "rejected"
	}
	observability.Current().ObserveSyncWrite(string(c), outcome, time.Since(start))
}

// WeekCompletion resolves each tracked KPI through the session's sync policy.
// Auto-synced KPIs read the weekly rollup of their source metric instead.
func (s *trackingService) WeekCompletion(ctx context.Context, sess *Session, weekKey string) (*WeekCompletionResult, error) {
	if err := validateWeek(weekKey); err != nil {
		return nil, err
	}
	out := &WeekCompletionResult{WeekKey: weekKey, KPIs: []completion.KPIProgress{}}
	if sess == nil {
		return out, nil
	}

	rows, err := s.kpis.ListByUser(dbctx.Context{Ctx: ctx}, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("list kpis: %w", err)
	}
	defs := make([]types.KPIDefinition, 0, len(rows))
	for _, r := range rows {
		defs = append(defs, *r)
	}

	var mu sync.Mutex
	values := make(map[string]float64, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range defs {
		if !d.Tracked() {
			continue
		}
		d := d
		g.Go(func() error {
			v, err := s.kpiValue(gctx, sess, weekKey, d)
			if err != nil {
				return err
			}
			mu.Lock()
			values[d.ID] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.KPIs = completion.Breakdown(values, defs)
	out.Completion = completion.WeekCompletion(values, defs)
	return out, nil
}

func (s *trackingService) kpiValue(ctx context.Context, sess *Session, weekKey string, d types.KPIDefinition) (float64, error) {
	if d.Kind == types.KPIKindAutoSynced && d.AutoSyncSource != "" {
		r, err := s.rollups.Get(dbctx.Context{Ctx: ctx}, sess.UserID, weekKey, d.AutoSyncSource)
		if err != nil {
			return 0, fmt.Errorf("rollup %s: %w", d.AutoSyncSource, err)
		}
		if r == nil {
			return 0, nil
		}
		return r.Total, nil
	}
	res, err := sess.Sync.Read(ctx, syncer.WeeklyKPI(sess.UserID, weekKey, d.ID))
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

func (s *trackingService) ListKPIs(ctx context.Context, userID uuid.UUID) ([]*types.KPIDefinition, error) {
	if userID == uuid.Nil {
		return []*types.KPIDefinition{}, nil
	}
	return s.kpis.ListByUser(dbctx.Context{Ctx: ctx}, userID)
}

func (s *trackingService) SaveKPI(ctx context.Context, userID uuid.UUID, kpiID string, patch KPIPatch) (*types.KPIDefinition, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	if err := validateSubKey("kpi", kpiID); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	def, err := s.kpis.Get(dbc, userID, kpiID)
	if err != nil {
		return nil, fmt.Errorf("load kpi: %w", err)
	}
	if def == nil {
		def = &types.KPIDefinition{
			UserID: userID,
			ID:     kpiID,
			Name:   kpiID,
			Kind:   types.KPIKindCounter,
			Weight: 1,
			Active: true,
		}
	}
	if err := applyKPIPatch(def, patch); err != nil {
		return nil, err
	}
	if err := s.kpis.Upsert(dbc, def); err != nil {
		return nil, fmt.Errorf("save kpi: %w", err)
	}
	if s.pub != nil {
		s.pub.PublishFor(invalidation.TopicGoals, userID, "kpi_config")
	}
	return def, nil
}

func applyKPIPatch(def *types.KPIDefinition, p KPIPatch) error {
	if p.Name.Set && p.Name.Value != nil {
		def.Name = *p.Name.Value
	}
	if p.Target.Set {
		def.Target = p.Target.Value
	}
	if p.Unit.Set {
		def.Unit = deref(p.Unit.Value)
	}
	if p.Color.Set {
		def.Color = deref(p.Color.Value)
	}
	if p.Kind.Set && p.Kind.Value != nil {
		k := types.KPIKind(*p.Kind.Value)
		if !k.Valid() {
			return apierr.BadRequest("invalid_kind", fmt.Errorf("unknown kpi kind %q", k))
		}
		def.Kind = k
	}
	if p.AutoSyncSource.Set {
		def.AutoSyncSource = deref(p.AutoSyncSource.Value)
	}
	if p.Weight.Set && p.Weight.Value != nil {
		def.Weight = *p.Weight.Value
	}
	if p.SortOrder != nil {
		def.SortOrder = *p.SortOrder
	}
	if p.Active != nil {
		def.Active = *p.Active
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
