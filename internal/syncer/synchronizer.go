package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/noctisium-backend/internal/cache"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
)

// Remote is the authoritative store addressed by natural key.
type Remote interface {
	// Upsert inserts the row or updates its value, leaving other fields alone.
	Upsert(ctx context.Context, key Key, value float64) error
	Select(ctx context.Context, key Key) (float64, bool, error)
}

// Mirror receives values after the primary upsert succeeded.
type Mirror interface {
	Mirror(ctx context.Context, key Key, value float64) error
}

type Options struct {
	Log       *logger.Logger
	Cache     cache.Store
	Remote    Remote
	Mirror    Mirror
	Policy    SyncPolicy
	SessionID string
	// OnChange runs whenever the cached value for a key changes.
	OnChange func(Key)
	Now      func() time.Time
}

type Synchronizer struct {
	log       *logger.Logger
	cache     cache.Store
	remote    Remote
	mirror    Mirror
	policy    SyncPolicy
	sessionID string
	onChange  func(Key)
	now       func() time.Time
	tracer    trace.Tracer

	mu     sync.Mutex
	seq    map[string]uint64
	writes map[string]map[uint64]*PendingWrite
	reads  singleflight.Group
}

func New(opts Options) (*Synchronizer, error) {
	if opts.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if opts.Cache == nil || opts.Remote == nil {
		return nil, fmt.Errorf("cache and remote are required")
	}
	if opts.SessionID == "" {
		return nil, fmt.Errorf("session id required")
	}
	if opts.Policy == nil {
		opts.Policy = LocalWinsIfFresh{SessionID: opts.SessionID}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Synchronizer{
		log:       opts.Log.With("service", "Synchronizer", "session_id", opts.SessionID),
		cache:     opts.Cache,
		remote:    opts.Remote,
		mirror:    opts.Mirror,
		policy:    opts.Policy,
		sessionID: opts.SessionID,
		onChange:  opts.OnChange,
		now:       opts.Now,
		tracer:    otel.Tracer("noctisium/syncer"),
		seq:       make(map[string]uint64),
		writes:    make(map[string]map[uint64]*PendingWrite),
	}, nil
}

// CachePrefix is the prefix shared by every cache key of this session.
func CachePrefix(sessionID string) string { return "sess:" + sessionID + ":" }

func (s *Synchronizer) CachePrefix() string { return CachePrefix(s.sessionID) }

func (s *Synchronizer) cacheKey(k Key) string { return s.CachePrefix() + k.String() }

// UpdateValue applies value to the cache, then upserts it remotely. A remote
// failure restores the cache and returns a *RemoteError.
func (s *Synchronizer) UpdateValue(ctx context.Context, key Key, value float64) error {
	if err := key.Validate(); err != nil {
		return err
	}
	ctx, span := s.tracer.Start(ctx, "syncer.UpdateValue", trace.WithAttributes(
		attribute.String("collection", string(key.Collection)),
		attribute.String("period", key.Period),
	))
	defer span.End()

	w, err := s.applyOptimistic(ctx, key, value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cache write failed")
		return err
	}
	span.SetAttributes(attribute.Int64("seq", int64(w.Seq)))

	upErr := s.remote.Upsert(ctx, key, value)
	if upErr != nil && errors.Is(upErr, ErrConflict) {
		upErr = nil
	}

	committed := s.settle(ctx, key, w, upErr == nil)
	if upErr != nil {
		span.RecordError(upErr)
		span.SetStatus(codes.Error, "remote upsert failed")
		s.log.Warn("remote upsert failed", "key", key.String(), "seq", w.Seq, "state", w.State.String(), "error", upErr)
		return &RemoteError{Op: "upsert", Key: key, Err: upErr}
	}
	if committed && s.mirror != nil {
		if err := s.mirror.Mirror(ctx, key, value); err != nil {
			s.log.Warn("secondary mirror write failed", "key", key.String(), "error", err)
		}
	}
	return nil
}

func (s *Synchronizer) applyOptimistic(ctx context.Context, key Key, value float64) (*PendingWrite, error) {
	ck := s.cacheKey(key)

	s.mu.Lock()
	prev, had, err := s.cache.Get(ctx, ck)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("read cache %s: %w", key, err)
	}
	next := s.seq[ck] + 1
	if had && prev.SessionID == s.sessionID && prev.Seq >= next {
		next = prev.Seq + 1
	}
	w := &PendingWrite{Key: key, Seq: next, Value: value, State: WritePending}
	if had {
		p := prev
		w.Previous = &p
	}
	entry := cache.Entry{Value: value, Seq: next, WrittenAt: s.now().UTC(), SessionID: s.sessionID}
	if err := s.cache.Set(ctx, ck, entry); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("write cache %s: %w", key, err)
	}
	s.seq[ck] = next
	if s.writes[ck] == nil {
		s.writes[ck] = make(map[uint64]*PendingWrite)
	}
	s.writes[ck][next] = w
	s.mu.Unlock()

	s.changed(key)
	return w, nil
}

// settle records the outcome of w and restores the cache on failure. It
// reports whether w is still the value held by the cache.
func (s *Synchronizer) settle(ctx context.Context, key Key, w *PendingWrite, ok bool) bool {
	ck := s.cacheKey(key)

	s.mu.Lock()
	cur, had, err := s.cache.Get(ctx, ck)
	if err != nil {
		s.log.Warn("cache read during settle failed", "key", key.String(), "error", err)
	}
	mine := err == nil && had && cur.SessionID == s.sessionID && cur.Seq == w.Seq
	w.settle(mine, ok)

	restored := false
	if !ok && mine {
		prev := s.restorable(ck, w.Previous)
		if prev != nil {
			err = s.cache.Set(ctx, ck, *prev)
		} else {
			err = s.cache.Delete(ctx, ck)
		}
		if err != nil {
			s.log.Error("cache rollback failed", "key", key.String(), "seq", w.Seq, "error", err)
		}
		restored = true
	}
	s.prune(ck)
	s.mu.Unlock()

	if restored {
		s.changed(key)
	}
	return ok && mine
}

// restorable walks back past entries written by writes that already failed.
func (s *Synchronizer) restorable(ck string, prev *cache.Entry) *cache.Entry {
	for prev != nil && prev.SessionID == s.sessionID {
		w, ok := s.writes[ck][prev.Seq]
		if !ok || !w.failed {
			break
		}
		prev = w.Previous
	}
	return prev
}

func (s *Synchronizer) prune(ck string) {
	for _, w := range s.writes[ck] {
		if w.State == WritePending {
			return
		}
	}
	delete(s.writes, ck)
}

// Pending returns the in-flight writes for key, oldest first.
func (s *Synchronizer) Pending(key Key) []PendingWrite {
	ck := s.cacheKey(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PendingWrite, 0, len(s.writes[ck]))
	for seq := uint64(1); seq <= s.seq[ck]; seq++ {
		if w, ok := s.writes[ck][seq]; ok && w.State == WritePending {
			out = append(out, *w)
		}
	}
	return out
}

// Read resolves key through the sync policy, refreshing the cache from the
// remote row when the remote wins.
func (s *Synchronizer) Read(ctx context.Context, key Key) (Resolution, error) {
	if err := key.Validate(); err != nil {
		return Resolution{}, err
	}
	ck := s.cacheKey(key)
	v, err, _ := s.reads.Do(ck, func() (interface{}, error) {
		return s.read(ctx, key, ck)
	})
	if err != nil {
		return Resolution{}, err
	}
	return v.(Resolution), nil
}

func (s *Synchronizer) read(ctx context.Context, key Key, ck string) (Resolution, error) {
	local, hasLocal, err := s.cache.Get(ctx, ck)
	if err != nil {
		s.log.Warn("cache read failed; falling back to remote", "key", key.String(), "error", err)
		hasLocal = false
	}
	var localPtr *cache.Entry
	if hasLocal {
		localPtr = &local
		if s.policy.Fresh(local) {
			return s.policy.Resolve(localPtr, nil), nil
		}
	}

	rv, found, err := s.remote.Select(ctx, key)
	if err != nil {
		if localPtr != nil {
			s.log.Warn("remote select failed; serving cached value", "key", key.String(), "error", err)
			return s.policy.Resolve(localPtr, nil), nil
		}
		return Resolution{}, &RemoteError{Op: "select", Key: key, Err: err}
	}
	var remotePtr *float64
	if found {
		remotePtr = &rv
	}
	res := s.policy.Resolve(localPtr, remotePtr)
	if res.From == SourceRemote {
		s.prime(ctx, ck, local, hasLocal, res.Value)
	}
	return res, nil
}

// prime stores a remote value unless the cache changed since it was read.
func (s *Synchronizer) prime(ctx context.Context, ck string, seen cache.Entry, hadSeen bool, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, had, err := s.cache.Get(ctx, ck)
	if err != nil || had != hadSeen || (had && (cur.Seq != seen.Seq || cur.SessionID != seen.SessionID)) {
		return
	}
	if err := s.cache.Set(ctx, ck, cache.Entry{Value: value, Seq: seen.Seq, WrittenAt: s.now().UTC()}); err != nil {
		s.log.Warn("cache prime failed", "key", ck, "error", err)
	}
}

// Hydrate loads remote values into the cache for keys this session has not
// written, as on a cold start.
func (s *Synchronizer) Hydrate(ctx context.Context, values map[Key]float64) error {
	for k, v := range values {
		if err := k.Validate(); err != nil {
			return err
		}
		ck := s.cacheKey(k)
		cur, had, err := s.cache.Get(ctx, ck)
		if err != nil {
			return fmt.Errorf("hydrate %s: %w", k, err)
		}
		if had && s.policy.Fresh(cur) {
			continue
		}
		s.prime(ctx, ck, cur, had, v)
	}
	return nil
}

// Cached returns the raw cache entry for key.
func (s *Synchronizer) Cached(ctx context.Context, key Key) (cache.Entry, bool, error) {
	return s.cache.Get(ctx, s.cacheKey(key))
}

// Discard drops every cache entry of this session.
func (s *Synchronizer) Discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = make(map[string]uint64)
	s.writes = make(map[string]map[uint64]*PendingWrite)
	return s.cache.Clear(ctx, s.CachePrefix())
}

func (s *Synchronizer) changed(key Key) {
	if s.onChange != nil {
		s.onChange(key)
	}
}
