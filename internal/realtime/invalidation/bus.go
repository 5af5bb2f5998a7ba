// Package invalidation is the in-process publish/subscribe channel that tells
// readers their derived data may be stale. Notifications carry no payload;
// handlers recompute from current state.
package invalidation

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/noctisium-backend/internal/platform/logger"
)

type Handler func(ctx context.Context, n Notice)

// Notice identifies what changed. UserID is uuid.Nil for process-wide notices.
type Notice struct {
	Topic  Topic     `json:"topic"`
	UserID uuid.UUID `json:"user_id"`
	Origin string    `json:"origin,omitempty"`
}

// OriginChangefeed marks notices raised by the database change feed.
const OriginChangefeed = "changefeed"

type Bus struct {
	log *logger.Logger

	mu     sync.RWMutex
	subs   map[Topic]map[*subscription]struct{}
	closed bool
}

func NewBus(log *logger.Logger) *Bus {
	return &Bus{
		log:  log.With("component", "InvalidationBus"),
		subs: make(map[Topic]map[*subscription]struct{}),
	}
}

// subscription delivers notices in publish order. A notice identical to one
// still pending is folded into it; distinct notices are never discarded.
type subscription struct {
	bus     *Bus
	topic   Topic
	userID  uuid.UUID
	handler Handler

	mu      sync.Mutex
	pending []Notice
	queued  map[Notice]struct{}
	wake    chan struct{}

	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// Subscription is a registered handler. Unsubscribe is idempotent and does
// not wait for a running handler, so handlers may unsubscribe themselves.
type Subscription interface {
	Unsubscribe()
}

// Subscribe registers h for topic. The handler runs on its own goroutine;
// handlers of different subscriptions run in no particular order.
func (b *Bus) Subscribe(topic Topic, h Handler) (Subscription, error) {
	return b.subscribe(topic, uuid.Nil, h)
}

func (b *Bus) subscribe(topic Topic, userID uuid.UUID, h Handler) (*subscription, error) {
	if !topic.Valid() {
		return nil, errInvalidTopic(topic)
	}
	if h == nil {
		return nil, errNilHandler
	}
	s := &subscription{
		bus:     b,
		topic:   topic,
		userID:  userID,
		handler: h,
		queued:  make(map[Notice]struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, errBusClosed
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*subscription]struct{})
	}
	b.subs[topic][s] = struct{}{}
	b.mu.Unlock()

	go s.run()
	return s, nil
}

func (s *subscription) run() {
	defer close(s.stopped)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.done
		cancel()
	}()
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
			for _, n := range s.drain() {
				select {
				case <-s.done:
					return
				default:
				}
				s.invoke(ctx, n)
			}
		}
	}
}

// enqueue reports false when an identical notice is already pending.
func (s *subscription) enqueue(n Notice) bool {
	s.mu.Lock()
	if _, ok := s.queued[n]; ok {
		s.mu.Unlock()
		return false
	}
	s.queued[n] = struct{}{}
	s.pending = append(s.pending, n)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *subscription) drain() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.pending
	s.pending = nil
	clear(s.queued)
	return batch
}

func (s *subscription) invoke(ctx context.Context, n Notice) {
	defer func() {
		if r := recover(); r != nil {
			s.bus.log.Error("invalidation handler panicked", "topic", n.Topic.String(), "panic", r)
		}
	}()
	s.handler(ctx, n)
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		if m := s.bus.subs[s.topic]; m != nil {
			delete(m, s)
			if len(m) == 0 {
				delete(s.bus.subs, s.topic)
			}
		}
		s.bus.mu.Unlock()
		close(s.done)
	})
}

func (s *subscription) wait() { <-s.stopped }

// Publish notifies every subscriber of topic without waiting for handlers.
func (b *Bus) Publish(topic Topic) {
	b.PublishNotice(Notice{Topic: topic})
}

// PublishFor notifies subscribers of topic scoped to userID and unscoped subscribers.
func (b *Bus) PublishFor(topic Topic, userID uuid.UUID, origin string) {
	b.PublishNotice(Notice{Topic: topic, UserID: userID, Origin: origin})
}

func (b *Bus) PublishNotice(n Notice) {
	if !n.Topic.Valid() {
		b.log.Warn("dropping publish for invalid topic", "topic", n.Topic.String())
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs[n.Topic] {
		if s.userID != uuid.Nil && n.UserID != uuid.Nil && s.userID != n.UserID {
			continue
		}
		if !s.enqueue(n) {
			b.log.Debug("invalidation notice coalesced", "topic", n.Topic.String(), "user_id", n.UserID.String())
		}
	}
}

// SubscriberCount reports live subscriptions for topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Close stops every subscription and waits for their handlers to return.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	var all []*subscription
	for _, m := range b.subs {
		for s := range m {
			all = append(all, s)
		}
	}
	b.mu.Unlock()
	for _, s := range all {
		s.Unsubscribe()
	}
	for _, s := range all {
		s.wait()
	}
}
