package invalidation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	errNilHandler  = errors.New("invalidation: nil handler")
	errBusClosed   = errors.New("invalidation: bus closed")
	errScopeClosed = errors.New("invalidation: scope closed")
)

func errInvalidTopic(t Topic) error { return fmt.Errorf("invalidation: invalid topic %s", t) }

// Scope owns the subscriptions of one user session. Close tears all of them down.
type Scope struct {
	bus    *Bus
	userID uuid.UUID

	mu     sync.Mutex
	subs   []*subscription
	closed bool
}

// Session opens a scope whose handlers only see notices for userID
// (plus process-wide notices).
func (b *Bus) Session(userID uuid.UUID) *Scope {
	return &Scope{bus: b, userID: userID}
}

func (s *Scope) UserID() uuid.UUID { return s.userID }

func (s *Scope) Subscribe(topic Topic, h Handler) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errScopeClosed
	}
	sub, err := s.bus.subscribe(topic, s.userID, h)
	if err != nil {
		return nil, err
	}
	s.subs = append(s.subs, sub)
	return sub, nil
}

// SubscribeAll registers h on every topic.
func (s *Scope) SubscribeAll(h Handler) error {
	for _, t := range Topics {
		if _, err := s.Subscribe(t, h); err != nil {
			return err
		}
	}
	return nil
}

// Publish notifies topic for this scope's user.
func (s *Scope) Publish(topic Topic, origin string) {
	s.bus.PublishFor(topic, s.userID, origin)
}

// Close unsubscribes every handler of the scope and waits for them to return.
// It must not be called from one of the scope's own handlers.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
	for _, sub := range subs {
		sub.wait()
	}
}
