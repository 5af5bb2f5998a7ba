package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/noctisium-backend/internal/platform/logger"
	"github.com/yungbote/noctisium-backend/internal/realtime/invalidation"
)

type fakeBus struct {
	mu        sync.Mutex
	published []invalidation.Notice
	onMsg     func(invalidation.Notice)
	gate      chan struct{}
}

func (f *fakeBus) Publish(_ context.Context, n invalidation.Notice) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, n)
	return nil
}

func (f *fakeBus) StartForwarder(_ context.Context, onMsg func(invalidation.Notice)) error {
	f.onMsg = onMsg
	return nil
}

func (f *fakeBus) Close() error { return nil }

func (f *fakeBus) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func TestRelayForwardsLocalAndReplaysRemote(t *testing.T) {
	local := invalidation.NewBus(logger.NewNop())
	defer local.Close()
	remote := &fakeBus{}

	if err := Relay(context.Background(), remote, local); err != nil {
		t.Fatalf("Relay: %v", err)
	}

	user := uuid.New()
	local.PublishFor(invalidation.TopicKPIData, user, "tracking")
	deadline := time.Now().Add(time.Second)
	for remote.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if remote.count() != 1 {
		t.Fatalf("expected local notice to be relayed once, got %d", remote.count())
	}

	got := make(chan invalidation.Notice, 1)
	scope := local.Session(user)
	defer scope.Close()
	if _, err := scope.Subscribe(invalidation.TopicGoals, func(_ context.Context, n invalidation.Notice) { got <- n }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	remote.onMsg(invalidation.Notice{Topic: invalidation.TopicGoals, UserID: user, Origin: relayPrefix + "other"})

	select {
	case n := <-got:
		if !IsRelayed(n) {
			t.Fatalf("expected relayed origin, got %q", n.Origin)
		}
	case <-time.After(time.Second):
		t.Fatalf("remote notice not replayed locally")
	}

	time.Sleep(50 * time.Millisecond)
	if remote.count() != 1 {
		t.Fatalf("relayed notice echoed back to remote: %d publishes", remote.count())
	}
}

func TestRelayForwardsEveryUserWhileRemoteIsSlow(t *testing.T) {
	local := invalidation.NewBus(logger.NewNop())
	defer local.Close()
	remote := &fakeBus{gate: make(chan struct{})}

	if err := Relay(context.Background(), remote, local); err != nil {
		t.Fatalf("Relay: %v", err)
	}

	const users = 100
	want := make(map[uuid.UUID]bool, users)
	for i := 0; i < users; i++ {
		id := uuid.New()
		want[id] = true
		local.PublishFor(invalidation.TopicKPIData, id, "tracking")
	}
	close(remote.gate)

	deadline := time.Now().Add(2 * time.Second)
	for remote.count() < users && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if len(remote.published) != users {
		t.Fatalf("relayed %d of %d users", len(remote.published), users)
	}
	for _, n := range remote.published {
		if !want[n.UserID] {
			t.Fatalf("unexpected or duplicate user %s", n.UserID)
		}
		delete(want, n.UserID)
	}
}
