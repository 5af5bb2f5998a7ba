package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/noctisium-backend/internal/platform/logger"
)

func TestRedisStoreIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("set REDIS_ADDR to run Redis cache integration tests")
	}
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	ns := "noctisium:test:" + uuid.NewString()
	s, err := NewRedisStore(log, RedisOptions{Addr: addr, Namespace: ns, TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	if err := s.Set(ctx, "sess:k1", Entry{Value: 7, Seq: 2, SessionID: "sess"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get(ctx, "sess:k1")
	if err != nil || !ok || got.Value != 7 || got.Seq != 2 {
		t.Fatalf("Get: %+v ok=%v err=%v", got, ok, err)
	}
	if err := s.Clear(ctx, "sess:"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "sess:k1"); ok {
		t.Fatalf("entry survived Clear")
	}
}
