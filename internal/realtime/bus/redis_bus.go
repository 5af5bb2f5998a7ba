package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/noctisium-backend/internal/platform/logger"
	"github.com/yungbote/noctisium-backend/internal/realtime/invalidation"
)

const relayPrefix = "relay:"

type envelope struct {
	Instance string              `json:"instance"`
	Notice   invalidation.Notice `json:"notice"`
}

type redisBus struct {
	log      *logger.Logger
	rdb      goredis.UniversalClient
	channel  string
	instance string
}

type RedisOptions struct {
	Addr    string
	Channel string
}

func NewRedisBus(log *logger.Logger, opts RedisOptions) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisBusFromClient(log, rdb, opts.Channel), nil
}

func NewRedisBusFromClient(log *logger.Logger, rdb goredis.UniversalClient, channel string) Bus {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "noctisium:invalidation"
	}
	id := uuid.NewString()
	return &redisBus{
		log:      log.With("service", "RedisInvalidationBus", "instance", id),
		rdb:      rdb,
		channel:  channel,
		instance: id,
	}
}

// IsRelayed reports whether n arrived from another instance.
func IsRelayed(n invalidation.Notice) bool {
	return strings.HasPrefix(n.Origin, relayPrefix)
}

func (b *redisBus) Publish(ctx context.Context, n invalidation.Notice) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis invalidation bus not initialized")
	}
	raw, err := json.Marshal(envelope{Instance: b.instance, Notice: n})
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		b.log.Warn("redis publish failed", "topic", n.Topic.String(), "error", err)
		return err
	}
	return nil
}

func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(n invalidation.Notice)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis invalidation bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					b.log.Warn("bad redis invalidation payload", "error", err)
					continue
				}
				if env.Instance == b.instance {
					continue
				}
				n := env.Notice
				n.Origin = relayPrefix + env.Instance
				onMsg(n)
			}
		}
	}()

	return nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
