// Package bus relays invalidation notices between backend instances so a
// write handled by one replica reaches observers connected to another.
package bus

import (
	"context"

	"github.com/yungbote/noctisium-backend/internal/realtime/invalidation"
)

type Bus interface {
	Publish(ctx context.Context, n invalidation.Notice) error
	StartForwarder(ctx context.Context, onMsg func(n invalidation.Notice)) error
	Close() error
}

// Relay publishes every local notice to b and replays remote notices onto the local bus.
// Notices from the database change feed stay local; every instance runs its own feed.
func Relay(ctx context.Context, b Bus, local *invalidation.Bus) error {
	for _, t := range invalidation.Topics {
		topic := t
		if _, err := local.Subscribe(topic, func(ctx context.Context, n invalidation.Notice) {
			if IsRelayed(n) || n.Origin == invalidation.OriginChangefeed {
				return
			}
			_ = b.Publish(ctx, n)
		}); err != nil {
			return err
		}
	}
	return b.StartForwarder(ctx, func(n invalidation.Notice) {
		local.PublishNotice(n)
	})
}
