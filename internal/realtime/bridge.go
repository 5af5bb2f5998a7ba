package realtime

import (
	"context"

	"github.com/yungbote/noctisium-backend/internal/realtime/invalidation"
)

// Bridge forwards every invalidation a scope receives to channel.
func Bridge(hub *SSEHub, scope *invalidation.Scope, channel string) error {
	return scope.SubscribeAll(func(ctx context.Context, n invalidation.Notice) {
		hub.Broadcast(SSEMessage{
			Channel: channel,
			Event:   SSEEventInvalidate,
			Data:    InvalidatePayload{Topic: n.Topic, Origin: n.Origin},
		})
	})
}
