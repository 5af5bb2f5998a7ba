package realtime

import "github.com/yungbote/noctisium-backend/internal/realtime/invalidation"

type SSEEvent string

const (
	SSEEventInvalidate    SSEEvent = "Invalidate"
	SSEEventLevelUp       SSEEvent = "LevelUp"
	SSEEventAchievement   SSEEvent = "AchievementUnlocked"
	SSEEventSessionClosed SSEEvent = "SessionClosed"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

type InvalidatePayload struct {
	Topic  invalidation.Topic `json:"topic"`
	Origin string             `json:"origin,omitempty"`
}
