// Package cache is the session-scoped local mirror of remote rows.
package cache

import (
	"context"
	"time"
)

// Entry is one cached value. SessionID is the session that wrote it locally;
// entries hydrated from the remote store carry an empty SessionID.
type Entry struct {
	Value     float64   `json:"value"`
	Seq       uint64    `json:"seq"`
	WrittenAt time.Time `json:"written_at"`
	SessionID string    `json:"session_id,omitempty"`
}

// WrittenLocally reports whether the entry was written by sessionID.
func (e Entry) WrittenLocally(sessionID string) bool {
	return sessionID != "" && e.SessionID == sessionID
}

type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, key string) error
	// Clear removes every key with the given prefix.
	Clear(ctx context.Context, prefix string) error
}
