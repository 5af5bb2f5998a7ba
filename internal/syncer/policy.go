package syncer

import "github.com/yungbote/noctisium-backend/internal/cache"

type Source string

const (
	SourceNone   Source = "none"
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

type Resolution struct {
	Value float64
	Found bool
	From  Source
}

// SyncPolicy is the one merge rule between a cache entry and a remote row.
type SyncPolicy interface {
	// Fresh reports whether local alone is authoritative, so the remote need not be read.
	Fresh(local cache.Entry) bool
	// Resolve merges the two sides. Either may be nil.
	Resolve(local *cache.Entry, remote *float64) Resolution
}

// LocalWinsIfFresh prefers a cache entry written by the current session and
// otherwise treats the remote row as authoritative.
type LocalWinsIfFresh struct {
	SessionID string
}

func (p LocalWinsIfFresh) Fresh(local cache.Entry) bool {
	return local.WrittenLocally(p.SessionID)
}

func (p LocalWinsIfFresh) Resolve(local *cache.Entry, remote *float64) Resolution {
	if local != nil && p.Fresh(*local) {
		return Resolution{Value: local.Value, Found: true, From: SourceLocal}
	}
	if remote != nil {
		return Resolution{Value: *remote, Found: true, From: SourceRemote}
	}
	if local != nil {
		return Resolution{Value: local.Value, Found: true, From: SourceLocal}
	}
	return Resolution{From: SourceNone}
}
