package syncer

import "github.com/yungbote/noctisium-backend/internal/cache"

type WriteState int

const (
	WritePending WriteState = iota
	WriteCommitted
	WriteRolledBack
	// WriteSuperseded is a write that settled after a newer write for the same key.
	WriteSuperseded
)

func (s WriteState) String() string {
	switch s {
	case WritePending:
		return "pending"
	case WriteCommitted:
		return "committed"
	case WriteRolledBack:
		return "rolled_back"
	case WriteSuperseded:
		return "superseded"
	}
	return "unknown"
}

// PendingWrite tracks one optimistic write from cache mutation to settlement.
type PendingWrite struct {
	Key      Key
	Seq      uint64
	Value    float64
	Previous *cache.Entry
	State    WriteState
	failed   bool
}

func (w *PendingWrite) settle(cacheHoldsMine, ok bool) {
	if w.State != WritePending {
		return
	}
	w.failed = !ok
	switch {
	case !cacheHoldsMine:
		w.State = WriteSuperseded
	case ok:
		w.State = WriteCommitted
	default:
		w.State = WriteRolledBack
	}
}
