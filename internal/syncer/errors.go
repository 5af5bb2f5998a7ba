package syncer

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrConflict marks a remote uniqueness conflict. Conflicts on upsert count as success.
var ErrConflict = errors.New("remote conflict")

// RemoteError reports a failed remote operation after the cache was restored.
// It is returned once; the caller decides whether to retry.
type RemoteError struct {
	Op  string
	Key Key
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline or network timeout.
func (e *RemoteError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
