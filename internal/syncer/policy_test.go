package syncer

import (
	"testing"

	"github.com/yungbote/noctisium-backend/internal/cache"
)

func TestLocalWinsIfFresh(t *testing.T) {
	p := LocalWinsIfFresh{SessionID: "s1"}
	remote := 5.0
	mine := &cache.Entry{Value: 9, SessionID: "s1"}
	theirs := &cache.Entry{Value: 7, SessionID: "s0"}
	hydrated := &cache.Entry{Value: 3}

	cases := []struct {
		name   string
		local  *cache.Entry
		remote *float64
		want   Resolution
	}{
		{"fresh_local_beats_remote", mine, &remote, Resolution{Value: 9, Found: true, From: SourceLocal}},
		{"other_session_loses", theirs, &remote, Resolution{Value: 5, Found: true, From: SourceRemote}},
		{"hydrated_loses", hydrated, &remote, Resolution{Value: 5, Found: true, From: SourceRemote}},
		{"stale_local_without_remote", hydrated, nil, Resolution{Value: 3, Found: true, From: SourceLocal}},
		{"remote_only", nil, &remote, Resolution{Value: 5, Found: true, From: SourceRemote}},
		{"nothing", nil, nil, Resolution{From: SourceNone}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.Resolve(tc.local, tc.remote); got != tc.want {
				t.Fatalf("Resolve=%+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestWriteStateString(t *testing.T) {
	for s, want := range map[WriteState]string{
		WritePending: "pending", WriteCommitted: "committed", WriteRolledBack: "rolled_back", WriteSuperseded: "superseded",
	} {
		if s.String() != want {
			t.Fatalf("%d.String()=%s, want %s", s, s.String(), want)
		}
	}
}
