package changefeed

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/noctisium-backend/internal/platform/logger"
	"github.com/yungbote/noctisium-backend/internal/realtime/invalidation"
)

type recorder struct{ got []invalidation.Notice }

func (r *recorder) PublishNotice(n invalidation.Notice) { r.got = append(r.got, n) }

func TestHandleMapsTablesToTopics(t *testing.T) {
	user := uuid.New()
	cases := []struct {
		name    string
		raw     string
		want    invalidation.Topic
		publish bool
		wantErr bool
	}{
		{"kpi values", `{"table":"weekly_kpi_values","user_id":"` + user.String() + `"}`, invalidation.TopicKPIData, true, false},
		{"goals", `{"table":"kpi_definitions","user_id":"` + user.String() + `"}`, invalidation.TopicGoals, true, false},
		{"achievements", `{"table":"unlocked_achievements","user_id":"` + user.String() + `"}`, invalidation.TopicProgression, true, false},
		{"content", `{"table":"content_items","user_id":"` + user.String() + `"}`, invalidation.TopicContent, true, false},
		{"untracked", `{"table":"other","user_id":"` + user.String() + `"}`, 0, false, false},
		{"no user", `{"table":"daily_metrics"}`, 0, false, true},
		{"garbage", `not json`, 0, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			f := New(logger.NewNop(), "", rec)
			err := f.handle(tc.raw)
			if (err != nil) != tc.wantErr {
				t.Fatalf("handle err=%v wantErr=%v", err, tc.wantErr)
			}
			if !tc.publish {
				if len(rec.got) != 0 {
					t.Fatalf("unexpected publish: %+v", rec.got)
				}
				return
			}
			if len(rec.got) != 1 {
				t.Fatalf("expected one notice, got %d", len(rec.got))
			}
			n := rec.got[0]
			if n.Topic != tc.want || n.UserID != user || n.Origin != invalidation.OriginChangefeed {
				t.Fatalf("unexpected notice %+v", n)
			}
		})
	}
}
