package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveSyncWrite("weekly_kpi", "committed", time.Millisecond)
	m.IncProgressionEvent("ship", true)
	m.SessionOpened()
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus on nil: %v", err)
	}
}

func TestWritePrometheusExposition(t *testing.T) {
	m := newMetrics()
	m.ObserveAPI("PUT", "/api/weeks/:week/kpis/:kpi", "200", 30*time.Millisecond)
	m.ObserveSyncWrite("weekly_kpi", "rolled_back", 2*time.Second)
	m.ObserveSyncWrite("weekly_kpi", "rolled_back", 10*time.Millisecond)
	m.IncAchievement(`odd"id`)

	if got := m.SyncWrites("weekly_kpi", "rolled_back"); got != 2 {
		t.Fatalf("SyncWrites: want=2 got=%v", got)
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# TYPE noctisium_api_requests_total counter",
		`noctisium_api_requests_total{method="PUT",route="/api/weeks/:week/kpis/:kpi",status="200"} 1.000000`,
		`noctisium_sync_write_duration_seconds_bucket{collection="weekly_kpi",le="0.01"} 1`,
		`noctisium_sync_write_duration_seconds_bucket{collection="weekly_kpi",le="+Inf"} 2`,
		`noctisium_sync_write_duration_seconds_count{collection="weekly_kpi"} 2`,
		`noctisium_achievements_unlocked_total{achievement="odd\"id"} 1.000000`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q\n%s", want, out)
		}
	}
}

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = abc ,broken, =x,team=core ")
	if len(got) != 2 || got["api-key"] != "abc" || got["team"] != "core" {
		t.Fatalf("ParseHeaders: got %#v", got)
	}
	if ParseHeaders("") != nil {
		t.Fatalf("empty input should yield nil")
	}
}
