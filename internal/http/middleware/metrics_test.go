package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/noctisium-backend/internal/observability"
)

func TestMetricsLabelsRoutesAndSkipsStreams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.Init()

	r := gin.New()
	r.Use(Metrics(m))
	r.PUT("/api/kpis/:kpi", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/realtime/stream", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthcheck", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPut, "/api/kpis/sleep", nil),
		httptest.NewRequest(http.MethodPut, "/api/kpis/pages", nil),
		httptest.NewRequest(http.MethodGet, "/api/realtime/stream", nil),
		httptest.NewRequest(http.MethodGet, "/healthcheck", nil),
		httptest.NewRequest(http.MethodGet, "/nope/123", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`noctisium_api_requests_total{method="PUT",route="/api/kpis/:kpi",status="200"} 2.000000`,
		`noctisium_api_requests_total{method="GET",route="unmatched",status="404"} 1.000000`,
		`noctisium_api_inflight_requests 0.000000`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q\n%s", want, out)
		}
	}
	for _, skipped := range []string{`route="/api/realtime/stream"`, `route="/healthcheck"`} {
		if strings.Contains(out, skipped) {
			t.Fatalf("untimed route recorded: %s\n%s", skipped, out)
		}
	}
}
