package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/noctisium-backend/internal/platform/apierr"
	"github.com/yungbote/noctisium-backend/internal/syncer"
)

func TestRespondErrMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "remote failure",
			err:        fmt.Errorf("update: %w", &syncer.RemoteError{Op: "upsert", Err: errors.New("dial tcp: refused")}),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "remote_unavailable",
			wantMsg:    "Service Unavailable",
		},
		{
			name:       "bad request",
			err:        apierr.BadRequest("invalid_week", errors.New("bad week key")),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_week",
			wantMsg:    "bad week key",
		},
		{
			name:       "not found sentinel",
			err:        fmt.Errorf("load: %w", apierr.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "internal hides cause",
			err:        errors.New("pq: password authentication failed"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal",
			wantMsg:    "Internal Server Error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			RespondErr(c, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status: want=%d got=%d", tc.wantStatus, rec.Code)
			}
			var env ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Code != tc.wantCode {
				t.Fatalf("code: want=%q got=%q", tc.wantCode, env.Error.Code)
			}
			if tc.wantMsg != "" && env.Error.Message != tc.wantMsg {
				t.Fatalf("message: want=%q got=%q", tc.wantMsg, env.Error.Message)
			}
			if tc.wantStatus >= http.StatusInternalServerError {
				if len(c.Errors) != 1 || !errors.Is(c.Errors[0].Err, tc.err) {
					t.Fatalf("cause not attached to context: %v", c.Errors)
				}
				if strings.Contains(rec.Body.String(), tc.err.Error()) {
					t.Fatalf("5xx body leaks cause: %s", rec.Body.String())
				}
			}
		})
	}
}
