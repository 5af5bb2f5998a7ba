package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/noctisium-backend/internal/requestdata"
)

func identityRouter(seen **requestdata.RequestData) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachIdentity())
	r.GET("/open", func(c *gin.Context) {
		*seen = requestdata.GetRequestData(c.Request.Context())
		c.Status(http.StatusOK)
	})
	r.GET("/closed", RequireIdentity(), func(c *gin.Context) {
		*seen = requestdata.GetRequestData(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestAttachIdentity(t *testing.T) {
	user := uuid.New()
	session := uuid.New()

	cases := []struct {
		name        string
		path        string
		headers     map[string]string
		wantStatus  int
		wantUser    uuid.UUID
		wantSession uuid.UUID
	}{
		{
			name:        "headers",
			path:        "/closed",
			headers:     map[string]string{HeaderUserID: user.String(), HeaderSessionID: session.String()},
			wantStatus:  http.StatusOK,
			wantUser:    user,
			wantSession: session,
		},
		{
			name:        "query fallback",
			path:        "/closed?user_id=" + user.String() + "&session_id=" + session.String(),
			wantStatus:  http.StatusOK,
			wantUser:    user,
			wantSession: session,
		},
		{
			name:       "anonymous allowed on open routes",
			path:       "/open",
			wantStatus: http.StatusOK,
		},
		{
			name:       "anonymous rejected on closed routes",
			path:       "/closed",
			headers:    map[string]string{HeaderUserID: user.String()},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed id",
			path:       "/open",
			headers:    map[string]string{HeaderUserID: "not-a-uuid"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seen *requestdata.RequestData
			r := identityRouter(&seen)
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status: want=%d got=%d body=%s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			if seen == nil {
				t.Fatalf("request data not attached")
			}
			if seen.UserID != tc.wantUser || seen.SessionID != tc.wantSession {
				t.Fatalf("ids: want=(%s,%s) got=(%s,%s)", tc.wantUser, tc.wantSession, seen.UserID, seen.SessionID)
			}
		})
	}
}
