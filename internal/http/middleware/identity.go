package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/noctisium-backend/internal/http/response"
	"github.com/yungbote/noctisium-backend/internal/requestdata"
)

const (
	HeaderUserID    = "X-User-Id"
	HeaderSessionID = "X-Session-Id"
)

// AttachIdentity reads the ids set by the upstream auth proxy. EventSource cannot
// send headers, so user_id and session_id query params are accepted as a fallback.
// Absent ids leave uuid.Nil in place; malformed ids are rejected.
func AttachIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := parseID(c, HeaderUserID, "user_id")
		if !ok {
			response.RespondError(c, http.StatusBadRequest, "invalid_user_id", errMalformed(HeaderUserID))
			c.Abort()
			return
		}
		sessionID, ok := parseID(c, HeaderSessionID, "session_id")
		if !ok {
			response.RespondError(c, http.StatusBadRequest, "invalid_session_id", errMalformed(HeaderSessionID))
			c.Abort()
			return
		}
		rd := &requestdata.RequestData{UserID: userID, SessionID: sessionID}
		c.Request = c.Request.WithContext(requestdata.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

// RequireIdentity rejects requests without both ids.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		if !rd.Authenticated() {
			response.RespondError(c, http.StatusUnauthorized, "unauthenticated", errMissingIdentity)
			c.Abort()
			return
		}
		c.Next()
	}
}

func parseID(c *gin.Context, header, query string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(c.GetHeader(header))
	if raw == "" {
		raw = strings.TrimSpace(c.Query(query))
	}
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
