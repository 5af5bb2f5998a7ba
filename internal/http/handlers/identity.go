package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/noctisium-backend/internal/http/response"
	"github.com/yungbote/noctisium-backend/internal/requestdata"
	"github.com/yungbote/noctisium-backend/internal/services"
)

func userID(c *gin.Context) uuid.UUID {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		return uuid.Nil
	}
	return rd.UserID
}

// openSession returns the caller's live session, or nil when the request carries
// no identity. ok is false once an error response has been written.
func openSession(c *gin.Context, sessions services.SessionManager) (*services.Session, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		return nil, true
	}
	sess, err := sessions.Open(c.Request.Context(), rd.UserID, rd.SessionID)
	if err != nil {
		response.RespondErr(c, err)
		return nil, false
	}
	return sess, true
}
