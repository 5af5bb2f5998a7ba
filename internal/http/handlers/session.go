package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/noctisium-backend/internal/http/response"
	"github.com/yungbote/noctisium-backend/internal/requestdata"
	"github.com/yungbote/noctisium-backend/internal/services"
)

type SessionHandler struct {
	sessions services.SessionManager
}

func NewSessionHandler(sessions services.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// POST /api/session/close
func (h *SessionHandler) Close(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondOK(c, gin.H{"closed": false})
		return
	}
	sess := h.sessions.Get(rd.SessionID)
	if sess == nil {
		response.RespondOK(c, gin.H{"closed": false})
		return
	}
	if sess.UserID != rd.UserID {
		// another user's session; treat as absent
		response.RespondOK(c, gin.H{"closed": false})
		return
	}
	if err := h.sessions.Close(c.Request.Context(), rd.SessionID); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"closed": true})
}
