package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/noctisium-backend/internal/http/response"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
	"github.com/yungbote/noctisium-backend/internal/realtime"
	"github.com/yungbote/noctisium-backend/internal/requestdata"
	"github.com/yungbote/noctisium-backend/internal/services"
)

type RealtimeHandler struct {
	log      *logger.Logger
	hub      *realtime.SSEHub
	sessions services.SessionManager

	mu      sync.Mutex
	clients map[uuid.UUID]*realtime.SSEClient // key: session id
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, sessions services.SessionManager) *RealtimeHandler {
	return &RealtimeHandler{
		log:      log.With("handler", "RealtimeHandler"),
		hub:      hub,
		sessions: sessions,
		clients:  make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// GET /api/realtime/stream
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if !rd.Authenticated() {
		response.RespondError(c, http.StatusUnauthorized, "unauthenticated", nil)
		return
	}
	// opening the session bridges its invalidation scope onto the session channel.
	if _, err := h.sessions.Open(c.Request.Context(), rd.UserID, rd.SessionID); err != nil {
		response.RespondErr(c, err)
		return
	}

	h.mu.Lock()
	// a reconnect from the same session replaces the previous stream.
	if existing, ok := h.clients[rd.SessionID]; ok {
		h.hub.CloseClient(existing)
	}
	client := h.hub.NewSSEClient(rd.UserID)
	h.clients[rd.SessionID] = client
	h.mu.Unlock()

	h.log.Info("SSEStream open", "user_id", rd.UserID, "session_id", rd.SessionID, "client_id", client.ID)
	h.hub.AddChannel(client, realtime.UserChannel(rd.UserID))
	h.hub.AddChannel(client, realtime.SessionChannel(rd.SessionID))

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if h.clients[rd.SessionID] == client {
		delete(h.clients, rd.SessionID)
	}
	h.mu.Unlock()
	h.hub.CloseClient(client)
	// the idle timeout counts from the stream's end.
	h.sessions.Get(rd.SessionID)
}
