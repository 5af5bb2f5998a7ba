package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/noctisium-backend/internal/domain/tracking"
	"github.com/yungbote/noctisium-backend/internal/http/response"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
	"github.com/yungbote/noctisium-backend/internal/realtime"
	"github.com/yungbote/noctisium-backend/internal/services"
)

type ProgressionHandler struct {
	log         *logger.Logger
	progression services.ProgressionService
	hub         *realtime.SSEHub
}

func NewProgressionHandler(log *logger.Logger, progression services.ProgressionService, hub *realtime.SSEHub) *ProgressionHandler {
	return &ProgressionHandler{
		log:         log.With("handler", "ProgressionHandler"),
		progression: progression,
		hub:         hub,
	}
}

// POST /api/progression/ship
func (h *ProgressionHandler) Ship(c *gin.Context) {
	uid := userID(c)
	out, err := h.progression.OnShip(c.Request.Context(), uid)
	h.respond(c, uid, out, err)
}

type contentRequest struct {
	Title    string `json:"title"`
	Platform string `json:"platform"`
}

// POST /api/progression/content
func (h *ProgressionHandler) Content(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	uid := userID(c)
	var item *types.ContentItem
	if req.Title != "" || req.Platform != "" {
		item = &types.ContentItem{Title: req.Title, Platform: req.Platform}
	}
	out, err := h.progression.OnContent(c.Request.Context(), uid, item)
	h.respond(c, uid, out, err)
}

type weekCompleteRequest struct {
	CompletionPct *float64 `json:"completion_pct" binding:"required"`
	RRDelta       int      `json:"rr_delta"`
}

// POST /api/progression/week-complete
func (h *ProgressionHandler) WeekComplete(c *gin.Context) {
	var req weekCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	uid := userID(c)
	out, err := h.progression.OnWeekComplete(c.Request.Context(), uid, *req.CompletionPct, req.RRDelta)
	h.respond(c, uid, out, err)
}

// GET /api/progression
func (h *ProgressionHandler) Get(c *gin.Context) {
	view, err := h.progression.GetProgression(c.Request.Context(), userID(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

// GET /api/achievements
func (h *ProgressionHandler) Achievements(c *gin.Context) {
	summary, err := h.progression.GetAchievements(c.Request.Context(), userID(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, summary)
}

// GET /api/content?limit=
func (h *ProgressionHandler) RecentContent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.progression.RecentContent(c.Request.Context(), userID(c), limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

func (h *ProgressionHandler) respond(c *gin.Context, uid uuid.UUID, out services.Outcome, err error) {
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	h.announce(uid, out)
	response.RespondOK(c, out)
}

// announce pushes celebratory events to every tab of the user.
func (h *ProgressionHandler) announce(uid uuid.UUID, out services.Outcome) {
	if h.hub == nil || uid == uuid.Nil {
		return
	}
	channel := realtime.UserChannel(uid)
	if out.LeveledUp {
		h.hub.Broadcast(realtime.SSEMessage{
			Channel: channel,
			Event:   realtime.SSEEventLevelUp,
			Data:    gin.H{"level": out.NewLevel},
		})
	}
	for _, a := range out.Unlocked {
		h.hub.Broadcast(realtime.SSEMessage{
			Channel: channel,
			Event:   realtime.SSEEventAchievement,
			Data:    a,
		})
	}
}
