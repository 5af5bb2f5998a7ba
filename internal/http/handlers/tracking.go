package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/noctisium-backend/internal/http/response"
	"github.com/yungbote/noctisium-backend/internal/services"
)

type TrackingHandler struct {
	tracking services.TrackingService
	sessions services.SessionManager
}

func NewTrackingHandler(tracking services.TrackingService, sessions services.SessionManager) *TrackingHandler {
	return &TrackingHandler{tracking: tracking, sessions: sessions}
}

type valueRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

// PUT /api/weeks/:week/kpis/:kpi
func (h *TrackingHandler) UpdateWeeklyKPI(c *gin.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sess, ok := openSession(c, h.sessions)
	if !ok {
		return
	}
	week, kpi := c.Param("week"), c.Param("kpi")
	stored, err := h.tracking.UpdateWeeklyKPI(c.Request.Context(), sess, week, kpi, *req.Value)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"week_key": week, "kpi_id": kpi, "value": stored})
}

// PUT /api/days/:date/metrics/:metric
func (h *TrackingHandler) UpdateDailyMetric(c *gin.Context) {
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sess, ok := openSession(c, h.sessions)
	if !ok {
		return
	}
	date, metric := c.Param("date"), c.Param("metric")
	stored, err := h.tracking.UpdateDailyMetric(c.Request.Context(), sess, date, metric, *req.Value)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"date": date, "metric": metric, "value": stored})
}

// GET /api/weeks/:week/completion
func (h *TrackingHandler) WeekCompletion(c *gin.Context) {
	sess, ok := openSession(c, h.sessions)
	if !ok {
		return
	}
	res, err := h.tracking.WeekCompletion(c.Request.Context(), sess, c.Param("week"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/kpis
func (h *TrackingHandler) ListKPIs(c *gin.Context) {
	kpis, err := h.tracking.ListKPIs(c.Request.Context(), userID(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"kpis": kpis})
}

// PUT /api/kpis/:kpi
func (h *TrackingHandler) SaveKPI(c *gin.Context) {
	var patch services.KPIPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	def, err := h.tracking.SaveKPI(c.Request.Context(), userID(c), c.Param("kpi"), patch)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"kpi": def})
}
