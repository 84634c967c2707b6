package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadly/timetable-api/internal/service"
	"github.com/acadly/timetable-api/pkg/response"
)

// AnalyticsHandler serves aggregated scheduling statistics.
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc}
}

// Schedules godoc
// @Summary Aggregated schedule analytics
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/schedules [get]
func (h *AnalyticsHandler) Schedules(c *gin.Context) {
	analytics, cacheHit, err := h.service.Schedules(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, analytics, nil, map[string]interface{}{
		"cache_hit": cacheHit,
	})
}
