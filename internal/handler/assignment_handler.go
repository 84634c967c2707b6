package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/acadly/timetable-api/internal/models"
	"github.com/acadly/timetable-api/internal/service"
	appErrors "github.com/acadly/timetable-api/pkg/errors"
	"github.com/acadly/timetable-api/pkg/response"
)

// AssignmentHandler manages assignment-engine endpoints.
type AssignmentHandler struct {
	service   *service.AssignmentService
	analytics *service.AnalyticsService
}

// NewAssignmentHandler constructs handler. The analytics service may be
// nil; it is only used to drop stale cached counts after writes.
func NewAssignmentHandler(svc *service.AssignmentService, analytics *service.AnalyticsService) *AssignmentHandler {
	return &AssignmentHandler{service: svc, analytics: analytics}
}

// Assign godoc
// @Summary Assign a weekly class slot for one month
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.AssignScheduleRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req service.AssignScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignments, err := h.service.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.analytics != nil {
		h.analytics.InvalidateCache(c.Request.Context())
	}
	response.Created(c, assignments)
}

// List godoc
// @Summary List assignments
// @Tags Assignments
// @Produce json
// @Param professor query string false "Filter by professor"
// @Param groupNo query int false "Filter by group"
// @Param subject query string false "Filter by subject"
// @Param date query string false "Filter by date"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	var filter models.AssignmentFilter
	filter.Professor = c.Query("professor")
	filter.Subject = c.Query("subject")
	filter.Date = c.Query("date")
	filter.Day = c.Query("day")
	if groupNo, err := strconv.Atoi(c.DefaultQuery("groupNo", "0")); err == nil {
		filter.GroupNo = groupNo
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	assignments, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, pagination)
}

// ListByGroup godoc
// @Summary List assignments for a student group
// @Tags Assignments
// @Produce json
// @Param groupNo path int true "Group number"
// @Success 200 {object} response.Envelope
// @Router /assignments/group/{groupNo} [get]
func (h *AssignmentHandler) ListByGroup(c *gin.Context) {
	groupNo, err := strconv.Atoi(c.Param("groupNo"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidGroup, "group number must be an integer"))
		return
	}
	assignments, err := h.service.ListByGroup(c.Request.Context(), groupNo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Update godoc
// @Summary Update a single assignment occurrence
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body service.UpdateAssignmentRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	var req service.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.analytics != nil {
		h.analytics.InvalidateCache(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Delete godoc
// @Summary Delete a single assignment occurrence
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	if h.analytics != nil {
		h.analytics.InvalidateCache(c.Request.Context())
	}
	response.NoContent(c)
}
