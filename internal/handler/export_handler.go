package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/acadly/timetable-api/internal/service"
	appErrors "github.com/acadly/timetable-api/pkg/errors"
	"github.com/acadly/timetable-api/pkg/response"
)

// ExportHandler serves timetable downloads.
type ExportHandler struct {
	service *service.ExportService
}

func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// ProfessorTimetable godoc
// @Summary Download a professor's timetable
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param username path string true "Professor username"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Router /exports/professors/{username} [get]
func (h *ExportHandler) ProfessorTimetable(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV)))
	result, err := h.service.ProfessorTimetable(c.Request.Context(), c.Param("username"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.send(c, result)
}

// GroupTimetable godoc
// @Summary Download a group's timetable
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param groupNo path int true "Group number"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Router /exports/groups/{groupNo} [get]
func (h *ExportHandler) GroupTimetable(c *gin.Context) {
	groupNo, err := strconv.Atoi(c.Param("groupNo"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidGroup, "group number must be an integer"))
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV)))
	result, err := h.service.GroupTimetable(c.Request.Context(), groupNo, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.send(c, result)
}

func (h *ExportHandler) send(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
