package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadly/timetable-api/internal/service"
	appErrors "github.com/acadly/timetable-api/pkg/errors"
	"github.com/acadly/timetable-api/pkg/response"
)

// ProfessorHandler manages the professor directory endpoints.
type ProfessorHandler struct {
	professors  *service.ProfessorService
	assignments *service.AssignmentService
}

// NewProfessorHandler constructs handler.
func NewProfessorHandler(professors *service.ProfessorService, assignments *service.AssignmentService) *ProfessorHandler {
	return &ProfessorHandler{professors: professors, assignments: assignments}
}

// Register godoc
// @Summary Register a professor (HOD only)
// @Tags Professors
// @Accept json
// @Produce json
// @Param payload body service.RegisterProfessorRequest true "Professor payload"
// @Success 201 {object} response.Envelope
// @Router /professors [post]
func (h *ProfessorHandler) Register(c *gin.Context) {
	var req service.RegisterProfessorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	professor, err := h.professors.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, professor)
}

// List godoc
// @Summary List professors with their subjects
// @Tags Professors
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /professors [get]
func (h *ProfessorHandler) List(c *gin.Context) {
	professors, err := h.professors.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professors, nil)
}

// Schedule godoc
// @Summary List a professor's assignments
// @Tags Professors
// @Produce json
// @Param username path string true "Professor username"
// @Success 200 {object} response.Envelope
// @Router /professors/{username}/schedule [get]
func (h *ProfessorHandler) Schedule(c *gin.Context) {
	assignments, err := h.assignments.ListByProfessor(c.Request.Context(), c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}
