package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
	"github.com/FerventBolt/tesda-lms-api/internal/service"
	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
	"github.com/FerventBolt/tesda-lms-api/pkg/response"
)

// SubmissionHandler handles assignment submission endpoints.
type SubmissionHandler struct {
	service *service.SubmissionService
}

// NewSubmissionHandler creates a new submission handler.
func NewSubmissionHandler(svc *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

// List godoc
// @Summary List submissions
// @Description List submissions with pagination and filtering
// @Tags Submissions
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param student_id query string false "Student filter"
// @Param assignment_id query string false "Assignment filter"
// @Param course_id query string false "Course filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	var filter models.SubmissionFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.StudentID = c.Query("student_id")
	filter.AssignmentID = c.Query("assignment_id")
	filter.CourseID = c.Query("course_id")
	filter.Status = models.SubmissionStatus(strings.ToUpper(c.Query("status")))

	// Students only see their own work.
	if claims := claimsFromContext(c); studentScoped(claims) {
		filter.StudentID = claims.UserID
	}

	submissions, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, submissions, pagination)
}

// Get godoc
// @Summary Get submission
// @Description Get a single submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	submission, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); studentScoped(claims) && submission.StudentID != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	response.JSON(c, http.StatusOK, submission, nil)
}

// Submit godoc
// @Summary Submit assignment work
// @Description Record the authenticated student's work; resubmission replaces the prior record
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body service.SubmitRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.StudentID = claims.UserID

	submission, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, submission)
}

// Grade godoc
// @Summary Grade submission
// @Description Record a score within the assignment's maximum points
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body service.GradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id}/grade [post]
func (h *SubmissionHandler) Grade(c *gin.Context) {
	var req service.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	submission, err := h.service.Grade(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, submission, nil)
}
