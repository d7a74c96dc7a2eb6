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

// CourseHandler handles course catalog endpoints.
type CourseHandler struct {
	service  *service.CourseService
	progress *service.ProgressService
}

// NewCourseHandler creates a new course handler.
func NewCourseHandler(svc *service.CourseService, progress *service.ProgressService) *CourseHandler {
	return &CourseHandler{service: svc, progress: progress}
}

// List godoc
// @Summary List courses
// @Description List courses with pagination and filtering
// @Tags Courses
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param category query string false "Category filter"
// @Param level query string false "Level filter"
// @Param status query string false "Status filter"
// @Param search query string false "Search term"
// @Param sort_by query string false "Sort by"
// @Param sort_order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var filter models.CourseFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.Category = models.CourseCategory(strings.ToUpper(c.Query("category")))
	filter.Level = models.CourseLevel(strings.ToUpper(c.Query("level")))
	filter.Status = models.CourseStatus(strings.ToUpper(c.Query("status")))
	filter.Search = c.Query("search")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	// Students only ever see the active catalog.
	if claims := claimsFromContext(c); studentScoped(claims) {
		filter.Status = models.CourseStatusActive
	}

	courses, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, courses, pagination)
}

// Get godoc
// @Summary Get course
// @Description Get course detail
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create course
// @Description Create a new course in the catalog
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Create course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	course, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Description Update course attributes
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.UpdateCourseRequest true "Update course payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req service.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	course, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, course, nil)
}

// Deactivate godoc
// @Summary Deactivate course
// @Description Close a course to new enrollments; existing enrollments are kept
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Summary godoc
// @Summary Course statistics
// @Description Derived enrollment and progress statistics of a course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/summary [get]
func (h *CourseHandler) Summary(c *gin.Context) {
	summary, err := h.progress.CourseSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}

// PendingAssignments godoc
// @Summary Pending assignments
// @Description Published assignments of a course the student has not submitted yet
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Param student_id query string false "Student ID (staff only, defaults to caller)"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /courses/{id}/pending-assignments [get]
func (h *CourseHandler) PendingAssignments(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	// Students always see their own backlog; staff may inspect a student's.
	studentID := claims.UserID
	if requested := c.Query("student_id"); requested != "" && claims.Role != models.RoleStudent {
		studentID = requested
	}

	assignments, err := h.progress.StudentPendingAssignments(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignments, nil)
}
