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

// EnrollmentHandler handles the enrollment ledger endpoints.
type EnrollmentHandler struct {
	service  *service.EnrollmentService
	progress *service.ProgressService
	metrics  *service.MetricsService
}

// NewEnrollmentHandler creates a new enrollment handler.
func NewEnrollmentHandler(svc *service.EnrollmentService, progress *service.ProgressService, metrics *service.MetricsService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc, progress: progress, metrics: metrics}
}

// List godoc
// @Summary List enrollments
// @Description List enrollments with pagination and filtering
// @Tags Enrollments
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param student_id query string false "Student filter"
// @Param course_id query string false "Course filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.StudentID = c.Query("student_id")
	filter.CourseID = c.Query("course_id")
	filter.Status = models.EnrollmentStatus(strings.ToUpper(c.Query("status")))
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	enrollments, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get godoc
// @Summary Get enrollment
// @Description Get a single enrollment record
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	enrollment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if studentScoped(claims) && enrollment.StudentID != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	response.JSON(c, http.StatusOK, enrollment, nil)
}

// MyEnrollments godoc
// @Summary My enrollments
// @Description Every enrollment of the authenticated student, with derived progress
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /enrollments/me [get]
func (h *EnrollmentHandler) MyEnrollments(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	enrollments, err := h.service.ListForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	enrollments = h.progress.StudentProgress(c.Request.Context(), enrollments)

	response.JSON(c, http.StatusOK, enrollments, nil)
}

// Enroll godoc
// @Summary Self-enroll in a course
// @Description Enroll the authenticated student, subject to capacity and course gates
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enroll payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	// Students always enroll themselves.
	req.StudentID = claims.UserID
	req.StaffOverride = false

	enrollment, err := h.service.Enroll(c.Request.Context(), req)
	if err != nil {
		h.metrics.RecordEnrollmentEvent("rejected")
		response.Error(c, err)
		return
	}
	h.metrics.RecordEnrollmentEvent("enrolled")

	response.Created(c, enrollment)
}

// StaffEnroll godoc
// @Summary Enroll a student
// @Description Enroll a named student, bypassing the self-enrollment and password gates
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enroll payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/staff [post]
func (h *EnrollmentHandler) StaffEnroll(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.StaffOverride = true

	enrollment, err := h.service.Enroll(c.Request.Context(), req)
	if err != nil {
		h.metrics.RecordEnrollmentEvent("rejected")
		response.Error(c, err)
		return
	}
	h.metrics.RecordEnrollmentEvent("enrolled")

	response.Created(c, enrollment)
}

// Drop godoc
// @Summary Drop enrollment
// @Description Drop an active enrollment and release its seat
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/drop [post]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	claims := claimsFromContext(c)
	if studentScoped(claims) {
		existing, err := h.service.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		if existing.StudentID != claims.UserID {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
	}

	enrollment, err := h.service.Drop(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordEnrollmentEvent("dropped")

	response.JSON(c, http.StatusOK, enrollment, nil)
}

// CompleteLesson godoc
// @Summary Complete lesson
// @Description Advance the lesson counter of an active enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id}/complete-lesson [post]
func (h *EnrollmentHandler) CompleteLesson(c *gin.Context) {
	claims := claimsFromContext(c)
	if studentScoped(claims) {
		existing, err := h.service.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		if existing.StudentID != claims.UserID {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
	}

	var payload struct {
		NextLessonID *string `json:"next_lesson_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	enrollment, err := h.service.CompleteLesson(c.Request.Context(), c.Param("id"), payload.NextLessonID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Complete godoc
// @Summary Complete enrollment
// @Description Mark an active enrollment completed with an optional final grade
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.CompleteEnrollmentRequest true "Completion payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id}/complete [post]
func (h *EnrollmentHandler) Complete(c *gin.Context) {
	var req service.CompleteEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	enrollment, err := h.service.Complete(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordEnrollmentEvent("completed")

	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Reconcile godoc
// @Summary Reconcile seat counters
// @Description Recount every course's seat counter from the enrollment ledger
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments/reconcile [post]
func (h *EnrollmentHandler) Reconcile(c *gin.Context) {
	repaired, err := h.service.Reconcile(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"repaired": repaired}, nil)
}
