package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FerventBolt/tesda-lms-api/internal/models"
	"github.com/FerventBolt/tesda-lms-api/internal/service"
	appErrors "github.com/FerventBolt/tesda-lms-api/pkg/errors"
	"github.com/FerventBolt/tesda-lms-api/pkg/response"
)

// LessonHandler handles course content endpoints: lessons, materials and
// assignments.
type LessonHandler struct {
	service *service.LessonService
}

// NewLessonHandler creates a new lesson handler.
func NewLessonHandler(svc *service.LessonService) *LessonHandler {
	return &LessonHandler{service: svc}
}

// publishedOnly reports whether the caller gets the student view: drafts are
// stripped for students, staff and admins see the full working set.
func publishedOnly(c *gin.Context) bool {
	claims := claimsFromContext(c)
	return claims == nil || claims.Role == models.RoleStudent
}

// List godoc
// @Summary List lessons
// @Description Merged lesson set of a course ordered by position
// @Tags Lessons
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/lessons [get]
func (h *LessonHandler) List(c *gin.Context) {
	lessons, err := h.service.List(c.Request.Context(), c.Param("id"), publishedOnly(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, lessons, nil)
}

// Get godoc
// @Summary Get lesson
// @Description Single lesson from the merged working set
// @Tags Lessons
// @Produce json
// @Param id path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/lessons/{lessonId} [get]
func (h *LessonHandler) Get(c *gin.Context) {
	lesson, err := h.service.Get(c.Request.Context(), c.Param("id"), c.Param("lessonId"), publishedOnly(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, lesson, nil)
}

// Create godoc
// @Summary Create lesson
// @Description Author a new lesson in the course's local content tier
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.CreateLessonRequest true "Create lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses/{id}/lessons [post]
func (h *LessonHandler) Create(c *gin.Context) {
	var req service.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	lesson, err := h.service.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, lesson)
}

// Update godoc
// @Summary Update lesson
// @Description Edit a lesson; editing a default lesson shadows it locally
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Param payload body service.UpdateLessonRequest true "Update lesson payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/lessons/{lessonId} [put]
func (h *LessonHandler) Update(c *gin.Context) {
	var req service.UpdateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	lesson, err := h.service.Update(c.Request.Context(), c.Param("id"), c.Param("lessonId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, lesson, nil)
}

// Delete godoc
// @Summary Delete lesson
// @Description Remove a locally authored lesson; default lessons cannot be deleted
// @Tags Lessons
// @Produce json
// @Param id path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/lessons/{lessonId} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.Param("lessonId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// AddMaterial godoc
// @Summary Add material
// @Description Attach a resource to a lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Param payload body service.AddMaterialRequest true "Material payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/lessons/{lessonId}/materials [post]
func (h *LessonHandler) AddMaterial(c *gin.Context) {
	var req service.AddMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	lesson, err := h.service.AddMaterial(c.Request.Context(), c.Param("id"), c.Param("lessonId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, lesson, nil)
}

// CreateAssignment godoc
// @Summary Create assignment
// @Description Attach draft graded work to a lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Param payload body service.CreateAssignmentRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/lessons/{lessonId}/assignments [post]
func (h *LessonHandler) CreateAssignment(c *gin.Context) {
	var req service.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	lesson, err := h.service.CreateAssignment(c.Request.Context(), c.Param("id"), c.Param("lessonId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, lesson, nil)
}

// PublishAssignment godoc
// @Summary Publish assignment
// @Description Make an assignment visible and submittable
// @Tags Lessons
// @Produce json
// @Param id path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Param assignmentId path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/lessons/{lessonId}/assignments/{assignmentId}/publish [post]
func (h *LessonHandler) PublishAssignment(c *gin.Context) {
	lesson, err := h.service.PublishAssignment(c.Request.Context(), c.Param("id"), c.Param("lessonId"), c.Param("assignmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, lesson, nil)
}
