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

// ReminderHandler handles reminder management and the personal feed.
type ReminderHandler struct {
	service *service.ReminderService
}

// NewReminderHandler creates a new reminder handler.
func NewReminderHandler(svc *service.ReminderService) *ReminderHandler {
	return &ReminderHandler{service: svc}
}

// List godoc
// @Summary List reminders
// @Description Management view of reminders with pagination and filtering
// @Tags Reminders
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param audience query string false "Audience filter"
// @Param priority query string false "Priority filter"
// @Param active query bool false "Only unexpired"
// @Success 200 {object} response.Envelope
// @Router /reminders [get]
func (h *ReminderHandler) List(c *gin.Context) {
	var filter models.ReminderFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.Audience = models.ReminderAudience(strings.ToUpper(c.Query("audience")))
	filter.Priority = models.ReminderPriority(strings.ToUpper(c.Query("priority")))
	if active := c.Query("active"); active != "" {
		if val, err := strconv.ParseBool(active); err == nil {
			filter.Active = val
		}
	}

	reminders, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reminders, pagination)
}

// Create godoc
// @Summary Create reminder
// @Description Publish a reminder to an audience; staff may only address students
// @Tags Reminders
// @Accept json
// @Produce json
// @Param payload body service.CreateReminderRequest true "Reminder payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reminders [post]
func (h *ReminderHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	reminder, err := h.service.Create(c.Request.Context(), claims.UserID, claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, reminder)
}

// Update godoc
// @Summary Update reminder
// @Description Edit a reminder; the editor's role is held to the same audience rules
// @Tags Reminders
// @Accept json
// @Produce json
// @Param id path string true "Reminder ID"
// @Param payload body service.CreateReminderRequest true "Reminder payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reminders/{id} [put]
func (h *ReminderHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	reminder, err := h.service.Update(c.Request.Context(), c.Param("id"), claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reminder, nil)
}

// Delete godoc
// @Summary Delete reminder
// @Description Remove a reminder
// @Tags Reminders
// @Produce json
// @Param id path string true "Reminder ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reminders/{id} [delete]
func (h *ReminderHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Feed godoc
// @Summary My reminder feed
// @Description Unexpired reminders visible to the authenticated user
// @Tags Reminders
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /reminders/feed [get]
func (h *ReminderHandler) Feed(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	viewer := service.ReminderViewer{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}
	reminders, err := h.service.Feed(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reminders, nil)
}
