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

// CertificateHandler handles NC and COC certificate submission endpoints.
type CertificateHandler struct {
	service *service.CertificateService
}

// NewCertificateHandler creates a new certificate handler.
func NewCertificateHandler(svc *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{service: svc}
}

// List godoc
// @Summary List certificate submissions
// @Description List certificate submissions with pagination and filtering
// @Tags Certificates
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param student_id query string false "Student filter"
// @Param type query string false "Certificate type filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /certificates [get]
func (h *CertificateHandler) List(c *gin.Context) {
	var filter models.CertificateFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.StudentID = c.Query("student_id")
	filter.Type = models.CertificateType(strings.ToUpper(c.Query("type")))
	filter.Status = models.CertificateStatus(strings.ToUpper(c.Query("status")))

	if claims := claimsFromContext(c); studentScoped(claims) {
		filter.StudentID = claims.UserID
	}

	certificates, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, certificates, pagination)
}

// Get godoc
// @Summary Get certificate submission
// @Description Get a single certificate submission
// @Tags Certificates
// @Produce json
// @Param id path string true "Certificate ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificates/{id} [get]
func (h *CertificateHandler) Get(c *gin.Context) {
	certificate, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); studentScoped(claims) && certificate.StudentID != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	response.JSON(c, http.StatusOK, certificate, nil)
}

// Submit godoc
// @Summary Submit certificate
// @Description File an NC or COC certificate claim for review
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body service.SubmitCertificateRequest true "Certificate payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /certificates [post]
func (h *CertificateHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.StudentID = claims.UserID

	certificate, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, certificate)
}

// Edit godoc
// @Summary Edit certificate submission
// @Description Rewrite a submission's fields, resetting it to PENDING review
// @Tags Certificates
// @Accept json
// @Produce json
// @Param id path string true "Certificate ID"
// @Param payload body service.SubmitCertificateRequest true "Certificate payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificates/{id} [put]
func (h *CertificateHandler) Edit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.StudentID = claims.UserID

	certificate, err := h.service.Edit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, certificate, nil)
}

// Review godoc
// @Summary Review certificate submission
// @Description Approve or reject a pending submission; the decision is one-shot
// @Tags Certificates
// @Accept json
// @Produce json
// @Param id path string true "Certificate ID"
// @Param payload body service.ReviewCertificateRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /certificates/{id}/review [post]
func (h *CertificateHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ReviewCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	certificate, err := h.service.Review(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, certificate, nil)
}
