package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/linkboard-io/linkboard-api/internal/models"
	"github.com/linkboard-io/linkboard-api/internal/service"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
	"github.com/linkboard-io/linkboard-api/pkg/response"
)

type shareAdminService interface {
	List(ctx context.Context, filter models.ShareFilter) ([]models.SharedView, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.SharedView, error)
	Create(ctx context.Context, req service.CreateShareRequest, createdBy string) (*models.SharedView, error)
	Update(ctx context.Context, id string, req service.UpdateShareRequest) (*models.SharedView, error)
	Delete(ctx context.Context, id string) error
}

type shareAnalyticsService interface {
	Stats(ctx context.Context, shareID string) (*models.ShareAccessStats, error)
	ListEvents(ctx context.Context, shareID string, filter models.AccessEventFilter) ([]models.ShareAccessEvent, *models.Pagination, error)
	CreateExport(ctx context.Context, shareID string, format models.ExportFormat, createdBy string) (*models.ExportJob, error)
	GetExport(ctx context.Context, jobID string) (*models.ExportJob, error)
	OpenDownload(ctx context.Context, token string) (*models.ExportJob, *os.File, error)
}

// ShareAdminHandler exposes the authenticated share management surface.
type ShareAdminHandler struct {
	shares    shareAdminService
	analytics shareAnalyticsService
}

// NewShareAdminHandler builds a new handler.
func NewShareAdminHandler(shares shareAdminService, analytics shareAnalyticsService) *ShareAdminHandler {
	return &ShareAdminHandler{shares: shares, analytics: analytics}
}

// List godoc
// @Summary List shares
// @Tags Shares
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param access_type query string false "Filter by access type"
// @Param search query string false "Search by name"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /shares [get]
func (h *ShareAdminHandler) List(c *gin.Context) {
	filter := models.ShareFilter{
		AccessType: c.Query("access_type"),
		Search:     c.Query("search"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 20),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	shares, pagination, err := h.shares.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shares, pagination)
}

// Get godoc
// @Summary Get a share
// @Tags Shares
// @Produce json
// @Param id path string true "Share id"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /shares/{id} [get]
func (h *ShareAdminHandler) Get(c *gin.Context) {
	share, err := h.shares.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, share, nil)
}

// Create godoc
// @Summary Publish a share
// @Tags Shares
// @Accept json
// @Produce json
// @Param payload body service.CreateShareRequest true "Share payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /shares [post]
func (h *ShareAdminHandler) Create(c *gin.Context) {
	var req service.CreateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid share payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	share, err := h.shares.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, share)
}

// Update godoc
// @Summary Update a share
// @Tags Shares
// @Accept json
// @Produce json
// @Param id path string true "Share id"
// @Param payload body service.UpdateShareRequest true "Share payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /shares/{id} [put]
func (h *ShareAdminHandler) Update(c *gin.Context) {
	var req service.UpdateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid share payload"))
		return
	}
	share, err := h.shares.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, share, nil)
}

// Delete godoc
// @Summary Revoke a share
// @Tags Shares
// @Param id path string true "Share id"
// @Success 204
// @Security BearerAuth
// @Router /shares/{id} [delete]
func (h *ShareAdminHandler) Delete(c *gin.Context) {
	if err := h.shares.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Access statistics for a share
// @Tags Shares
// @Produce json
// @Param id path string true "Share id"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /shares/{id}/stats [get]
func (h *ShareAdminHandler) Stats(c *gin.Context) {
	stats, err := h.analytics.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Events godoc
// @Summary Raw access log for a share
// @Tags Shares
// @Produce json
// @Param id path string true "Share id"
// @Param session query string false "Filter by session id"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /shares/{id}/events [get]
func (h *ShareAdminHandler) Events(c *gin.Context) {
	filter := models.AccessEventFilter{
		SessionID: c.Query("session"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 50),
	}
	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from timestamp"))
			return
		}
		filter.From = &ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to timestamp"))
			return
		}
		filter.To = &ts
	}
	events, pagination, err := h.analytics.ListEvents(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}

// CreateExport godoc
// @Summary Queue an access-log export
// @Tags Shares
// @Accept json
// @Produce json
// @Param id path string true "Share id"
// @Success 202 {object} response.Envelope
// @Security BearerAuth
// @Router /shares/{id}/exports [post]
func (h *ShareAdminHandler) CreateExport(c *gin.Context) {
	var req struct {
		Format string `json:"format"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	job, err := h.analytics.CreateExport(c.Request.Context(), c.Param("id"), models.ExportFormat(req.Format), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// GetExport godoc
// @Summary Export job status
// @Tags Shares
// @Produce json
// @Param jobId path string true "Export job id"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /shares/exports/{jobId} [get]
func (h *ShareAdminHandler) GetExport(c *gin.Context) {
	job, err := h.analytics.GetExport(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// DownloadExport godoc
// @Summary Download a rendered export
// @Tags Shares
// @Param token path string true "Signed download token"
// @Success 200
// @Failure 403 {object} response.Envelope
// @Router /shares/exports/download/{token} [get]
func (h *ShareAdminHandler) DownloadExport(c *gin.Context) {
	job, file, err := h.analytics.OpenDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	contentType := "text/csv"
	if job.Format == models.ExportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", "attachment; filename="+filepath.Base(file.Name()))
	c.Header("Content-Type", contentType)
	c.File(file.Name())
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
