package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/linkboard-io/linkboard-api/internal/dto"
	"github.com/linkboard-io/linkboard-api/internal/models"
	"github.com/linkboard-io/linkboard-api/internal/service"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
	"github.com/linkboard-io/linkboard-api/pkg/response"
)

type shareResolver interface {
	Resolve(ctx context.Context, uid string, visitor service.Visitor) (*dto.ShareResolution, error)
	Authorize(ctx context.Context, uid string) (*models.SharedView, error)
	TrackClick(ctx context.Context, uid, bookmarkID string) error
}

type overlayEditor interface {
	AddBookmark(ctx context.Context, share *models.SharedView, sessionID string, req service.AddPersonalBookmarkRequest) (*models.PersonalOverlay, error)
	UpdateBookmark(ctx context.Context, share *models.SharedView, sessionID, bookmarkID string, req service.UpdatePersonalBookmarkRequest) (*models.PersonalOverlay, error)
	RemoveBookmark(ctx context.Context, share *models.SharedView, sessionID, bookmarkID string) (*models.PersonalOverlay, error)
	AddGroup(ctx context.Context, share *models.SharedView, sessionID string, req service.AddPersonalGroupRequest) (*models.PersonalOverlay, error)
	SetHidden(ctx context.Context, share *models.SharedView, sessionID, bookmarkID string, hidden bool) (*models.PersonalOverlay, error)
	SetFavorite(ctx context.Context, share *models.SharedView, sessionID, bookmarkID string, favorite bool) (*models.PersonalOverlay, error)
	SetCustomTag(ctx context.Context, share *models.SharedView, sessionID, bookmarkID string, req service.SetCustomTagRequest) (*models.PersonalOverlay, error)
	SetPreferences(ctx context.Context, share *models.SharedView, sessionID string, req service.SetOverlayPreferencesRequest) (*models.PersonalOverlay, error)
}

// PublicShareHandler exposes the anonymous visitor surface. No route
// here requires authentication; the share uid plus the visitor session
// id are the whole request identity.
type PublicShareHandler struct {
	resolver shareResolver
	overlay  overlayEditor
	metrics  *service.MetricsService
}

// NewPublicShareHandler builds a new handler.
func NewPublicShareHandler(resolver shareResolver, overlay overlayEditor, metrics *service.MetricsService) *PublicShareHandler {
	return &PublicShareHandler{resolver: resolver, overlay: overlay, metrics: metrics}
}

// Resolve godoc
// @Summary Resolve a shared view
// @Tags Public
// @Produce json
// @Param uid path string true "Share uid"
// @Param X-Share-Session header string false "Visitor session id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /share/{uid} [get]
func (h *PublicShareHandler) Resolve(c *gin.Context) {
	resolution, err := h.resolver.Resolve(c.Request.Context(), c.Param("uid"), visitorFromContext(c))
	if err != nil {
		h.recordOutcome(err)
		response.Error(c, err)
		return
	}
	h.recordOutcome(nil)
	response.JSON(c, http.StatusOK, resolution, nil)
}

// TrackClick godoc
// @Summary Record a bookmark click
// @Tags Public
// @Param uid path string true "Share uid"
// @Param bookmarkId path string true "Bookmark id"
// @Success 204
// @Router /share/{uid}/click/{bookmarkId} [post]
func (h *PublicShareHandler) TrackClick(c *gin.Context) {
	if err := h.resolver.TrackClick(c.Request.Context(), c.Param("uid"), c.Param("bookmarkId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddBookmark godoc
// @Summary Add a personal bookmark to the visitor's overlay
// @Tags Public
// @Accept json
// @Produce json
// @Param uid path string true "Share uid"
// @Param payload body service.AddPersonalBookmarkRequest true "Bookmark payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /share/{uid}/bookmarks [post]
func (h *PublicShareHandler) AddBookmark(c *gin.Context) {
	var req service.AddPersonalBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bookmark payload"))
		return
	}
	h.withShare(c, func(share *models.SharedView) (*models.PersonalOverlay, error) {
		return h.overlay.AddBookmark(c.Request.Context(), share, sessionFromContext(c), req)
	}, http.StatusCreated)
}

// UpdateBookmark godoc
// @Summary Edit a personal bookmark
// @Tags Public
// @Accept json
// @Produce json
// @Param uid path string true "Share uid"
// @Param bookmarkId path string true "Personal bookmark id"
// @Param payload body service.UpdatePersonalBookmarkRequest true "Bookmark payload"
// @Success 200 {object} response.Envelope
// @Router /share/{uid}/bookmarks/{bookmarkId} [put]
func (h *PublicShareHandler) UpdateBookmark(c *gin.Context) {
	var req service.UpdatePersonalBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bookmark payload"))
		return
	}
	h.withShare(c, func(share *models.SharedView) (*models.PersonalOverlay, error) {
		return h.overlay.UpdateBookmark(c.Request.Context(), share, sessionFromContext(c), c.Param("bookmarkId"), req)
	}, http.StatusOK)
}

// RemoveBookmark godoc
// @Summary Remove a personal bookmark
// @Tags Public
// @Produce json
// @Param uid path string true "Share uid"
// @Param bookmarkId path string true "Personal bookmark id"
// @Success 200 {object} response.Envelope
// @Router /share/{uid}/bookmarks/{bookmarkId} [delete]
func (h *PublicShareHandler) RemoveBookmark(c *gin.Context) {
	h.withShare(c, func(share *models.SharedView) (*models.PersonalOverlay, error) {
		return h.overlay.RemoveBookmark(c.Request.Context(), share, sessionFromContext(c), c.Param("bookmarkId"))
	}, http.StatusOK)
}

// AddGroup godoc
// @Summary Add a personal group to the visitor's overlay
// @Tags Public
// @Accept json
// @Produce json
// @Param uid path string true "Share uid"
// @Param payload body service.AddPersonalGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /share/{uid}/groups [post]
func (h *PublicShareHandler) AddGroup(c *gin.Context) {
	var req service.AddPersonalGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid group payload"))
		return
	}
	h.withShare(c, func(share *models.SharedView) (*models.PersonalOverlay, error) {
		return h.overlay.AddGroup(c.Request.Context(), share, sessionFromContext(c), req)
	}, http.StatusCreated)
}

// SetHidden godoc
// @Summary Hide or unhide a bookmark in the visitor's view
// @Tags Public
// @Accept json
// @Produce json
// @Param uid path string true "Share uid"
// @Param bookmarkId path string true "Bookmark id"
// @Param payload body service.SetHiddenRequest true "Hidden flag"
// @Success 200 {object} response.Envelope
// @Router /share/{uid}/bookmarks/{bookmarkId}/hidden [put]
func (h *PublicShareHandler) SetHidden(c *gin.Context) {
	var req service.SetHiddenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Hidden == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "hidden flag is required"))
		return
	}
	h.withShare(c, func(share *models.SharedView) (*models.PersonalOverlay, error) {
		return h.overlay.SetHidden(c.Request.Context(), share, sessionFromContext(c), c.Param("bookmarkId"), *req.Hidden)
	}, http.StatusOK)
}

// SetFavorite godoc
// @Summary Favorite or unfavorite a bookmark
// @Tags Public
// @Accept json
// @Produce json
// @Param uid path string true "Share uid"
// @Param bookmarkId path string true "Bookmark id"
// @Param payload body service.SetFavoriteRequest true "Favorite flag"
// @Success 200 {object} response.Envelope
// @Router /share/{uid}/bookmarks/{bookmarkId}/favorite [put]
func (h *PublicShareHandler) SetFavorite(c *gin.Context) {
	var req service.SetFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Favorite == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "favorite flag is required"))
		return
	}
	h.withShare(c, func(share *models.SharedView) (*models.PersonalOverlay, error) {
		return h.overlay.SetFavorite(c.Request.Context(), share, sessionFromContext(c), c.Param("bookmarkId"), *req.Favorite)
	}, http.StatusOK)
}

// SetCustomTag godoc
// @Summary Override the displayed tag for a bookmark
// @Tags Public
// @Accept json
// @Produce json
// @Param uid path string true "Share uid"
// @Param bookmarkId path string true "Bookmark id"
// @Param payload body service.SetCustomTagRequest true "Tag override, null to clear"
// @Success 200 {object} response.Envelope
// @Router /share/{uid}/bookmarks/{bookmarkId}/tag [put]
func (h *PublicShareHandler) SetCustomTag(c *gin.Context) {
	var req service.SetCustomTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tag payload"))
		return
	}
	h.withShare(c, func(share *models.SharedView) (*models.PersonalOverlay, error) {
		return h.overlay.SetCustomTag(c.Request.Context(), share, sessionFromContext(c), c.Param("bookmarkId"), req)
	}, http.StatusOK)
}

// SetPreferences godoc
// @Summary Update the visitor's display preferences
// @Tags Public
// @Accept json
// @Produce json
// @Param uid path string true "Share uid"
// @Param payload body service.SetOverlayPreferencesRequest true "Preference payload"
// @Success 200 {object} response.Envelope
// @Router /share/{uid}/preferences [put]
func (h *PublicShareHandler) SetPreferences(c *gin.Context) {
	var req service.SetOverlayPreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preference payload"))
		return
	}
	h.withShare(c, func(share *models.SharedView) (*models.PersonalOverlay, error) {
		return h.overlay.SetPreferences(c.Request.Context(), share, sessionFromContext(c), req)
	}, http.StatusOK)
}

// withShare re-authorizes the uid then applies one overlay operation.
// Overlay mutations never consume a use.
func (h *PublicShareHandler) withShare(c *gin.Context, op func(*models.SharedView) (*models.PersonalOverlay, error), status int) {
	share, err := h.resolver.Authorize(c.Request.Context(), c.Param("uid"))
	if err != nil {
		response.Error(c, err)
		return
	}
	overlay, err := op(share)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, status, overlay, nil)
}

func (h *PublicShareHandler) recordOutcome(err error) {
	if h.metrics == nil {
		return
	}
	if err == nil {
		h.metrics.RecordShareAdmission("allow")
		return
	}
	h.metrics.RecordShareAdmission(strings.ToLower(appErrors.FromError(err).Code))
}
