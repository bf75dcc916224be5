package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/linkboard-io/linkboard-api/internal/models"
	"github.com/linkboard-io/linkboard-api/internal/service"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
	"github.com/linkboard-io/linkboard-api/pkg/response"
)

type bookmarkService interface {
	List(ctx context.Context, filter models.BookmarkFilter) ([]models.Bookmark, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Bookmark, error)
	Create(ctx context.Context, req service.BookmarkRequest) (*models.Bookmark, error)
	Update(ctx context.Context, id string, req service.BookmarkRequest) (*models.Bookmark, error)
	Delete(ctx context.Context, id string) error
}

// BookmarkHandler exposes canonical bookmark endpoints on the owner
// surface. Responses here include internal URLs and click counters;
// they never pass through the public whitelist because this surface is
// behind auth.
type BookmarkHandler struct {
	service bookmarkService
}

// NewBookmarkHandler builds a new handler.
func NewBookmarkHandler(service bookmarkService) *BookmarkHandler {
	return &BookmarkHandler{service: service}
}

// List godoc
// @Summary List bookmarks
// @Tags Bookmarks
// @Produce json
// @Param search query string false "Title search"
// @Param group_id query string false "Filter by group"
// @Param environment query string false "Filter by environment"
// @Param tag query string false "Filter by tag"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /bookmarks [get]
func (h *BookmarkHandler) List(c *gin.Context) {
	filter := models.BookmarkFilter{
		Search:      c.Query("search"),
		GroupID:     c.Query("group_id"),
		Environment: c.Query("environment"),
		Tag:         c.Query("tag"),
		Page:        queryInt(c, "page", 1),
		PageSize:    queryInt(c, "page_size", 20),
		SortBy:      c.Query("sort_by"),
		SortOrder:   c.Query("sort_order"),
	}
	bookmarks, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookmarks, pagination)
}

// Get godoc
// @Summary Get a bookmark
// @Tags Bookmarks
// @Produce json
// @Param id path string true "Bookmark id"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /bookmarks/{id} [get]
func (h *BookmarkHandler) Get(c *gin.Context) {
	bookmark, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookmark, nil)
}

// Create godoc
// @Summary Create a bookmark
// @Tags Bookmarks
// @Accept json
// @Produce json
// @Param payload body service.BookmarkRequest true "Bookmark payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /bookmarks [post]
func (h *BookmarkHandler) Create(c *gin.Context) {
	var req service.BookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bookmark payload"))
		return
	}
	bookmark, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bookmark)
}

// Update godoc
// @Summary Update a bookmark
// @Tags Bookmarks
// @Accept json
// @Produce json
// @Param id path string true "Bookmark id"
// @Param payload body service.BookmarkRequest true "Bookmark payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /bookmarks/{id} [put]
func (h *BookmarkHandler) Update(c *gin.Context) {
	var req service.BookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bookmark payload"))
		return
	}
	bookmark, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookmark, nil)
}

// Delete godoc
// @Summary Delete a bookmark
// @Tags Bookmarks
// @Param id path string true "Bookmark id"
// @Success 204
// @Security BearerAuth
// @Router /bookmarks/{id} [delete]
func (h *BookmarkHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
