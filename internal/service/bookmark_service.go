package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/linkboard-io/linkboard-api/internal/models"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
)

type bookmarkStore interface {
	List(ctx context.Context, filter models.BookmarkFilter) ([]models.Bookmark, int, error)
	FindByID(ctx context.Context, id string) (*models.Bookmark, error)
	Create(ctx context.Context, bookmark *models.Bookmark) error
	Update(ctx context.Context, bookmark *models.Bookmark) error
	Delete(ctx context.Context, id string) error
}

// BookmarkRequest is the owner-facing payload for creating or editing
// a canonical bookmark.
type BookmarkRequest struct {
	GroupID     *string  `json:"group_id" validate:"omitempty,max=64"`
	Title       string   `json:"title" validate:"required,max=200"`
	URL         string   `json:"url" validate:"required,url,max=2000"`
	InternalURL *string  `json:"internal_url" validate:"omitempty,url,max=2000"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	Icon        *string  `json:"icon" validate:"omitempty,max=200"`
	Tags        []string `json:"tags" validate:"omitempty,dive,max=50"`
	Environment string   `json:"environment" validate:"omitempty,max=50"`
}

// BookmarkService owns canonical bookmark CRUD. Every write invalidates
// the scoped catalog cache so published shares pick up changes on the
// next resolution.
type BookmarkService struct {
	repo      bookmarkStore
	content   *ContentService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBookmarkService constructs a BookmarkService.
func NewBookmarkService(repo bookmarkStore, content *ContentService, validate *validator.Validate, logger *zap.Logger) *BookmarkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookmarkService{repo: repo, content: content, validator: validate, logger: logger}
}

// List returns bookmarks with pagination metadata.
func (s *BookmarkService) List(ctx context.Context, filter models.BookmarkFilter) ([]models.Bookmark, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	bookmarks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookmarks")
	}
	return bookmarks, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one bookmark by id.
func (s *BookmarkService) Get(ctx context.Context, id string) (*models.Bookmark, error) {
	bookmark, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "bookmark not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookmark")
	}
	return bookmark, nil
}

// Create adds a canonical bookmark.
func (s *BookmarkService) Create(ctx context.Context, req BookmarkRequest) (*models.Bookmark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bookmark payload")
	}
	bookmark := &models.Bookmark{
		GroupID:     req.GroupID,
		Title:       strings.TrimSpace(req.Title),
		URL:         strings.TrimSpace(req.URL),
		InternalURL: req.InternalURL,
		Description: req.Description,
		Icon:        req.Icon,
		Tags:        req.Tags,
		Environment: req.Environment,
	}
	if err := s.repo.Create(ctx, bookmark); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create bookmark")
	}
	s.content.Invalidate(ctx)
	return bookmark, nil
}

// Update edits a canonical bookmark.
func (s *BookmarkService) Update(ctx context.Context, id string, req BookmarkRequest) (*models.Bookmark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bookmark payload")
	}
	bookmark, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	bookmark.GroupID = req.GroupID
	bookmark.Title = strings.TrimSpace(req.Title)
	bookmark.URL = strings.TrimSpace(req.URL)
	bookmark.InternalURL = req.InternalURL
	bookmark.Description = req.Description
	bookmark.Icon = req.Icon
	bookmark.Tags = req.Tags
	bookmark.Environment = req.Environment

	if err := s.repo.Update(ctx, bookmark); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update bookmark")
	}
	s.content.Invalidate(ctx)
	return bookmark, nil
}

// Delete removes a canonical bookmark. Visitor overlays are left in
// place; a stale hidden or favorite id is simply ignored at merge time.
func (s *BookmarkService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete bookmark")
	}
	s.content.Invalidate(ctx)
	return nil
}
