package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/linkboard-io/linkboard-api/internal/models"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
)

const (
	shareUIDDefaultBytes = 16
	shareUIDMaxAttempts  = 5
)

type shareStore interface {
	List(ctx context.Context, filter models.ShareFilter) ([]models.SharedView, int, error)
	FindByID(ctx context.Context, id string) (*models.SharedView, error)
	Create(ctx context.Context, share *models.SharedView) error
	Update(ctx context.Context, share *models.SharedView) error
	Delete(ctx context.Context, id string) error
	UIDExists(ctx context.Context, uid string) (bool, error)
}

// CreateShareRequest is the owner-facing payload for publishing a share.
type CreateShareRequest struct {
	Name       string     `json:"name" validate:"required,max=100"`
	AccessType string     `json:"access_type" validate:"required,oneof=public restricted expiring"`
	ExpiresAt  *time.Time `json:"expires_at"`
	MaxUses    *int       `json:"max_uses" validate:"omitempty,min=1"`

	IncludedGroups []string `json:"included_groups"`
	ExcludedGroups []string `json:"excluded_groups"`
	IncludedTags   []string `json:"included_tags"`
	Environments   []string `json:"environments"`

	CanAdd          bool `json:"can_add"`
	CanEdit         bool `json:"can_edit"`
	CanDelete       bool `json:"can_delete"`
	CanCreateGroups bool `json:"can_create_groups"`
	CanSeeAnalytics bool `json:"can_see_analytics"`

	Theme  *string `json:"theme" validate:"omitempty,max=50"`
	Layout *string `json:"layout" validate:"omitempty,max=50"`
	Title  *string `json:"title" validate:"omitempty,max=200"`
}

// UpdateShareRequest mirrors CreateShareRequest for edits. The uid and
// the usage counter are never client-writable.
type UpdateShareRequest struct {
	Name       string     `json:"name" validate:"required,max=100"`
	AccessType string     `json:"access_type" validate:"required,oneof=public restricted expiring"`
	ExpiresAt  *time.Time `json:"expires_at"`
	MaxUses    *int       `json:"max_uses" validate:"omitempty,min=1"`

	IncludedGroups []string `json:"included_groups"`
	ExcludedGroups []string `json:"excluded_groups"`
	IncludedTags   []string `json:"included_tags"`
	Environments   []string `json:"environments"`

	CanAdd          bool `json:"can_add"`
	CanEdit         bool `json:"can_edit"`
	CanDelete       bool `json:"can_delete"`
	CanCreateGroups bool `json:"can_create_groups"`
	CanSeeAnalytics bool `json:"can_see_analytics"`

	Theme  *string `json:"theme" validate:"omitempty,max=50"`
	Layout *string `json:"layout" validate:"omitempty,max=50"`
	Title  *string `json:"title" validate:"omitempty,max=200"`
}

// ShareService owns the authenticated share admin surface: publishing,
// editing and revoking shares. Revoking a share cascades to its
// overlays and access events at the storage layer.
type ShareService struct {
	repo      shareStore
	validator *validator.Validate
	uidBytes  int
	logger    *zap.Logger
}

// NewShareService constructs a ShareService. uidBytes controls the
// entropy of minted share uids; values below the default are bumped up
// so uids never get shorter than 22 characters.
func NewShareService(repo shareStore, validate *validator.Validate, uidBytes int, logger *zap.Logger) *ShareService {
	if validate == nil {
		validate = validator.New()
	}
	if uidBytes < shareUIDDefaultBytes {
		uidBytes = shareUIDDefaultBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShareService{repo: repo, validator: validate, uidBytes: uidBytes, logger: logger}
}

// List returns shares with pagination metadata.
func (s *ShareService) List(ctx context.Context, filter models.ShareFilter) ([]models.SharedView, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	shares, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list shares")
	}
	return shares, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one share by id.
func (s *ShareService) Get(ctx context.Context, id string) (*models.SharedView, error) {
	share, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrShareNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load share")
	}
	return share, nil
}

// Create publishes a new share and mints its public uid.
func (s *ShareService) Create(ctx context.Context, req CreateShareRequest, createdBy string) (*models.SharedView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid share payload")
	}
	scope := models.ShareScope{
		IncludedGroups: req.IncludedGroups,
		ExcludedGroups: req.ExcludedGroups,
		IncludedTags:   req.IncludedTags,
		Environments:   req.Environments,
	}
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expires_at must be in the future")
	}

	uid, err := s.generateUID(ctx)
	if err != nil {
		return nil, err
	}

	share := &models.SharedView{
		UID:             uid,
		Name:            req.Name,
		AccessType:      models.ShareAccessType(req.AccessType),
		ExpiresAt:       req.ExpiresAt,
		MaxUses:         req.MaxUses,
		IncludedGroups:  req.IncludedGroups,
		ExcludedGroups:  req.ExcludedGroups,
		IncludedTags:    req.IncludedTags,
		Environments:    req.Environments,
		CanAdd:          req.CanAdd,
		CanEdit:         req.CanEdit,
		CanDelete:       req.CanDelete,
		CanCreateGroups: req.CanCreateGroups,
		CanSeeAnalytics: req.CanSeeAnalytics,
		Theme:           req.Theme,
		Layout:          req.Layout,
		Title:           req.Title,
		CreatedBy:       createdBy,
	}
	if err := s.repo.Create(ctx, share); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create share")
	}
	s.logger.Sugar().Infow("share published", "share_id", share.ID, "uid", share.UID, "access_type", share.AccessType)
	return share, nil
}

// Update edits an existing share. Tightening expires_at or max_uses
// takes effect on the next visitor request; already admitted sessions
// are not revisited.
func (s *ShareService) Update(ctx context.Context, id string, req UpdateShareRequest) (*models.SharedView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid share payload")
	}
	scope := models.ShareScope{
		IncludedGroups: req.IncludedGroups,
		ExcludedGroups: req.ExcludedGroups,
		IncludedTags:   req.IncludedTags,
		Environments:   req.Environments,
	}
	if err := validateScope(scope); err != nil {
		return nil, err
	}

	share, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	share.Name = req.Name
	share.AccessType = models.ShareAccessType(req.AccessType)
	share.ExpiresAt = req.ExpiresAt
	share.MaxUses = req.MaxUses
	share.IncludedGroups = req.IncludedGroups
	share.ExcludedGroups = req.ExcludedGroups
	share.IncludedTags = req.IncludedTags
	share.Environments = req.Environments
	share.CanAdd = req.CanAdd
	share.CanEdit = req.CanEdit
	share.CanDelete = req.CanDelete
	share.CanCreateGroups = req.CanCreateGroups
	share.CanSeeAnalytics = req.CanSeeAnalytics
	share.Theme = req.Theme
	share.Layout = req.Layout
	share.Title = req.Title

	if err := s.repo.Update(ctx, share); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update share")
	}
	return share, nil
}

// Delete revokes a share. Its uid stops resolving immediately.
func (s *ShareService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete share")
	}
	s.logger.Sugar().Infow("share revoked", "share_id", id)
	return nil
}

// generateUID mints a url-safe identifier from the configured number
// of random bytes and retries on the unlikely collision.
func (s *ShareService) generateUID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < shareUIDMaxAttempts; attempt++ {
		buf := make([]byte, s.uidBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate share uid")
		}
		uid := base64.RawURLEncoding.EncodeToString(buf)
		exists, err := s.repo.UIDExists(ctx, uid)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check share uid")
		}
		if !exists {
			return uid, nil
		}
	}
	return "", appErrors.Wrap(fmt.Errorf("uid collision after %d attempts", shareUIDMaxAttempts), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate share uid")
}

// validateScope rejects malformed scope rules before they reach
// storage. An empty scope is valid and selects the whole catalog. A
// group listed as both included and excluded is legal: exclusion wins
// at selection time, which can leave the share empty.
func validateScope(scope models.ShareScope) error {
	included := make(map[string]struct{}, len(scope.IncludedGroups))
	for _, id := range scope.IncludedGroups {
		if id == "" {
			return appErrors.Clone(appErrors.ErrInvalidScope, "included group id cannot be empty")
		}
		if _, dup := included[id]; dup {
			return appErrors.Clone(appErrors.ErrInvalidScope, "duplicate included group id")
		}
		included[id] = struct{}{}
	}
	for _, id := range scope.ExcludedGroups {
		if id == "" {
			return appErrors.Clone(appErrors.ErrInvalidScope, "excluded group id cannot be empty")
		}
	}
	for _, tag := range scope.IncludedTags {
		if tag == "" {
			return appErrors.Clone(appErrors.ErrInvalidScope, "included tag cannot be empty")
		}
	}
	for _, env := range scope.Environments {
		if env == "" {
			return appErrors.Clone(appErrors.ErrInvalidScope, "environment cannot be empty")
		}
	}
	return nil
}
