package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkboard-io/linkboard-api/internal/models"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
)

type overlayStore interface {
	Find(ctx context.Context, sharedViewID, sessionID string) (*models.PersonalOverlay, error)
	Upsert(ctx context.Context, overlay *models.PersonalOverlay) error
}

// AddPersonalBookmarkRequest is a visitor-authored bookmark payload.
type AddPersonalBookmarkRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	URL         string   `json:"url" validate:"required,url,max=2000"`
	GroupID     *string  `json:"group_id" validate:"omitempty,max=64"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	Icon        *string  `json:"icon" validate:"omitempty,max=200"`
	Tags        []string `json:"tags" validate:"omitempty,dive,max=50"`
}

// UpdatePersonalBookmarkRequest edits a visitor-authored bookmark.
type UpdatePersonalBookmarkRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	URL         string   `json:"url" validate:"required,url,max=2000"`
	GroupID     *string  `json:"group_id" validate:"omitempty,max=64"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	Icon        *string  `json:"icon" validate:"omitempty,max=200"`
	Tags        []string `json:"tags" validate:"omitempty,dive,max=50"`
}

// AddPersonalGroupRequest is a visitor-authored group payload.
type AddPersonalGroupRequest struct {
	Name string  `json:"name" validate:"required,max=100"`
	Icon *string `json:"icon" validate:"omitempty,max=200"`
}

// SetHiddenRequest toggles suppression of a canonical bookmark.
type SetHiddenRequest struct {
	Hidden *bool `json:"hidden" validate:"required"`
}

// SetFavoriteRequest toggles the favorite annotation.
type SetFavoriteRequest struct {
	Favorite *bool `json:"favorite" validate:"required"`
}

// SetCustomTagRequest overrides the displayed tag for one bookmark.
// A nil tag clears the override.
type SetCustomTagRequest struct {
	Tag *string `json:"tag" validate:"omitempty,max=50"`
}

// SetOverlayPreferencesRequest updates display preferences.
type SetOverlayPreferencesRequest struct {
	ViewMode       *string `json:"view_mode" validate:"omitempty,oneof=grid list"`
	SortPreference *string `json:"sort_preference" validate:"omitempty,oneof=default name_asc name_desc newest"`
}

// OverlayService implements the visitor personalization layer. Every
// mutation is confined to the caller's own (share, session) row, so
// nothing here ever touches canonical data or another visitor's state.
// Permission flags gate only the personal-bookmark operations; hiding,
// favoriting, custom tags and display preferences are always allowed
// because they change nothing shared.
type OverlayService struct {
	repo      overlayStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOverlayService constructs an OverlayService.
func NewOverlayService(repo overlayStore, validate *validator.Validate, logger *zap.Logger) *OverlayService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverlayService{repo: repo, validator: validate, logger: logger}
}

// Get returns the visitor's overlay, or a zero-value overlay when the
// visitor has not personalized yet. The zero overlay is not persisted;
// a row appears only on the first mutation.
func (s *OverlayService) Get(ctx context.Context, share *models.SharedView, sessionID string) (*models.PersonalOverlay, error) {
	if err := checkSession(sessionID); err != nil {
		return nil, err
	}
	overlay, err := s.repo.Find(ctx, share.ID, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return emptyOverlay(share.ID, sessionID), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overlay")
	}
	return overlay, nil
}

// AddBookmark appends a visitor-authored bookmark. Requires can_add.
func (s *OverlayService) AddBookmark(ctx context.Context, share *models.SharedView, sessionID string, req AddPersonalBookmarkRequest) (*models.PersonalOverlay, error) {
	if !share.CanAdd {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "this share does not allow adding bookmarks")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bookmark payload")
	}
	return s.mutate(ctx, share, sessionID, func(overlay *models.PersonalOverlay) error {
		overlay.PersonalBookmarks = append(overlay.PersonalBookmarks, models.PersonalBookmark{
			ID:          uuid.NewString(),
			GroupID:     req.GroupID,
			Title:       strings.TrimSpace(req.Title),
			URL:         strings.TrimSpace(req.URL),
			Description: req.Description,
			Icon:        req.Icon,
			Tags:        req.Tags,
			CreatedAt:   time.Now().UTC(),
		})
		return nil
	})
}

// UpdateBookmark edits a visitor-authored bookmark. Requires can_edit.
func (s *OverlayService) UpdateBookmark(ctx context.Context, share *models.SharedView, sessionID, bookmarkID string, req UpdatePersonalBookmarkRequest) (*models.PersonalOverlay, error) {
	if !share.CanEdit {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "this share does not allow editing bookmarks")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bookmark payload")
	}
	return s.mutate(ctx, share, sessionID, func(overlay *models.PersonalOverlay) error {
		for i := range overlay.PersonalBookmarks {
			if overlay.PersonalBookmarks[i].ID != bookmarkID {
				continue
			}
			overlay.PersonalBookmarks[i].Title = strings.TrimSpace(req.Title)
			overlay.PersonalBookmarks[i].URL = strings.TrimSpace(req.URL)
			overlay.PersonalBookmarks[i].GroupID = req.GroupID
			overlay.PersonalBookmarks[i].Description = req.Description
			overlay.PersonalBookmarks[i].Icon = req.Icon
			overlay.PersonalBookmarks[i].Tags = req.Tags
			return nil
		}
		return appErrors.Clone(appErrors.ErrNotFound, "personal bookmark not found")
	})
}

// RemoveBookmark deletes a visitor-authored bookmark. Requires can_delete.
func (s *OverlayService) RemoveBookmark(ctx context.Context, share *models.SharedView, sessionID, bookmarkID string) (*models.PersonalOverlay, error) {
	if !share.CanDelete {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "this share does not allow deleting bookmarks")
	}
	return s.mutate(ctx, share, sessionID, func(overlay *models.PersonalOverlay) error {
		for i := range overlay.PersonalBookmarks {
			if overlay.PersonalBookmarks[i].ID == bookmarkID {
				overlay.PersonalBookmarks = append(overlay.PersonalBookmarks[:i], overlay.PersonalBookmarks[i+1:]...)
				return nil
			}
		}
		return appErrors.Clone(appErrors.ErrNotFound, "personal bookmark not found")
	})
}

// AddGroup appends a visitor-authored group. Requires can_create_groups.
func (s *OverlayService) AddGroup(ctx context.Context, share *models.SharedView, sessionID string, req AddPersonalGroupRequest) (*models.PersonalOverlay, error) {
	if !share.CanCreateGroups {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "this share does not allow creating groups")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	return s.mutate(ctx, share, sessionID, func(overlay *models.PersonalOverlay) error {
		overlay.PersonalGroups = append(overlay.PersonalGroups, models.PersonalGroup{
			ID:        uuid.NewString(),
			Name:      strings.TrimSpace(req.Name),
			Icon:      req.Icon,
			CreatedAt: time.Now().UTC(),
		})
		return nil
	})
}

// SetHidden suppresses or restores a canonical bookmark in this
// visitor's view. Always allowed.
func (s *OverlayService) SetHidden(ctx context.Context, share *models.SharedView, sessionID, bookmarkID string, hidden bool) (*models.PersonalOverlay, error) {
	return s.mutate(ctx, share, sessionID, func(overlay *models.PersonalOverlay) error {
		overlay.HiddenBookmarks = toggleMember(overlay.HiddenBookmarks, bookmarkID, hidden)
		return nil
	})
}

// SetFavorite marks or unmarks a bookmark favorite. Always allowed.
func (s *OverlayService) SetFavorite(ctx context.Context, share *models.SharedView, sessionID, bookmarkID string, favorite bool) (*models.PersonalOverlay, error) {
	return s.mutate(ctx, share, sessionID, func(overlay *models.PersonalOverlay) error {
		overlay.FavoriteBookmarks = toggleMember(overlay.FavoriteBookmarks, bookmarkID, favorite)
		return nil
	})
}

// SetCustomTag overrides the displayed tag for one bookmark in this
// visitor's view. Always allowed; never touches canonical tags.
func (s *OverlayService) SetCustomTag(ctx context.Context, share *models.SharedView, sessionID, bookmarkID string, req SetCustomTagRequest) (*models.PersonalOverlay, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tag payload")
	}
	return s.mutate(ctx, share, sessionID, func(overlay *models.PersonalOverlay) error {
		if overlay.CustomTags == nil {
			overlay.CustomTags = models.CustomTagMap{}
		}
		if req.Tag == nil || strings.TrimSpace(*req.Tag) == "" {
			delete(overlay.CustomTags, bookmarkID)
			return nil
		}
		overlay.CustomTags[bookmarkID] = strings.TrimSpace(*req.Tag)
		return nil
	})
}

// SetPreferences updates the visitor's display preferences. Always allowed.
func (s *OverlayService) SetPreferences(ctx context.Context, share *models.SharedView, sessionID string, req SetOverlayPreferencesRequest) (*models.PersonalOverlay, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preference payload")
	}
	return s.mutate(ctx, share, sessionID, func(overlay *models.PersonalOverlay) error {
		if req.ViewMode != nil {
			overlay.ViewMode = *req.ViewMode
		}
		if req.SortPreference != nil {
			overlay.SortPreference = *req.SortPreference
		}
		return nil
	})
}

func (s *OverlayService) mutate(ctx context.Context, share *models.SharedView, sessionID string, apply func(*models.PersonalOverlay) error) (*models.PersonalOverlay, error) {
	overlay, err := s.Get(ctx, share, sessionID)
	if err != nil {
		return nil, err
	}
	if err := apply(overlay); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, overlay); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save overlay")
	}
	return overlay, nil
}

func checkSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return appErrors.ErrSessionMissing
	}
	if len(sessionID) > 128 {
		return appErrors.Clone(appErrors.ErrValidation, "session id too long")
	}
	return nil
}

func emptyOverlay(sharedViewID, sessionID string) *models.PersonalOverlay {
	return &models.PersonalOverlay{
		SharedViewID:      sharedViewID,
		SessionID:         sessionID,
		PersonalBookmarks: models.PersonalBookmarkList{},
		PersonalGroups:    models.PersonalGroupList{},
		CustomTags:        models.CustomTagMap{},
		ViewMode:          models.ViewModeGrid,
		SortPreference:    models.SortDefault,
	}
}

func toggleMember(set []string, value string, present bool) []string {
	idx := -1
	for i, v := range set {
		if v == value {
			idx = i
			break
		}
	}
	if present {
		if idx >= 0 {
			return set
		}
		return append(set, value)
	}
	if idx < 0 {
		return set
	}
	return append(set[:idx], set[idx+1:]...)
}
