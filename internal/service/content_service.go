package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/linkboard-io/linkboard-api/internal/models"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
)

type scopedBookmarkStore interface {
	SelectScoped(ctx context.Context, scope models.ShareScope) ([]models.Bookmark, error)
}

type scopedGroupStore interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Group, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const catalogCachePrefix = "catalog:scope:"

// ShareContent is a resolved scope: the canonical bookmarks that
// belong to a share right now, plus their groups.
type ShareContent struct {
	Bookmarks []models.Bookmark `json:"bookmarks"`
	Groups    []models.Group    `json:"groups"`
}

// ContentService resolves the live canonical content of a share scope.
// Selection is always against the current store: shares are views, not
// snapshots, so a bookmark added to an included group appears in every
// existing share that covers it. The short-TTL cache is transparent;
// canonical CRUD invalidates it.
type ContentService struct {
	bookmarks scopedBookmarkStore
	groups    scopedGroupStore
	cache     catalogCache
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewContentService constructs a ContentService. cache may be nil.
func NewContentService(bookmarks scopedBookmarkStore, groups scopedGroupStore, cache catalogCache, cacheTTL time.Duration, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &ContentService{bookmarks: bookmarks, groups: groups, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Select resolves the content for the given scope.
func (s *ContentService) Select(ctx context.Context, scope models.ShareScope) (*ShareContent, error) {
	key := catalogCachePrefix + scopeKey(scope)
	if s.cache != nil {
		var cached ShareContent
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		}
	}

	bookmarks, err := s.bookmarks.SelectScoped(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve share content")
	}

	groupIDs := make([]string, 0)
	seen := make(map[string]struct{})
	for _, b := range bookmarks {
		if b.GroupID == nil {
			continue
		}
		if _, ok := seen[*b.GroupID]; ok {
			continue
		}
		seen[*b.GroupID] = struct{}{}
		groupIDs = append(groupIDs, *b.GroupID)
	}

	var groups []models.Group
	if len(groupIDs) > 0 {
		groups, err = s.groups.FindByIDs(ctx, groupIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load share groups")
		}
	}

	content := &ShareContent{Bookmarks: bookmarks, Groups: groups}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, content, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return content, nil
}

// Invalidate drops all cached scope resolutions. Canonical bookmark
// and group mutations call this so shares stay live.
func (s *ContentService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, catalogCachePrefix+"*"); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func scopeKey(scope models.ShareScope) string {
	h := sha256.New()
	for _, set := range [][]string{scope.IncludedGroups, scope.ExcludedGroups, scope.IncludedTags, scope.Environments} {
		h.Write([]byte(strings.Join(set, ",")))
		h.Write([]byte{'|'})
	}
	return hex.EncodeToString(h.Sum(nil))[:24]
}
