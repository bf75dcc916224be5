package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkboard-io/linkboard-api/internal/dto"
	"github.com/linkboard-io/linkboard-api/internal/models"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
	"github.com/linkboard-io/linkboard-api/pkg/jobs"
)

// JobTypeAccessEvent tags queued access-event writes.
const JobTypeAccessEvent = "share.access_event"

type sharedViewSource interface {
	FindByUID(ctx context.Context, uid string) (*models.SharedView, error)
}

type clickCounter interface {
	IncrementClicks(ctx context.Context, id string) error
}

type eventQueue interface {
	Enqueue(job jobs.Job) error
}

type accessEventSink interface {
	Create(ctx context.Context, event *models.ShareAccessEvent) error
}

// Visitor identifies an anonymous caller of the public share surface.
type Visitor struct {
	SessionID string
	IP        string
	UserAgent string
}

// ResolutionService drives the public share pipeline: look up a share
// by its uid, run the access policy, consume a use, select the scoped
// catalog, apply the visitor's overlay and project everything through
// the public whitelist. Denied requests stop before any content or
// overlay read and never record an access event.
type ResolutionService struct {
	shares  sharedViewSource
	clicks  clickCounter
	policy  *PolicyService
	content *ContentService
	overlay *OverlayService
	events  eventQueue
	logger  *zap.Logger
}

// NewResolutionService constructs a ResolutionService. The events
// queue may be nil, which disables access-event recording.
func NewResolutionService(
	shares sharedViewSource,
	clicks clickCounter,
	policy *PolicyService,
	content *ContentService,
	overlay *OverlayService,
	events eventQueue,
	logger *zap.Logger,
) *ResolutionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolutionService{
		shares:  shares,
		clicks:  clicks,
		policy:  policy,
		content: content,
		overlay: overlay,
		events:  events,
		logger:  logger,
	}
}

// Resolve admits a visitor to a share and returns the composed view.
// This is the only operation that consumes a use. The session id is
// optional here: a sessionless visitor gets the canonical view with an
// empty overlay, and only overlay mutations demand a session.
func (s *ResolutionService) Resolve(ctx context.Context, uid string, visitor Visitor) (*dto.ShareResolution, error) {
	share, err := s.lookup(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(share, s.policy.Now()); err != nil {
		return nil, err
	}
	if err := s.policy.Admit(ctx, share.ID); err != nil {
		return nil, err
	}
	share.CurrentUses++

	content, err := s.content.Select(ctx, share.Scope())
	if err != nil {
		return nil, err
	}
	overlay := emptyOverlay(share.ID, "")
	if strings.TrimSpace(visitor.SessionID) != "" {
		overlay, err = s.overlay.Get(ctx, share, visitor.SessionID)
		if err != nil {
			return nil, err
		}
	}

	s.recordAccess(share.ID, visitor)

	resolution := composeResolution(share, content, overlay)
	return resolution, nil
}

// Authorize re-runs the access policy for a follow-up request on an
// already admitted session, without consuming a use. Overlay mutations
// and click tracking go through here so a share that expires mid-visit
// stops accepting writes.
func (s *ResolutionService) Authorize(ctx context.Context, uid string) (*models.SharedView, error) {
	share, err := s.lookup(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Evaluate(share, s.policy.Now()); err != nil {
		return nil, err
	}
	return share, nil
}

// TrackClick bumps the canonical click counter for a bookmark reached
// through a share. Unconditional and separate from the usage ledger:
// clicking never consumes a use.
func (s *ResolutionService) TrackClick(ctx context.Context, uid, bookmarkID string) error {
	share, err := s.Authorize(ctx, uid)
	if err != nil {
		return err
	}
	content, err := s.content.Select(ctx, share.Scope())
	if err != nil {
		return err
	}
	if !contentContains(content, bookmarkID) {
		return appErrors.Clone(appErrors.ErrNotFound, "bookmark not found in this share")
	}
	if err := s.clicks.IncrementClicks(ctx, bookmarkID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record click")
	}
	return nil
}

func (s *ResolutionService) lookup(ctx context.Context, uid string) (*models.SharedView, error) {
	share, err := s.shares.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrShareNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load share")
	}
	return share, nil
}

func (s *ResolutionService) recordAccess(shareID string, visitor Visitor) {
	if s.events == nil {
		return
	}
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: JobTypeAccessEvent,
		Payload: &models.ShareAccessEvent{
			SharedViewID: shareID,
			SessionID:    visitor.SessionID,
			IP:           visitor.IP,
			UserAgent:    visitor.UserAgent,
			AccessedAt:   time.Now().UTC(),
		},
	}
	if err := s.events.Enqueue(job); err != nil {
		s.logger.Sugar().Warnw("failed to enqueue access event", "share_id", shareID, "error", err)
	}
}

// NewAccessEventHandler returns the queue handler that persists
// admitted-visit events.
func NewAccessEventHandler(events accessEventSink, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(*models.ShareAccessEvent)
		if !ok {
			logger.Sugar().Errorw("access event job has unexpected payload", "job_id", job.ID)
			return nil
		}
		return events.Create(ctx, event)
	}
}

func composeResolution(share *models.SharedView, content *ShareContent, overlay *models.PersonalOverlay) *dto.ShareResolution {
	type orderedItem struct {
		item      dto.SharedItem
		createdAt time.Time
		position  int
	}

	items := make([]orderedItem, 0, len(content.Bookmarks)+len(overlay.PersonalBookmarks))
	for _, b := range content.Bookmarks {
		if overlay.IsHidden(b.ID) {
			continue
		}
		items = append(items, orderedItem{
			item:      publicItem(&b, overlay),
			createdAt: b.CreatedAt,
			position:  len(items),
		})
	}
	for _, p := range overlay.PersonalBookmarks {
		items = append(items, orderedItem{
			item:      personalItem(p, overlay),
			createdAt: p.CreatedAt,
			position:  len(items),
		})
	}

	switch overlay.SortPreference {
	case models.SortNameAsc:
		sort.SliceStable(items, func(i, j int) bool { return items[i].item.Title < items[j].item.Title })
	case models.SortNameDesc:
		sort.SliceStable(items, func(i, j int) bool { return items[i].item.Title > items[j].item.Title })
	case models.SortNewest:
		sort.SliceStable(items, func(i, j int) bool { return items[i].createdAt.After(items[j].createdAt) })
	}

	flat := make([]dto.SharedItem, len(items))
	for i, it := range items {
		flat[i] = it.item
	}

	groups := make([]dto.SharedGroup, 0, len(content.Groups)+len(overlay.PersonalGroups))
	for _, g := range content.Groups {
		groups = append(groups, dto.SharedGroup{ID: g.ID, Name: g.Name, Icon: g.Icon})
	}
	for _, pg := range overlay.PersonalGroups {
		groups = append(groups, dto.SharedGroup{ID: pg.ID, Name: pg.Name, Icon: pg.Icon, Personal: true})
	}

	meta := dto.ShareMeta{
		UID:         share.UID,
		Name:        share.Name,
		AccessType:  share.AccessType,
		ExpiresAt:   share.ExpiresAt,
		Permissions: share.Permissions(),
		Theme:       share.Theme,
		Layout:      share.Layout,
		Title:       share.Title,
	}
	if share.CanSeeAnalytics {
		total := share.CurrentUses
		meta.TotalAccesses = &total
	}

	return &dto.ShareResolution{
		Share:  meta,
		Items:  flat,
		Groups: groups,
		Overlay: dto.OverlayState{
			ViewMode:       overlay.ViewMode,
			SortPreference: overlay.SortPreference,
		},
	}
}

// publicItem projects a canonical bookmark through the public field
// whitelist. Internal URLs, click counters and timestamps stay behind.
func publicItem(b *models.Bookmark, overlay *models.PersonalOverlay) dto.SharedItem {
	item := dto.SharedItem{
		ID:          b.ID,
		Title:       b.Title,
		URL:         b.URL,
		Description: b.Description,
		Icon:        b.Icon,
		GroupID:     b.GroupID,
		Environment: b.Environment,
		Favorite:    overlay.IsFavorite(b.ID),
	}
	if len(b.Tags) > 0 {
		item.Tags = append([]string(nil), b.Tags...)
	}
	if tag, ok := overlay.CustomTags[b.ID]; ok {
		item.CustomTag = &tag
	}
	return item
}

func personalItem(p models.PersonalBookmark, overlay *models.PersonalOverlay) dto.SharedItem {
	item := dto.SharedItem{
		ID:          p.ID,
		Title:       p.Title,
		URL:         p.URL,
		Description: p.Description,
		Icon:        p.Icon,
		GroupID:     p.GroupID,
		Personal:    true,
		Favorite:    overlay.IsFavorite(p.ID),
	}
	if len(p.Tags) > 0 {
		item.Tags = append([]string(nil), p.Tags...)
	}
	if tag, ok := overlay.CustomTags[p.ID]; ok {
		item.CustomTag = &tag
	}
	return item
}

func contentContains(content *ShareContent, bookmarkID string) bool {
	for _, b := range content.Bookmarks {
		if b.ID == bookmarkID {
			return true
		}
	}
	return false
}
