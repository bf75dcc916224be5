package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkboard-io/linkboard-api/internal/models"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
	"github.com/linkboard-io/linkboard-api/pkg/jobs"
)

type mockShareSource struct {
	shares map[string]models.SharedView
}

func (m *mockShareSource) FindByUID(ctx context.Context, uid string) (*models.SharedView, error) {
	if s, ok := m.shares[uid]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type mockClickCounter struct {
	clicked []string
}

func (m *mockClickCounter) IncrementClicks(ctx context.Context, id string) error {
	m.clicked = append(m.clicked, id)
	return nil
}

type mockJobQueue struct {
	jobs []jobs.Job
}

func (m *mockJobQueue) Enqueue(job jobs.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

type mockEventSink struct {
	events []models.ShareAccessEvent
}

func (m *mockEventSink) Create(ctx context.Context, event *models.ShareAccessEvent) error {
	m.events = append(m.events, *event)
	return nil
}

type resolutionFixture struct {
	svc       *ResolutionService
	shares    *mockShareSource
	bookmarks *mockScopedBookmarks
	clicks    *mockClickCounter
	ledger    *mockLedger
	overlays  *mockOverlayStore
	queue     *mockJobQueue
}

func newResolutionFixture(share models.SharedView, canonical []models.Bookmark) *resolutionFixture {
	shares := &mockShareSource{shares: map[string]models.SharedView{share.UID: share}}
	bookmarks := &mockScopedBookmarks{bookmarks: canonical}
	clicks := &mockClickCounter{}
	ledger := &mockLedger{admitted: true}
	overlays := &mockOverlayStore{}
	queue := &mockJobQueue{}

	policy := NewPolicyService(ledger, zap.NewNop(), PolicyConfig{AdmitRetryDelay: time.Millisecond})
	content := NewContentService(bookmarks, &mockScopedGroups{}, nil, time.Minute, zap.NewNop())
	overlay := NewOverlayService(overlays, nil, zap.NewNop())

	return &resolutionFixture{
		svc:       NewResolutionService(shares, clicks, policy, content, overlay, queue, zap.NewNop()),
		shares:    shares,
		bookmarks: bookmarks,
		clicks:    clicks,
		ledger:    ledger,
		overlays:  overlays,
		queue:     queue,
	}
}

func testVisitor() Visitor {
	return Visitor{SessionID: "sess-1", IP: "198.51.100.7", UserAgent: "curl/8"}
}

func TestResolveComposesPublicView(t *testing.T) {
	share := models.SharedView{
		ID:              "share-1",
		UID:             "uid-1",
		Name:            "Team Links",
		AccessType:      models.ShareAccessPublic,
		CurrentUses:     3,
		CanSeeAnalytics: true,
	}
	canonical := []models.Bookmark{
		{ID: "bm-1", Title: "Grafana", URL: "https://grafana.example.com", InternalURL: strPtr("http://10.0.0.5:3000"), ClickCount: 42, CreatedAt: time.Now()},
		{ID: "bm-2", Title: "Wiki", URL: "https://wiki.example.com", CreatedAt: time.Now()},
	}
	f := newResolutionFixture(share, canonical)

	res, err := f.svc.Resolve(context.Background(), "uid-1", testVisitor())
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "Grafana", res.Items[0].Title)
	assert.Equal(t, "https://grafana.example.com", res.Items[0].URL)
	assert.False(t, res.Items[0].Personal)

	assert.Equal(t, "uid-1", res.Share.UID)
	require.NotNil(t, res.Share.TotalAccesses)
	assert.Equal(t, 4, *res.Share.TotalAccesses)
	assert.Equal(t, 1, f.ledger.calls)

	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, JobTypeAccessEvent, f.queue.jobs[0].Type)
	event := f.queue.jobs[0].Payload.(*models.ShareAccessEvent)
	assert.Equal(t, "share-1", event.SharedViewID)
	assert.Equal(t, "sess-1", event.SessionID)
}

func TestResolveHidesAnalyticsWithoutPermission(t *testing.T) {
	share := models.SharedView{ID: "share-1", UID: "uid-1", CurrentUses: 3}
	f := newResolutionFixture(share, nil)

	res, err := f.svc.Resolve(context.Background(), "uid-1", testVisitor())
	require.NoError(t, err)
	assert.Nil(t, res.Share.TotalAccesses)
}

func TestResolveAppliesOverlay(t *testing.T) {
	share := models.SharedView{ID: "share-1", UID: "uid-1", CanAdd: true}
	canonical := []models.Bookmark{
		{ID: "bm-1", Title: "Grafana", URL: "https://grafana.example.com"},
		{ID: "bm-2", Title: "Wiki", URL: "https://wiki.example.com"},
	}
	f := newResolutionFixture(share, canonical)

	overlaySvc := NewOverlayService(f.overlays, nil, zap.NewNop())
	_, err := overlaySvc.SetHidden(context.Background(), &share, "sess-1", "bm-1", true)
	require.NoError(t, err)
	_, err = overlaySvc.SetFavorite(context.Background(), &share, "sess-1", "bm-2", true)
	require.NoError(t, err)
	tag := "mine"
	_, err = overlaySvc.SetCustomTag(context.Background(), &share, "sess-1", "bm-2", SetCustomTagRequest{Tag: &tag})
	require.NoError(t, err)
	_, err = overlaySvc.AddBookmark(context.Background(), &share, "sess-1", AddPersonalBookmarkRequest{
		Title: "My Notes",
		URL:   "https://notes.example.com",
	})
	require.NoError(t, err)

	res, err := f.svc.Resolve(context.Background(), "uid-1", testVisitor())
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "Wiki", res.Items[0].Title)
	assert.True(t, res.Items[0].Favorite)
	require.NotNil(t, res.Items[0].CustomTag)
	assert.Equal(t, "mine", *res.Items[0].CustomTag)
	assert.Equal(t, "My Notes", res.Items[1].Title)
	assert.True(t, res.Items[1].Personal)
}

func TestResolveSortsByName(t *testing.T) {
	share := models.SharedView{ID: "share-1", UID: "uid-1"}
	canonical := []models.Bookmark{
		{ID: "bm-1", Title: "Wiki", URL: "https://wiki.example.com"},
		{ID: "bm-2", Title: "Grafana", URL: "https://grafana.example.com"},
	}
	f := newResolutionFixture(share, canonical)

	overlaySvc := NewOverlayService(f.overlays, nil, zap.NewNop())
	sortPref := models.SortNameAsc
	_, err := overlaySvc.SetPreferences(context.Background(), &share, "sess-1", SetOverlayPreferencesRequest{SortPreference: &sortPref})
	require.NoError(t, err)

	res, err := f.svc.Resolve(context.Background(), "uid-1", testVisitor())
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Grafana", res.Items[0].Title)
	assert.Equal(t, "Wiki", res.Items[1].Title)
	assert.Equal(t, models.SortNameAsc, res.Overlay.SortPreference)
}

func TestResolveUnknownShare(t *testing.T) {
	f := newResolutionFixture(models.SharedView{ID: "share-1", UID: "uid-1"}, nil)

	_, err := f.svc.Resolve(context.Background(), "uid-other", testVisitor())
	assert.True(t, appErrors.Is(err, appErrors.ErrShareNotFound))
	assert.Empty(t, f.queue.jobs)
}

func TestResolveWithoutSession(t *testing.T) {
	f := newResolutionFixture(models.SharedView{ID: "share-1", UID: "uid-1", CurrentUses: 1}, []models.Bookmark{
		{ID: "bm-1", Title: "Grafana", URL: "https://grafana.example.com"},
	})

	res, err := f.svc.Resolve(context.Background(), "uid-1", Visitor{IP: "198.51.100.7"})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, models.ViewModeGrid, res.Overlay.ViewMode)
	assert.Equal(t, 1, f.ledger.calls)
	assert.Equal(t, 0, f.overlays.finds)
}

func TestResolveOverlappingScopeYieldsEmptyView(t *testing.T) {
	share := models.SharedView{
		ID:             "share-1",
		UID:            "uid-1",
		IncludedGroups: []string{"grp-1"},
		ExcludedGroups: []string{"grp-1"},
	}
	f := newResolutionFixture(share, nil)

	res, err := f.svc.Resolve(context.Background(), "uid-1", testVisitor())
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Empty(t, res.Groups)
}

func TestResolveDenyStopsBeforeContent(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	share := models.SharedView{ID: "share-1", UID: "uid-1", ExpiresAt: &expired}
	f := newResolutionFixture(share, []models.Bookmark{{ID: "bm-1", Title: "Grafana", URL: "https://grafana.example.com"}})

	_, err := f.svc.Resolve(context.Background(), "uid-1", testVisitor())
	assert.True(t, appErrors.Is(err, appErrors.ErrShareExpired))
	assert.Equal(t, 0, f.bookmarks.calls)
	assert.Equal(t, 0, f.ledger.calls)
	assert.Empty(t, f.queue.jobs)
}

func TestResolveLedgerRace(t *testing.T) {
	share := models.SharedView{ID: "share-1", UID: "uid-1", MaxUses: intPtr(5), CurrentUses: 4}
	f := newResolutionFixture(share, nil)
	f.ledger.admitted = false

	_, err := f.svc.Resolve(context.Background(), "uid-1", testVisitor())
	assert.True(t, appErrors.Is(err, appErrors.ErrUsesExhausted))
	assert.Equal(t, 0, f.bookmarks.calls)
	assert.Empty(t, f.queue.jobs)
}

// countingLedger mimics the conditional UPDATE: admission succeeds
// while capacity remains and linearizes under its own lock.
type countingLedger struct {
	mu        sync.Mutex
	remaining int
}

func (l *countingLedger) TryIncrementUsage(ctx context.Context, id string, now time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remaining <= 0 {
		return false, nil
	}
	l.remaining--
	return true, nil
}

type staticScopedBookmarks struct {
	bookmarks []models.Bookmark
}

func (s *staticScopedBookmarks) SelectScoped(ctx context.Context, scope models.ShareScope) ([]models.Bookmark, error) {
	return s.bookmarks, nil
}

type staticScopedGroups struct{}

func (s *staticScopedGroups) FindByIDs(ctx context.Context, ids []string) ([]models.Group, error) {
	return nil, nil
}

type lockedJobQueue struct {
	mu   sync.Mutex
	jobs []jobs.Job
}

func (q *lockedJobQueue) Enqueue(job jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func TestResolveConcurrentAdmissions(t *testing.T) {
	const visitors, maxUses = 16, 5

	shares := &mockShareSource{shares: map[string]models.SharedView{
		"uid-1": {ID: "share-1", UID: "uid-1", MaxUses: intPtr(maxUses)},
	}}
	ledger := &countingLedger{remaining: maxUses}
	queue := &lockedJobQueue{}

	policy := NewPolicyService(ledger, zap.NewNop(), PolicyConfig{AdmitRetryDelay: time.Millisecond})
	content := NewContentService(&staticScopedBookmarks{}, &staticScopedGroups{}, nil, time.Minute, zap.NewNop())
	overlay := NewOverlayService(&mockOverlayStore{}, nil, zap.NewNop())
	svc := NewResolutionService(shares, &mockClickCounter{}, policy, content, overlay, queue, zap.NewNop())

	var wg sync.WaitGroup
	results := make(chan error, visitors)
	for i := 0; i < visitors; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Resolve(context.Background(), "uid-1", Visitor{IP: "198.51.100.7"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	allowed, exhausted := 0, 0
	for err := range results {
		switch {
		case err == nil:
			allowed++
		case appErrors.Is(err, appErrors.ErrUsesExhausted):
			exhausted++
		default:
			t.Fatalf("unexpected resolve error: %v", err)
		}
	}
	assert.Equal(t, maxUses, allowed)
	assert.Equal(t, visitors-maxUses, exhausted)
	assert.Len(t, queue.jobs, maxUses)
}

func TestTrackClick(t *testing.T) {
	share := models.SharedView{ID: "share-1", UID: "uid-1"}
	f := newResolutionFixture(share, []models.Bookmark{{ID: "bm-1", Title: "Grafana", URL: "https://grafana.example.com"}})

	err := f.svc.TrackClick(context.Background(), "uid-1", "bm-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bm-1"}, f.clicks.clicked)
	// Clicking never consumes a use.
	assert.Equal(t, 0, f.ledger.calls)
}

func TestTrackClickOutsideScope(t *testing.T) {
	share := models.SharedView{ID: "share-1", UID: "uid-1"}
	f := newResolutionFixture(share, []models.Bookmark{{ID: "bm-1", Title: "Grafana", URL: "https://grafana.example.com"}})

	err := f.svc.TrackClick(context.Background(), "uid-1", "bm-other")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, f.clicks.clicked)
}

func TestTrackClickExpiredShare(t *testing.T) {
	expired := time.Now().Add(-time.Minute)
	share := models.SharedView{ID: "share-1", UID: "uid-1", ExpiresAt: &expired}
	f := newResolutionFixture(share, []models.Bookmark{{ID: "bm-1", Title: "Grafana", URL: "https://grafana.example.com"}})

	err := f.svc.TrackClick(context.Background(), "uid-1", "bm-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrShareExpired))
	assert.Empty(t, f.clicks.clicked)
}

func TestAccessEventHandlerPersists(t *testing.T) {
	sink := &mockEventSink{}
	handler := NewAccessEventHandler(sink, zap.NewNop())

	err := handler(context.Background(), jobs.Job{
		ID:   "job-1",
		Type: JobTypeAccessEvent,
		Payload: &models.ShareAccessEvent{
			SharedViewID: "share-1",
			SessionID:    "sess-1",
			AccessedAt:   time.Now(),
		},
	})
	require.NoError(t, err)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "share-1", sink.events[0].SharedViewID)

	// Malformed payloads are dropped, not retried.
	err = handler(context.Background(), jobs.Job{ID: "job-2", Type: JobTypeAccessEvent, Payload: "bogus"})
	assert.NoError(t, err)
	assert.Len(t, sink.events, 1)
}
