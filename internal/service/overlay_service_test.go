package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkboard-io/linkboard-api/internal/models"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
)

type mockOverlayStore struct {
	overlays map[string]models.PersonalOverlay
	upserts  int
	finds    int
}

func overlayKey(sharedViewID, sessionID string) string {
	return sharedViewID + "|" + sessionID
}

func (m *mockOverlayStore) Find(ctx context.Context, sharedViewID, sessionID string) (*models.PersonalOverlay, error) {
	m.finds++
	if o, ok := m.overlays[overlayKey(sharedViewID, sessionID)]; ok {
		return &o, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockOverlayStore) Upsert(ctx context.Context, overlay *models.PersonalOverlay) error {
	if m.overlays == nil {
		m.overlays = make(map[string]models.PersonalOverlay)
	}
	m.upserts++
	m.overlays[overlayKey(overlay.SharedViewID, overlay.SessionID)] = *overlay
	return nil
}

func permissiveShare() *models.SharedView {
	return &models.SharedView{
		ID:              "share-1",
		UID:             "uid-1",
		Name:            "Team Links",
		CanAdd:          true,
		CanEdit:         true,
		CanDelete:       true,
		CanCreateGroups: true,
	}
}

func TestOverlayGetReturnsEmptyWithoutPersisting(t *testing.T) {
	store := &mockOverlayStore{}
	svc := NewOverlayService(store, nil, zap.NewNop())

	overlay, err := svc.Get(context.Background(), permissiveShare(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, models.ViewModeGrid, overlay.ViewMode)
	assert.Equal(t, models.SortDefault, overlay.SortPreference)
	assert.Empty(t, overlay.PersonalBookmarks)
	assert.Equal(t, 0, store.upserts)
	assert.Empty(t, store.overlays)
}

func TestOverlayRequiresSession(t *testing.T) {
	svc := NewOverlayService(&mockOverlayStore{}, nil, zap.NewNop())

	_, err := svc.Get(context.Background(), permissiveShare(), "")
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionMissing))

	_, err = svc.Get(context.Background(), permissiveShare(), "  ")
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionMissing))
}

func TestOverlayAddBookmark(t *testing.T) {
	store := &mockOverlayStore{}
	svc := NewOverlayService(store, nil, zap.NewNop())

	overlay, err := svc.AddBookmark(context.Background(), permissiveShare(), "sess-1", AddPersonalBookmarkRequest{
		Title: "My Wiki",
		URL:   "https://wiki.example.com",
	})
	require.NoError(t, err)
	require.Len(t, overlay.PersonalBookmarks, 1)
	assert.NotEmpty(t, overlay.PersonalBookmarks[0].ID)
	assert.Equal(t, "My Wiki", overlay.PersonalBookmarks[0].Title)
	assert.Equal(t, 1, store.upserts)
}

func TestOverlayAddBookmarkRequiresPermission(t *testing.T) {
	share := permissiveShare()
	share.CanAdd = false
	store := &mockOverlayStore{}
	svc := NewOverlayService(store, nil, zap.NewNop())

	_, err := svc.AddBookmark(context.Background(), share, "sess-1", AddPersonalBookmarkRequest{
		Title: "My Wiki",
		URL:   "https://wiki.example.com",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Equal(t, 0, store.upserts)
}

func TestOverlayAddBookmarkValidation(t *testing.T) {
	svc := NewOverlayService(&mockOverlayStore{}, nil, zap.NewNop())

	_, err := svc.AddBookmark(context.Background(), permissiveShare(), "sess-1", AddPersonalBookmarkRequest{
		Title: "No URL",
		URL:   "not a url",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestOverlayUpdateBookmark(t *testing.T) {
	store := &mockOverlayStore{}
	svc := NewOverlayService(store, nil, zap.NewNop())

	overlay, err := svc.AddBookmark(context.Background(), permissiveShare(), "sess-1", AddPersonalBookmarkRequest{
		Title: "My Wiki",
		URL:   "https://wiki.example.com",
	})
	require.NoError(t, err)
	id := overlay.PersonalBookmarks[0].ID

	overlay, err = svc.UpdateBookmark(context.Background(), permissiveShare(), "sess-1", id, UpdatePersonalBookmarkRequest{
		Title: "Renamed",
		URL:   "https://wiki.example.com/home",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", overlay.PersonalBookmarks[0].Title)

	_, err = svc.UpdateBookmark(context.Background(), permissiveShare(), "sess-1", "missing", UpdatePersonalBookmarkRequest{
		Title: "X",
		URL:   "https://x.example.com",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestOverlayRemoveBookmark(t *testing.T) {
	store := &mockOverlayStore{}
	svc := NewOverlayService(store, nil, zap.NewNop())

	overlay, err := svc.AddBookmark(context.Background(), permissiveShare(), "sess-1", AddPersonalBookmarkRequest{
		Title: "My Wiki",
		URL:   "https://wiki.example.com",
	})
	require.NoError(t, err)
	id := overlay.PersonalBookmarks[0].ID

	overlay, err = svc.RemoveBookmark(context.Background(), permissiveShare(), "sess-1", id)
	require.NoError(t, err)
	assert.Empty(t, overlay.PersonalBookmarks)

	share := permissiveShare()
	share.CanDelete = false
	_, err = svc.RemoveBookmark(context.Background(), share, "sess-1", id)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestOverlayAddGroup(t *testing.T) {
	store := &mockOverlayStore{}
	svc := NewOverlayService(store, nil, zap.NewNop())

	overlay, err := svc.AddGroup(context.Background(), permissiveShare(), "sess-1", AddPersonalGroupRequest{Name: "Mine"})
	require.NoError(t, err)
	require.Len(t, overlay.PersonalGroups, 1)
	assert.Equal(t, "Mine", overlay.PersonalGroups[0].Name)

	share := permissiveShare()
	share.CanCreateGroups = false
	_, err = svc.AddGroup(context.Background(), share, "sess-1", AddPersonalGroupRequest{Name: "Nope"})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestOverlaySetHiddenToggle(t *testing.T) {
	share := permissiveShare()
	share.CanAdd = false
	share.CanEdit = false
	share.CanDelete = false
	share.CanCreateGroups = false
	store := &mockOverlayStore{}
	svc := NewOverlayService(store, nil, zap.NewNop())

	// Hiding needs no permission flag.
	overlay, err := svc.SetHidden(context.Background(), share, "sess-1", "bm-1", true)
	require.NoError(t, err)
	assert.True(t, overlay.IsHidden("bm-1"))

	overlay, err = svc.SetHidden(context.Background(), share, "sess-1", "bm-1", true)
	require.NoError(t, err)
	assert.Len(t, overlay.HiddenBookmarks, 1)

	overlay, err = svc.SetHidden(context.Background(), share, "sess-1", "bm-1", false)
	require.NoError(t, err)
	assert.False(t, overlay.IsHidden("bm-1"))
}

func TestOverlaySetFavorite(t *testing.T) {
	store := &mockOverlayStore{}
	svc := NewOverlayService(store, nil, zap.NewNop())

	overlay, err := svc.SetFavorite(context.Background(), permissiveShare(), "sess-1", "bm-1", true)
	require.NoError(t, err)
	assert.True(t, overlay.IsFavorite("bm-1"))

	overlay, err = svc.SetFavorite(context.Background(), permissiveShare(), "sess-1", "bm-1", false)
	require.NoError(t, err)
	assert.False(t, overlay.IsFavorite("bm-1"))
}

func TestOverlaySetCustomTag(t *testing.T) {
	store := &mockOverlayStore{}
	svc := NewOverlayService(store, nil, zap.NewNop())

	tag := " mine "
	overlay, err := svc.SetCustomTag(context.Background(), permissiveShare(), "sess-1", "bm-1", SetCustomTagRequest{Tag: &tag})
	require.NoError(t, err)
	assert.Equal(t, "mine", overlay.CustomTags["bm-1"])

	overlay, err = svc.SetCustomTag(context.Background(), permissiveShare(), "sess-1", "bm-1", SetCustomTagRequest{})
	require.NoError(t, err)
	_, ok := overlay.CustomTags["bm-1"]
	assert.False(t, ok)
}

func TestOverlaySetPreferences(t *testing.T) {
	store := &mockOverlayStore{}
	svc := NewOverlayService(store, nil, zap.NewNop())

	mode := models.ViewModeList
	sortPref := models.SortNameAsc
	overlay, err := svc.SetPreferences(context.Background(), permissiveShare(), "sess-1", SetOverlayPreferencesRequest{
		ViewMode:       &mode,
		SortPreference: &sortPref,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ViewModeList, overlay.ViewMode)
	assert.Equal(t, models.SortNameAsc, overlay.SortPreference)

	bad := "mosaic"
	_, err = svc.SetPreferences(context.Background(), permissiveShare(), "sess-1", SetOverlayPreferencesRequest{ViewMode: &bad})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestOverlaySessionIsolation(t *testing.T) {
	store := &mockOverlayStore{}
	svc := NewOverlayService(store, nil, zap.NewNop())

	_, err := svc.SetHidden(context.Background(), permissiveShare(), "sess-1", "bm-1", true)
	require.NoError(t, err)

	other, err := svc.Get(context.Background(), permissiveShare(), "sess-2")
	require.NoError(t, err)
	assert.False(t, other.IsHidden("bm-1"))
}
