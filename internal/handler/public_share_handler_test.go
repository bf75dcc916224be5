package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkboard-io/linkboard-api/internal/dto"
	internalmiddleware "github.com/linkboard-io/linkboard-api/internal/middleware"
	"github.com/linkboard-io/linkboard-api/internal/models"
	"github.com/linkboard-io/linkboard-api/internal/service"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
)

type mockResolver struct {
	shares      map[string]*models.SharedView
	resolutions map[string]*dto.ShareResolution
	denial      error
	clicks      []string
	lastVisitor service.Visitor
}

func (m *mockResolver) Resolve(ctx context.Context, uid string, visitor service.Visitor) (*dto.ShareResolution, error) {
	m.lastVisitor = visitor
	if m.denial != nil {
		return nil, m.denial
	}
	if res, ok := m.resolutions[uid]; ok {
		return res, nil
	}
	return nil, appErrors.ErrShareNotFound
}

func (m *mockResolver) Authorize(ctx context.Context, uid string) (*models.SharedView, error) {
	if m.denial != nil {
		return nil, m.denial
	}
	if share, ok := m.shares[uid]; ok {
		return share, nil
	}
	return nil, appErrors.ErrShareNotFound
}

func (m *mockResolver) TrackClick(ctx context.Context, uid, bookmarkID string) error {
	if m.denial != nil {
		return m.denial
	}
	if _, ok := m.shares[uid]; !ok {
		return appErrors.ErrShareNotFound
	}
	m.clicks = append(m.clicks, bookmarkID)
	return nil
}

type mockOverlayEditor struct {
	overlay *models.PersonalOverlay
	err     error
	calls   []string
}

func (m *mockOverlayEditor) result(op string) (*models.PersonalOverlay, error) {
	m.calls = append(m.calls, op)
	if m.err != nil {
		return nil, m.err
	}
	if m.overlay != nil {
		return m.overlay, nil
	}
	return &models.PersonalOverlay{SessionID: "sess-1", ViewMode: models.ViewModeGrid, SortPreference: models.SortDefault}, nil
}

func (m *mockOverlayEditor) AddBookmark(ctx context.Context, share *models.SharedView, sessionID string, req service.AddPersonalBookmarkRequest) (*models.PersonalOverlay, error) {
	return m.result("add_bookmark")
}

func (m *mockOverlayEditor) UpdateBookmark(ctx context.Context, share *models.SharedView, sessionID, bookmarkID string, req service.UpdatePersonalBookmarkRequest) (*models.PersonalOverlay, error) {
	return m.result("update_bookmark")
}

func (m *mockOverlayEditor) RemoveBookmark(ctx context.Context, share *models.SharedView, sessionID, bookmarkID string) (*models.PersonalOverlay, error) {
	return m.result("remove_bookmark")
}

func (m *mockOverlayEditor) AddGroup(ctx context.Context, share *models.SharedView, sessionID string, req service.AddPersonalGroupRequest) (*models.PersonalOverlay, error) {
	return m.result("add_group")
}

func (m *mockOverlayEditor) SetHidden(ctx context.Context, share *models.SharedView, sessionID, bookmarkID string, hidden bool) (*models.PersonalOverlay, error) {
	return m.result("set_hidden")
}

func (m *mockOverlayEditor) SetFavorite(ctx context.Context, share *models.SharedView, sessionID, bookmarkID string, favorite bool) (*models.PersonalOverlay, error) {
	return m.result("set_favorite")
}

func (m *mockOverlayEditor) SetCustomTag(ctx context.Context, share *models.SharedView, sessionID, bookmarkID string, req service.SetCustomTagRequest) (*models.PersonalOverlay, error) {
	return m.result("set_custom_tag")
}

func (m *mockOverlayEditor) SetPreferences(ctx context.Context, share *models.SharedView, sessionID string, req service.SetOverlayPreferencesRequest) (*models.PersonalOverlay, error) {
	return m.result("set_preferences")
}

func buildPublicShareRouter(resolver *mockResolver, overlay *mockOverlayEditor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewPublicShareHandler(resolver, overlay, nil)

	share := router.Group("/share/:uid")
	share.Use(internalmiddleware.ShareSession())
	{
		share.GET("", h.Resolve)
		share.POST("/click/:bookmarkId", h.TrackClick)
		share.POST("/bookmarks", h.AddBookmark)
		share.PUT("/bookmarks/:bookmarkId", h.UpdateBookmark)
		share.DELETE("/bookmarks/:bookmarkId", h.RemoveBookmark)
		share.POST("/groups", h.AddGroup)
		share.PUT("/bookmarks/:bookmarkId/hidden", h.SetHidden)
		share.PUT("/bookmarks/:bookmarkId/favorite", h.SetFavorite)
		share.PUT("/bookmarks/:bookmarkId/tag", h.SetCustomTag)
		share.PUT("/preferences", h.SetPreferences)
	}
	return router
}

func performShareRequest(router *gin.Engine, method, path, body string, session bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	if session {
		req.Header.Set(internalmiddleware.SessionHeader, "sess-1")
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func defaultResolver() *mockResolver {
	return &mockResolver{
		shares: map[string]*models.SharedView{
			"uid-1": {ID: "share-1", UID: "uid-1", Name: "Team Links"},
		},
		resolutions: map[string]*dto.ShareResolution{
			"uid-1": {
				Share: dto.ShareMeta{UID: "uid-1", Name: "Team Links"},
				Items: []dto.SharedItem{{ID: "bm-1", Title: "Grafana", URL: "https://grafana.example.com"}},
			},
		},
	}
}

func TestPublicShareResolve(t *testing.T) {
	router := buildPublicShareRouter(defaultResolver(), &mockOverlayEditor{})

	resp := performShareRequest(router, http.MethodGet, "/share/uid-1", "", true)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"items"`)
	assert.Contains(t, resp.Body.String(), `"Grafana"`)
}

func TestPublicShareResolveSessionFromQuery(t *testing.T) {
	resolver := defaultResolver()
	router := buildPublicShareRouter(resolver, &mockOverlayEditor{})

	resp := performShareRequest(router, http.MethodGet, "/share/uid-1?session=sess-q", "", false)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "sess-q", resolver.lastVisitor.SessionID)
}

func TestPublicShareResolveWithoutSession(t *testing.T) {
	resolver := defaultResolver()
	router := buildPublicShareRouter(resolver, &mockOverlayEditor{})

	resp := performShareRequest(router, http.MethodGet, "/share/uid-1", "", false)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, resolver.lastVisitor.SessionID)
	assert.Contains(t, resp.Body.String(), `"Grafana"`)
}

func TestPublicShareResolveNotFound(t *testing.T) {
	router := buildPublicShareRouter(defaultResolver(), &mockOverlayEditor{})

	resp := performShareRequest(router, http.MethodGet, "/share/uid-unknown", "", true)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "NOT_FOUND")
}

func TestPublicShareResolveDenials(t *testing.T) {
	cases := []struct {
		name   string
		denial error
		status int
		code   string
	}{
		{"expired", appErrors.ErrShareExpired, http.StatusGone, "EXPIRED"},
		{"exhausted", appErrors.ErrUsesExhausted, http.StatusTooManyRequests, "USES_EXHAUSTED"},
		{"temporary", appErrors.ErrTemporary, http.StatusServiceUnavailable, "TEMPORARY_UNAVAILABLE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := defaultResolver()
			resolver.denial = tc.denial
			router := buildPublicShareRouter(resolver, &mockOverlayEditor{})

			resp := performShareRequest(router, http.MethodGet, "/share/uid-1", "", true)
			require.Equal(t, tc.status, resp.Code)
			assert.Contains(t, resp.Body.String(), tc.code)
		})
	}
}

func TestPublicShareTrackClick(t *testing.T) {
	resolver := defaultResolver()
	router := buildPublicShareRouter(resolver, &mockOverlayEditor{})

	resp := performShareRequest(router, http.MethodPost, "/share/uid-1/click/bm-1", "", true)
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, []string{"bm-1"}, resolver.clicks)
}

func TestPublicShareAddBookmark(t *testing.T) {
	overlay := &mockOverlayEditor{}
	router := buildPublicShareRouter(defaultResolver(), overlay)

	resp := performShareRequest(router, http.MethodPost, "/share/uid-1/bookmarks",
		`{"title":"My Wiki","url":"https://wiki.example.com"}`, true)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, []string{"add_bookmark"}, overlay.calls)
}

func TestPublicShareAddBookmarkForbidden(t *testing.T) {
	overlay := &mockOverlayEditor{err: appErrors.ErrForbidden}
	router := buildPublicShareRouter(defaultResolver(), overlay)

	resp := performShareRequest(router, http.MethodPost, "/share/uid-1/bookmarks",
		`{"title":"My Wiki","url":"https://wiki.example.com"}`, true)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestPublicShareAddBookmarkBadJSON(t *testing.T) {
	overlay := &mockOverlayEditor{}
	router := buildPublicShareRouter(defaultResolver(), overlay)

	resp := performShareRequest(router, http.MethodPost, "/share/uid-1/bookmarks", `{not json`, true)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, overlay.calls)
}

func TestPublicShareMutationOnRevokedShare(t *testing.T) {
	resolver := defaultResolver()
	resolver.denial = appErrors.ErrShareExpired
	overlay := &mockOverlayEditor{}
	router := buildPublicShareRouter(resolver, overlay)

	resp := performShareRequest(router, http.MethodPut, "/share/uid-1/bookmarks/bm-1/hidden", `{"hidden":true}`, true)
	require.Equal(t, http.StatusGone, resp.Code)
	assert.Empty(t, overlay.calls)
}

func TestPublicShareSetHiddenRequiresFlag(t *testing.T) {
	overlay := &mockOverlayEditor{}
	router := buildPublicShareRouter(defaultResolver(), overlay)

	resp := performShareRequest(router, http.MethodPut, "/share/uid-1/bookmarks/bm-1/hidden", `{}`, true)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, overlay.calls)

	resp = performShareRequest(router, http.MethodPut, "/share/uid-1/bookmarks/bm-1/hidden", `{"hidden":false}`, true)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"set_hidden"}, overlay.calls)
}

func TestPublicShareSetPreferences(t *testing.T) {
	overlay := &mockOverlayEditor{}
	router := buildPublicShareRouter(defaultResolver(), overlay)

	resp := performShareRequest(router, http.MethodPut, "/share/uid-1/preferences",
		`{"view_mode":"list","sort_preference":"name_asc"}`, true)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"set_preferences"}, overlay.calls)
}

func TestPublicShareRemoveBookmark(t *testing.T) {
	overlay := &mockOverlayEditor{}
	router := buildPublicShareRouter(defaultResolver(), overlay)

	resp := performShareRequest(router, http.MethodDelete, "/share/uid-1/bookmarks/pb-1", "", true)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"remove_bookmark"}, overlay.calls)
}
