package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkboard-io/linkboard-api/internal/models"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
)

type mockShareStore struct {
	shares  map[string]models.SharedView
	taken   map[string]bool
	created *models.SharedView
	updated *models.SharedView
	deleted []string
}

func (m *mockShareStore) List(ctx context.Context, filter models.ShareFilter) ([]models.SharedView, int, error) {
	var list []models.SharedView
	for _, s := range m.shares {
		list = append(list, s)
	}
	return list, len(list), nil
}

func (m *mockShareStore) FindByID(ctx context.Context, id string) (*models.SharedView, error) {
	if s, ok := m.shares[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockShareStore) Create(ctx context.Context, share *models.SharedView) error {
	if m.shares == nil {
		m.shares = make(map[string]models.SharedView)
	}
	if share.ID == "" {
		share.ID = "new-share"
	}
	m.shares[share.ID] = *share
	m.created = share
	return nil
}

func (m *mockShareStore) Update(ctx context.Context, share *models.SharedView) error {
	m.shares[share.ID] = *share
	m.updated = share
	return nil
}

func (m *mockShareStore) Delete(ctx context.Context, id string) error {
	delete(m.shares, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockShareStore) UIDExists(ctx context.Context, uid string) (bool, error) {
	return m.taken[uid], nil
}

func TestShareServiceCreate(t *testing.T) {
	store := &mockShareStore{}
	svc := NewShareService(store, nil, 0, zap.NewNop())

	share, err := svc.Create(context.Background(), CreateShareRequest{
		Name:       "Team Links",
		AccessType: "public",
		CanAdd:     true,
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", share.CreatedBy)
	assert.True(t, share.CanAdd)
	assert.Zero(t, share.CurrentUses)

	// 16 random bytes encode to 22 url-safe characters.
	assert.Len(t, share.UID, 22)
	_, err = base64.RawURLEncoding.DecodeString(share.UID)
	assert.NoError(t, err)
}

func TestShareServiceCreateUIDLengthTracksConfig(t *testing.T) {
	svc := NewShareService(&mockShareStore{}, nil, 24, zap.NewNop())

	share, err := svc.Create(context.Background(), CreateShareRequest{Name: "X", AccessType: "public"}, "user-1")
	require.NoError(t, err)
	assert.Len(t, share.UID, 32)

	// Short configs are bumped up to the 16 byte floor.
	svc = NewShareService(&mockShareStore{}, nil, 4, zap.NewNop())
	share, err = svc.Create(context.Background(), CreateShareRequest{Name: "X", AccessType: "public"}, "user-1")
	require.NoError(t, err)
	assert.Len(t, share.UID, 22)
}

func TestShareServiceCreateValidation(t *testing.T) {
	svc := NewShareService(&mockShareStore{}, nil, 0, zap.NewNop())

	_, err := svc.Create(context.Background(), CreateShareRequest{Name: "", AccessType: "public"}, "user-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), CreateShareRequest{Name: "X", AccessType: "secret"}, "user-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	zero := 0
	_, err = svc.Create(context.Background(), CreateShareRequest{Name: "X", AccessType: "public", MaxUses: &zero}, "user-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	past := time.Now().Add(-time.Hour)
	_, err = svc.Create(context.Background(), CreateShareRequest{Name: "X", AccessType: "expiring", ExpiresAt: &past}, "user-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestShareServiceCreateScopeRules(t *testing.T) {
	svc := NewShareService(&mockShareStore{}, nil, 0, zap.NewNop())

	_, err := svc.Create(context.Background(), CreateShareRequest{
		Name:           "X",
		AccessType:     "public",
		IncludedGroups: []string{"grp-1", "grp-1"},
	}, "user-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidScope))

	// Exclusion wins over inclusion at selection time, so overlap is a
	// legal way to publish an empty share.
	_, err = svc.Create(context.Background(), CreateShareRequest{
		Name:           "X",
		AccessType:     "public",
		IncludedGroups: []string{"grp-1"},
		ExcludedGroups: []string{"grp-1"},
	}, "user-1")
	assert.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateShareRequest{
		Name:         "X",
		AccessType:   "public",
		IncludedTags: []string{""},
	}, "user-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidScope))

	// Empty scope selects the whole catalog.
	_, err = svc.Create(context.Background(), CreateShareRequest{Name: "X", AccessType: "public"}, "user-1")
	assert.NoError(t, err)
}

func TestShareServiceCreateRetriesUIDCollision(t *testing.T) {
	store := &mockShareStore{taken: map[string]bool{}}
	svc := NewShareService(store, nil, 0, zap.NewNop())

	share, err := svc.Create(context.Background(), CreateShareRequest{Name: "X", AccessType: "public"}, "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, share.UID)
}

func TestShareServiceUpdatePreservesLedger(t *testing.T) {
	store := &mockShareStore{shares: map[string]models.SharedView{
		"share-1": {ID: "share-1", UID: "uid-1", Name: "Old", CurrentUses: 7, CreatedBy: "user-1"},
	}}
	svc := NewShareService(store, nil, 0, zap.NewNop())

	uses := 10
	share, err := svc.Update(context.Background(), "share-1", UpdateShareRequest{
		Name:       "New",
		AccessType: "restricted",
		MaxUses:    &uses,
	})
	require.NoError(t, err)
	assert.Equal(t, "New", share.Name)
	assert.Equal(t, "uid-1", share.UID)
	assert.Equal(t, 7, share.CurrentUses)
}

func TestShareServiceGetMissing(t *testing.T) {
	svc := NewShareService(&mockShareStore{}, nil, 0, zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrShareNotFound))
}

func TestShareServiceDelete(t *testing.T) {
	store := &mockShareStore{shares: map[string]models.SharedView{
		"share-1": {ID: "share-1", UID: "uid-1", Name: "X"},
	}}
	svc := NewShareService(store, nil, 0, zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "share-1"))
	assert.Equal(t, []string{"share-1"}, store.deleted)

	err := svc.Delete(context.Background(), "share-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrShareNotFound))
}
