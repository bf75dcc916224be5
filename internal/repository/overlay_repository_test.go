package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkboard-io/linkboard-api/internal/models"
)

func newOverlayMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestOverlayRepositoryFind(t *testing.T) {
	db, mock, cleanup := newOverlayMock(t)
	defer cleanup()
	repo := NewOverlayRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "shared_view_id", "session_id", "personal_bookmarks", "personal_groups",
		"hidden_bookmarks", "favorite_bookmarks", "custom_tags", "view_mode", "sort_preference",
		"created_at", "updated_at",
	}).AddRow(
		"ov-1", "share-1", "sess-1", []byte(`[{"id":"pb-1","title":"Wiki","url":"https://wiki.internal"}]`), []byte(`[]`),
		"{bm-2}", "{bm-3}", []byte(`{"bm-3":"mine"}`), "list", "name_asc",
		now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM personal_overlays WHERE shared_view_id = \\$1 AND session_id = \\$2").
		WithArgs("share-1", "sess-1").
		WillReturnRows(rows)

	overlay, err := repo.Find(context.Background(), "share-1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", overlay.SessionID)
	require.Len(t, overlay.PersonalBookmarks, 1)
	assert.Equal(t, "Wiki", overlay.PersonalBookmarks[0].Title)
	assert.Equal(t, []string{"bm-2"}, []string(overlay.HiddenBookmarks))
	assert.Equal(t, "mine", overlay.CustomTags["bm-3"])
	assert.Equal(t, models.ViewModeList, overlay.ViewMode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverlayRepositoryFindMissing(t *testing.T) {
	db, mock, cleanup := newOverlayMock(t)
	defer cleanup()
	repo := NewOverlayRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM personal_overlays WHERE shared_view_id = \\$1 AND session_id = \\$2").
		WithArgs("share-1", "sess-unknown").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "share-1", "sess-unknown")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverlayRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newOverlayMock(t)
	defer cleanup()
	repo := NewOverlayRepository(db)

	mock.ExpectExec("INSERT INTO personal_overlays (.+) ON CONFLICT \\(shared_view_id, session_id\\) DO UPDATE").
		WillReturnResult(sqlmock.NewResult(0, 1))

	overlay := &models.PersonalOverlay{
		SharedViewID:   "share-1",
		SessionID:      "sess-1",
		ViewMode:       models.ViewModeGrid,
		SortPreference: models.SortDefault,
	}
	err := repo.Upsert(context.Background(), overlay)
	require.NoError(t, err)
	assert.NotEmpty(t, overlay.ID)
	assert.False(t, overlay.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverlayRepositoryCountByShare(t *testing.T) {
	db, mock, cleanup := newOverlayMock(t)
	defer cleanup()
	repo := NewOverlayRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM personal_overlays WHERE shared_view_id = \\$1").
		WithArgs("share-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountByShare(context.Background(), "share-1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
