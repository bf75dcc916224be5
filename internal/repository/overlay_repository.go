package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/linkboard-io/linkboard-api/internal/models"
)

const overlayColumns = `id, shared_view_id, session_id, personal_bookmarks, personal_groups,
	hidden_bookmarks, favorite_bookmarks, custom_tags, view_mode, sort_preference,
	created_at, updated_at`

// OverlayRepository persists per-visitor personalization rows. Rows are
// keyed by (shared_view_id, session_id); the unique constraint on that
// pair is what keeps sessions from ever sharing an overlay.
type OverlayRepository struct {
	db *sqlx.DB
}

// NewOverlayRepository constructs an OverlayRepository.
func NewOverlayRepository(db *sqlx.DB) *OverlayRepository {
	return &OverlayRepository{db: db}
}

// Find returns the overlay for the given share and session.
// sql.ErrNoRows passes through: callers treat a missing row as an
// empty overlay, not an error.
func (r *OverlayRepository) Find(ctx context.Context, sharedViewID, sessionID string) (*models.PersonalOverlay, error) {
	query := fmt.Sprintf("SELECT %s FROM personal_overlays WHERE shared_view_id = $1 AND session_id = $2", overlayColumns)
	var overlay models.PersonalOverlay
	if err := r.db.GetContext(ctx, &overlay, query, sharedViewID, sessionID); err != nil {
		return nil, err
	}
	return &overlay, nil
}

// Upsert creates or replaces the visitor's overlay row. Last writer
// wins within a single session; that race is accepted.
func (r *OverlayRepository) Upsert(ctx context.Context, overlay *models.PersonalOverlay) error {
	if overlay.ID == "" {
		overlay.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if overlay.CreatedAt.IsZero() {
		overlay.CreatedAt = now
	}
	overlay.UpdatedAt = now
	if overlay.HiddenBookmarks == nil {
		overlay.HiddenBookmarks = pq.StringArray{}
	}
	if overlay.FavoriteBookmarks == nil {
		overlay.FavoriteBookmarks = pq.StringArray{}
	}

	const query = `INSERT INTO personal_overlays (id, shared_view_id, session_id, personal_bookmarks, personal_groups,
		hidden_bookmarks, favorite_bookmarks, custom_tags, view_mode, sort_preference, created_at, updated_at)
		VALUES (:id, :shared_view_id, :session_id, :personal_bookmarks, :personal_groups,
		:hidden_bookmarks, :favorite_bookmarks, :custom_tags, :view_mode, :sort_preference, :created_at, :updated_at)
		ON CONFLICT (shared_view_id, session_id) DO UPDATE
		SET personal_bookmarks = EXCLUDED.personal_bookmarks,
		    personal_groups = EXCLUDED.personal_groups,
		    hidden_bookmarks = EXCLUDED.hidden_bookmarks,
		    favorite_bookmarks = EXCLUDED.favorite_bookmarks,
		    custom_tags = EXCLUDED.custom_tags,
		    view_mode = EXCLUDED.view_mode,
		    sort_preference = EXCLUDED.sort_preference,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, overlay); err != nil {
		return fmt.Errorf("upsert overlay: %w", err)
	}
	return nil
}

// CountByShare returns how many visitors personalized a share.
func (r *OverlayRepository) CountByShare(ctx context.Context, sharedViewID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM personal_overlays WHERE shared_view_id = $1", sharedViewID); err != nil {
		return 0, fmt.Errorf("count overlays: %w", err)
	}
	return count, nil
}
