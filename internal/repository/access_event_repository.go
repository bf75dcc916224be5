package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/linkboard-io/linkboard-api/internal/models"
)

// AccessEventRepository appends and reads the share access log. The
// table is append-only; rows disappear only through the share deletion
// cascade.
type AccessEventRepository struct {
	db *sqlx.DB
}

// NewAccessEventRepository constructs an AccessEventRepository.
func NewAccessEventRepository(db *sqlx.DB) *AccessEventRepository {
	return &AccessEventRepository{db: db}
}

// Create appends one admission event.
func (r *AccessEventRepository) Create(ctx context.Context, event *models.ShareAccessEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.AccessedAt.IsZero() {
		event.AccessedAt = time.Now().UTC()
	}
	const query = `INSERT INTO share_access_events (id, shared_view_id, session_id, ip, user_agent, accessed_at)
		VALUES (:id, :shared_view_id, :session_id, :ip, :user_agent, :accessed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create access event: %w", err)
	}
	return nil
}

// ListByShare returns events for a share, newest first, with total count.
func (r *AccessEventRepository) ListByShare(ctx context.Context, sharedViewID string, filter models.AccessEventFilter) ([]models.ShareAccessEvent, int, error) {
	base := "FROM share_access_events WHERE shared_view_id = $1"
	args := []interface{}{sharedViewID}

	if filter.SessionID != "" {
		base += fmt.Sprintf(" AND session_id = $%d", len(args)+1)
		args = append(args, filter.SessionID)
	}
	if filter.From != nil {
		base += fmt.Sprintf(" AND accessed_at >= $%d", len(args)+1)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		base += fmt.Sprintf(" AND accessed_at < $%d", len(args)+1)
		args = append(args, *filter.To)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, shared_view_id, session_id, ip, user_agent, accessed_at %s ORDER BY accessed_at DESC LIMIT %d OFFSET %d", base, size, offset)
	var events []models.ShareAccessEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list access events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count access events: %w", err)
	}

	return events, total, nil
}

// Stats aggregates a share's access history: totals, distinct
// sessions, and per-day admissions over the trailing window.
func (r *AccessEventRepository) Stats(ctx context.Context, sharedViewID string, since time.Time) (*models.ShareAccessStats, error) {
	stats := &models.ShareAccessStats{}

	const totalsQuery = `SELECT COUNT(*) AS total, COUNT(DISTINCT session_id) AS sessions, MAX(accessed_at) AS last
		FROM share_access_events WHERE shared_view_id = $1`
	var totals struct {
		Total    int        `db:"total"`
		Sessions int        `db:"sessions"`
		Last     *time.Time `db:"last"`
	}
	if err := r.db.GetContext(ctx, &totals, totalsQuery, sharedViewID); err != nil {
		return nil, fmt.Errorf("access event totals: %w", err)
	}
	stats.TotalAccesses = totals.Total
	stats.UniqueSessions = totals.Sessions
	stats.LastAccessedAt = totals.Last

	const perDayQuery = `SELECT date_trunc('day', accessed_at) AS day, COUNT(*) AS count
		FROM share_access_events
		WHERE shared_view_id = $1 AND accessed_at >= $2
		GROUP BY 1 ORDER BY 1`
	if err := r.db.SelectContext(ctx, &stats.PerDay, perDayQuery, sharedViewID, since.UTC()); err != nil {
		return nil, fmt.Errorf("access events per day: %w", err)
	}

	return stats, nil
}
