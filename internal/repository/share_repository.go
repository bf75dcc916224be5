package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/linkboard-io/linkboard-api/internal/models"
)

const sharedViewColumns = `id, uid, name, access_type, expires_at, max_uses, current_uses,
	included_groups, excluded_groups, included_tags, environments,
	can_add, can_edit, can_delete, can_create_groups, can_see_analytics,
	theme, layout, title, created_by, created_at, updated_at, last_accessed_at`

// ShareRepository manages persistence for shared views, including the
// usage ledger. current_uses is never written outside TryIncrementUsage.
type ShareRepository struct {
	db *sqlx.DB
}

// NewShareRepository constructs a ShareRepository.
func NewShareRepository(db *sqlx.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

// List returns shares matching filters along with total count.
func (r *ShareRepository) List(ctx context.Context, filter models.ShareFilter) ([]models.SharedView, int, error) {
	base := "FROM shared_views WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.AccessType != "" {
		conditions = append(conditions, fmt.Sprintf("access_type = $%d", len(args)+1))
		args = append(args, filter.AccessType)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"name":             "name",
		"created_at":       "created_at",
		"updated_at":       "updated_at",
		"last_accessed_at": "last_accessed_at",
		"current_uses":     "current_uses",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", sharedViewColumns, base, column, order, size, offset)
	var shares []models.SharedView
	if err := r.db.SelectContext(ctx, &shares, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list shares: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count shares: %w", err)
	}

	return shares, total, nil
}

// FindByID fetches a share by its owner-facing id.
func (r *ShareRepository) FindByID(ctx context.Context, id string) (*models.SharedView, error) {
	query := fmt.Sprintf("SELECT %s FROM shared_views WHERE id = $1", sharedViewColumns)
	var share models.SharedView
	if err := r.db.GetContext(ctx, &share, query, id); err != nil {
		return nil, err
	}
	return &share, nil
}

// FindByUID fetches a share by its public token.
func (r *ShareRepository) FindByUID(ctx context.Context, uid string) (*models.SharedView, error) {
	query := fmt.Sprintf("SELECT %s FROM shared_views WHERE uid = $1", sharedViewColumns)
	var share models.SharedView
	if err := r.db.GetContext(ctx, &share, query, uid); err != nil {
		return nil, err
	}
	return &share, nil
}

// Create inserts a new shared view.
func (r *ShareRepository) Create(ctx context.Context, share *models.SharedView) error {
	if share.ID == "" {
		share.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if share.CreatedAt.IsZero() {
		share.CreatedAt = now
	}
	share.UpdatedAt = now
	normalizeArrays(share)

	const query = `INSERT INTO shared_views (id, uid, name, access_type, expires_at, max_uses, current_uses,
		included_groups, excluded_groups, included_tags, environments,
		can_add, can_edit, can_delete, can_create_groups, can_see_analytics,
		theme, layout, title, created_by, created_at, updated_at)
		VALUES (:id, :uid, :name, :access_type, :expires_at, :max_uses, :current_uses,
		:included_groups, :excluded_groups, :included_tags, :environments,
		:can_add, :can_edit, :can_delete, :can_create_groups, :can_see_analytics,
		:theme, :layout, :title, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, share); err != nil {
		return fmt.Errorf("create share: %w", err)
	}
	return nil
}

// Update modifies the mutable fields of a shared view. current_uses is
// deliberately absent: the counter belongs to the ledger alone.
func (r *ShareRepository) Update(ctx context.Context, share *models.SharedView) error {
	share.UpdatedAt = time.Now().UTC()
	normalizeArrays(share)
	const query = `UPDATE shared_views SET name = :name, access_type = :access_type, expires_at = :expires_at,
		max_uses = :max_uses,
		included_groups = :included_groups, excluded_groups = :excluded_groups,
		included_tags = :included_tags, environments = :environments,
		can_add = :can_add, can_edit = :can_edit, can_delete = :can_delete,
		can_create_groups = :can_create_groups, can_see_analytics = :can_see_analytics,
		theme = :theme, layout = :layout, title = :title, updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, share); err != nil {
		return fmt.Errorf("update share: %w", err)
	}
	return nil
}

// Delete removes a share. Overlays and access events go with it via
// foreign key cascade.
func (r *ShareRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM shared_views WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	return nil
}

// TryIncrementUsage is the admission linearization point. The guard and
// the increment are one conditional UPDATE, so given k remaining uses
// and N concurrent callers exactly min(N, k) succeed; the counter can
// never pass max_uses. With max_uses unset the increment always
// succeeds and only feeds analytics. The last_accessed_at bump rides
// along best-effort.
func (r *ShareRepository) TryIncrementUsage(ctx context.Context, id string, now time.Time) (bool, error) {
	const query = `UPDATE shared_views
		SET current_uses = current_uses + 1, last_accessed_at = $2
		WHERE id = $1 AND (max_uses IS NULL OR current_uses < max_uses)`
	res, err := r.db.ExecContext(ctx, query, id, now.UTC())
	if err != nil {
		return false, fmt.Errorf("increment share usage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment share usage result: %w", err)
	}
	return affected > 0, nil
}

// UIDExists reports whether a public token is already taken.
func (r *ShareRepository) UIDExists(ctx context.Context, uid string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM shared_views WHERE uid = $1 LIMIT 1", uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check share uid: %w", err)
	}
	return true, nil
}

// IsRetryable reports whether a storage error is transient contention
// that the usage ledger may retry (serialization failure, deadlock).
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func normalizeArrays(share *models.SharedView) {
	if share.IncludedGroups == nil {
		share.IncludedGroups = pq.StringArray{}
	}
	if share.ExcludedGroups == nil {
		share.ExcludedGroups = pq.StringArray{}
	}
	if share.IncludedTags == nil {
		share.IncludedTags = pq.StringArray{}
	}
	if share.Environments == nil {
		share.Environments = pq.StringArray{}
	}
}
