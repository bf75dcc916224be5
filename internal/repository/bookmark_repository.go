package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/linkboard-io/linkboard-api/internal/models"
)

const bookmarkColumns = `b.id, b.group_id, b.title, b.url, b.internal_url, b.description, b.icon,
	b.tags, b.environment, b.click_count, b.created_at, b.updated_at`

// BookmarkRepository manages the canonical bookmark store.
type BookmarkRepository struct {
	db *sqlx.DB
}

// NewBookmarkRepository constructs a BookmarkRepository.
func NewBookmarkRepository(db *sqlx.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

// List returns bookmarks matching filters along with total count.
func (r *BookmarkRepository) List(ctx context.Context, filter models.BookmarkFilter) ([]models.Bookmark, int, error) {
	base := "FROM bookmarks b WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("b.group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}
	if filter.Environment != "" {
		conditions = append(conditions, fmt.Sprintf("b.environment = $%d", len(args)+1))
		args = append(args, filter.Environment)
	}
	if filter.Tag != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(b.tags)", len(args)+1))
		args = append(args, filter.Tag)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(b.title) LIKE $%d OR LOWER(b.url) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"title":       "b.title",
		"created_at":  "b.created_at",
		"updated_at":  "b.updated_at",
		"click_count": "b.click_count",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "b.created_at"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", bookmarkColumns, base, column, order, size, offset)
	var bookmarks []models.Bookmark
	if err := r.db.SelectContext(ctx, &bookmarks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookmarks: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookmarks: %w", err)
	}

	return bookmarks, total, nil
}

// FindByID fetches a bookmark by ID.
func (r *BookmarkRepository) FindByID(ctx context.Context, id string) (*models.Bookmark, error) {
	query := fmt.Sprintf("SELECT %s FROM bookmarks b WHERE b.id = $1", bookmarkColumns)
	var bookmark models.Bookmark
	if err := r.db.GetContext(ctx, &bookmark, query, id); err != nil {
		return nil, err
	}
	return &bookmark, nil
}

// SelectScoped resolves the live content of a share scope. An item is
// in scope iff its group passes inclusion (or inclusion is empty) and
// is not excluded, and tag/environment filters match. Exclusion wins
// when the same group appears in both sets. Rows come back in the
// share's default order: group sort order, then title.
func (r *BookmarkRepository) SelectScoped(ctx context.Context, scope models.ShareScope) ([]models.Bookmark, error) {
	query := fmt.Sprintf(`SELECT %s
		FROM bookmarks b
		LEFT JOIN groups g ON g.id = b.group_id
		WHERE (cardinality($1::text[]) = 0 OR b.group_id = ANY($1))
		  AND (b.group_id IS NULL OR NOT b.group_id = ANY($2))
		  AND (cardinality($3::text[]) = 0 OR b.tags && $3)
		  AND (cardinality($4::text[]) = 0 OR b.environment = ANY($4))
		ORDER BY COALESCE(g.sort_order, 2147483647), b.title`, bookmarkColumns)

	var bookmarks []models.Bookmark
	err := r.db.SelectContext(ctx, &bookmarks, query,
		pq.StringArray(orEmpty(scope.IncludedGroups)),
		pq.StringArray(orEmpty(scope.ExcludedGroups)),
		pq.StringArray(orEmpty(scope.IncludedTags)),
		pq.StringArray(orEmpty(scope.Environments)),
	)
	if err != nil {
		return nil, fmt.Errorf("select scoped bookmarks: %w", err)
	}
	return bookmarks, nil
}

// Create inserts a new bookmark record.
func (r *BookmarkRepository) Create(ctx context.Context, bookmark *models.Bookmark) error {
	if bookmark.ID == "" {
		bookmark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if bookmark.CreatedAt.IsZero() {
		bookmark.CreatedAt = now
	}
	bookmark.UpdatedAt = now
	if bookmark.Tags == nil {
		bookmark.Tags = pq.StringArray{}
	}

	const query = `INSERT INTO bookmarks (id, group_id, title, url, internal_url, description, icon, tags, environment, click_count, created_at, updated_at)
		VALUES (:id, :group_id, :title, :url, :internal_url, :description, :icon, :tags, :environment, :click_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, bookmark); err != nil {
		return fmt.Errorf("create bookmark: %w", err)
	}
	return nil
}

// Update modifies an existing bookmark record.
func (r *BookmarkRepository) Update(ctx context.Context, bookmark *models.Bookmark) error {
	bookmark.UpdatedAt = time.Now().UTC()
	if bookmark.Tags == nil {
		bookmark.Tags = pq.StringArray{}
	}
	const query = `UPDATE bookmarks SET group_id = :group_id, title = :title, url = :url, internal_url = :internal_url,
		description = :description, icon = :icon, tags = :tags, environment = :environment, updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, bookmark); err != nil {
		return fmt.Errorf("update bookmark: %w", err)
	}
	return nil
}

// Delete removes a bookmark.
func (r *BookmarkRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM bookmarks WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return nil
}

// IncrementClicks bumps the click analytics counter. Unconditional:
// this counter has no cap and is independent of share admission.
func (r *BookmarkRepository) IncrementClicks(ctx context.Context, id string) error {
	const query = `UPDATE bookmarks SET click_count = click_count + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment bookmark clicks: %w", err)
	}
	return nil
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
