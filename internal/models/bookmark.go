package models

import (
	"time"

	"github.com/lib/pq"
)

// Bookmark is a canonical bookmark owned by the deployment admin.
// URL is the public address; InternalURL is the LAN-only address and
// must never leave the owner surface.
type Bookmark struct {
	ID          string         `db:"id" json:"id"`
	GroupID     *string        `db:"group_id" json:"group_id,omitempty"`
	Title       string         `db:"title" json:"title"`
	URL         string         `db:"url" json:"url"`
	InternalURL *string        `db:"internal_url" json:"internal_url,omitempty"`
	Description *string        `db:"description" json:"description,omitempty"`
	Icon        *string        `db:"icon" json:"icon,omitempty"`
	Tags        pq.StringArray `db:"tags" json:"tags"`
	Environment string         `db:"environment" json:"environment"`
	ClickCount  int64          `db:"click_count" json:"click_count"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// BookmarkFilter captures filtering options for listing bookmarks.
type BookmarkFilter struct {
	Search      string
	GroupID     string
	Environment string
	Tag         string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// ShareScope carries the content scoping rules of a shared view in the
// shape the canonical store queries expect. Exclusion wins over
// inclusion when the same group appears in both sets.
type ShareScope struct {
	IncludedGroups []string
	ExcludedGroups []string
	IncludedTags   []string
	Environments   []string
}
