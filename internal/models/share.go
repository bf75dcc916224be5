package models

import (
	"time"

	"github.com/lib/pq"
)

// ShareAccessType labels the owner's intent for a shared view. It is a
// UI hint only: enforcement depends solely on ExpiresAt and MaxUses,
// whatever the label says. A "restricted" share with neither field set
// behaves exactly like a public one.
type ShareAccessType string

const (
	ShareAccessPublic     ShareAccessType = "public"
	ShareAccessRestricted ShareAccessType = "restricted"
	ShareAccessExpiring   ShareAccessType = "expiring"
)

// ValidAccessType reports whether t is a known access type label.
func ValidAccessType(t ShareAccessType) bool {
	switch t {
	case ShareAccessPublic, ShareAccessRestricted, ShareAccessExpiring:
		return true
	}
	return false
}

// SharePermissions gates visitor-initiated mutations on a share.
// All-false means read-only. Hiding, favoriting and custom tags are
// not gated here: they touch only the visitor's own overlay.
type SharePermissions struct {
	CanAdd          bool `json:"can_add"`
	CanEdit         bool `json:"can_edit"`
	CanDelete       bool `json:"can_delete"`
	CanCreateGroups bool `json:"can_create_groups"`
	CanSeeAnalytics bool `json:"can_see_analytics"`
}

// SharedView is one published share link over a scoped subset of the
// canonical bookmark collection. UID is the only value exposed in the
// public URL and is the entire security boundary for public shares.
type SharedView struct {
	ID          string          `db:"id" json:"id"`
	UID         string          `db:"uid" json:"uid"`
	Name        string          `db:"name" json:"name"`
	AccessType  ShareAccessType `db:"access_type" json:"access_type"`
	ExpiresAt   *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	MaxUses     *int            `db:"max_uses" json:"max_uses,omitempty"`
	CurrentUses int             `db:"current_uses" json:"current_uses"`

	IncludedGroups pq.StringArray `db:"included_groups" json:"included_groups"`
	ExcludedGroups pq.StringArray `db:"excluded_groups" json:"excluded_groups"`
	IncludedTags   pq.StringArray `db:"included_tags" json:"included_tags"`
	Environments   pq.StringArray `db:"environments" json:"environments"`

	CanAdd          bool `db:"can_add" json:"can_add"`
	CanEdit         bool `db:"can_edit" json:"can_edit"`
	CanDelete       bool `db:"can_delete" json:"can_delete"`
	CanCreateGroups bool `db:"can_create_groups" json:"can_create_groups"`
	CanSeeAnalytics bool `db:"can_see_analytics" json:"can_see_analytics"`

	Theme  *string `db:"theme" json:"theme,omitempty"`
	Layout *string `db:"layout" json:"layout,omitempty"`
	Title  *string `db:"title" json:"title,omitempty"`

	CreatedBy      string     `db:"created_by" json:"created_by"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	LastAccessedAt *time.Time `db:"last_accessed_at" json:"last_accessed_at,omitempty"`
}

// Permissions collects the permission flags.
func (s *SharedView) Permissions() SharePermissions {
	return SharePermissions{
		CanAdd:          s.CanAdd,
		CanEdit:         s.CanEdit,
		CanDelete:       s.CanDelete,
		CanCreateGroups: s.CanCreateGroups,
		CanSeeAnalytics: s.CanSeeAnalytics,
	}
}

// Scope collects the content scoping rules.
func (s *SharedView) Scope() ShareScope {
	return ShareScope{
		IncludedGroups: s.IncludedGroups,
		ExcludedGroups: s.ExcludedGroups,
		IncludedTags:   s.IncludedTags,
		Environments:   s.Environments,
	}
}

// ShareFilter captures filtering options for listing shares.
type ShareFilter struct {
	AccessType string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
