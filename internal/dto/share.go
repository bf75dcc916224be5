package dto

import (
	"time"

	"github.com/linkboard-io/linkboard-api/internal/models"
)

// SharedItem is the public-safe projection of a bookmark returned by
// share resolution. Every resolution response goes through this type;
// fields outside this whitelist (internal URLs, click counters,
// timestamps) never reach a visitor.
type SharedItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description *string  `json:"description,omitempty"`
	Icon        *string  `json:"icon,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	GroupID     *string  `json:"group_id,omitempty"`
	Environment string   `json:"environment,omitempty"`
	Personal    bool     `json:"personal,omitempty"`
	Favorite    bool     `json:"favorite,omitempty"`
	CustomTag   *string  `json:"custom_tag,omitempty"`
}

// SharedGroup is the public-safe projection of a group.
type SharedGroup struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Icon     *string `json:"icon,omitempty"`
	Personal bool    `json:"personal,omitempty"`
}

// ShareMeta is the public-safe header of a resolved share.
// TotalAccesses is populated only when the share grants analytics
// visibility to visitors.
type ShareMeta struct {
	UID           string                  `json:"uid"`
	Name          string                  `json:"name"`
	AccessType    models.ShareAccessType  `json:"access_type"`
	ExpiresAt     *time.Time              `json:"expires_at,omitempty"`
	Permissions   models.SharePermissions `json:"permissions"`
	Theme         *string                 `json:"theme,omitempty"`
	Layout        *string                 `json:"layout,omitempty"`
	Title         *string                 `json:"title,omitempty"`
	TotalAccesses *int                    `json:"total_accesses,omitempty"`
}

// OverlayState reflects the visitor's display preferences back to the
// client alongside resolved content.
type OverlayState struct {
	ViewMode       string `json:"view_mode"`
	SortPreference string `json:"sort_preference"`
}

// ShareResolution is the full payload of a successful resolution.
type ShareResolution struct {
	Share   ShareMeta     `json:"share"`
	Items   []SharedItem  `json:"items"`
	Groups  []SharedGroup `json:"groups"`
	Overlay OverlayState  `json:"overlay"`
}
