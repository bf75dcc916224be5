package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Overlay view modes and sort preferences. "default" defers to the
// share's own ordering (group order, then bookmark title).
const (
	ViewModeGrid = "grid"
	ViewModeList = "list"

	SortDefault  = "default"
	SortNameAsc  = "name_asc"
	SortNameDesc = "name_desc"
	SortNewest   = "newest"
)

// PersonalBookmark is a visitor-authored bookmark. It lives only in
// the visitor's overlay row and is never written to the canonical
// store.
type PersonalBookmark struct {
	ID          string    `json:"id"`
	GroupID     *string   `json:"group_id,omitempty"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description *string   `json:"description,omitempty"`
	Icon        *string   `json:"icon,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PersonalGroup is a visitor-authored container for personal bookmarks.
type PersonalGroup struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      *string   `json:"icon,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PersonalBookmarkList persists as JSONB.
type PersonalBookmarkList []PersonalBookmark

// Value marshals the list for persistence.
func (l PersonalBookmarkList) Value() (driver.Value, error) {
	if l == nil {
		l = PersonalBookmarkList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal personal bookmarks: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the list.
func (l *PersonalBookmarkList) Scan(value interface{}) error {
	return scanJSON(value, l, "PersonalBookmarkList")
}

// PersonalGroupList persists as JSONB.
type PersonalGroupList []PersonalGroup

// Value marshals the list for persistence.
func (l PersonalGroupList) Value() (driver.Value, error) {
	if l == nil {
		l = PersonalGroupList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal personal groups: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the list.
func (l *PersonalGroupList) Scan(value interface{}) error {
	return scanJSON(value, l, "PersonalGroupList")
}

// CustomTagMap maps a bookmark id to the visitor's local tag override.
// Display-only; canonical tags are untouched.
type CustomTagMap map[string]string

// Value marshals the map for persistence.
func (m CustomTagMap) Value() (driver.Value, error) {
	if m == nil {
		m = CustomTagMap{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal custom tags: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the map.
func (m *CustomTagMap) Scan(value interface{}) error {
	return scanJSON(value, m, "CustomTagMap")
}

// PersonalOverlay is one visitor's private diff over one share,
// keyed uniquely by (shared_view_id, session_id). Overlays for
// different sessions on the same share never observe each other.
// An overlay is deleted only when its parent share is deleted.
type PersonalOverlay struct {
	ID                string               `db:"id" json:"id"`
	SharedViewID      string               `db:"shared_view_id" json:"shared_view_id"`
	SessionID         string               `db:"session_id" json:"session_id"`
	PersonalBookmarks PersonalBookmarkList `db:"personal_bookmarks" json:"personal_bookmarks"`
	PersonalGroups    PersonalGroupList    `db:"personal_groups" json:"personal_groups"`
	HiddenBookmarks   pq.StringArray       `db:"hidden_bookmarks" json:"hidden_bookmarks"`
	FavoriteBookmarks pq.StringArray       `db:"favorite_bookmarks" json:"favorite_bookmarks"`
	CustomTags        CustomTagMap         `db:"custom_tags" json:"custom_tags"`
	ViewMode          string               `db:"view_mode" json:"view_mode"`
	SortPreference    string               `db:"sort_preference" json:"sort_preference"`
	CreatedAt         time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time            `db:"updated_at" json:"updated_at"`
}

// IsHidden reports whether the visitor hid the given canonical id.
func (o *PersonalOverlay) IsHidden(bookmarkID string) bool {
	for _, id := range o.HiddenBookmarks {
		if id == bookmarkID {
			return true
		}
	}
	return false
}

// IsFavorite reports whether the given id is marked favorite.
func (o *PersonalOverlay) IsFavorite(bookmarkID string) bool {
	for _, id := range o.FavoriteBookmarks {
		if id == bookmarkID {
			return true
		}
	}
	return false
}

func scanJSON(value interface{}, dest interface{}, name string) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for %s", value, name)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return nil
}
