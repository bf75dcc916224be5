package models

import "time"

// ShareAccessEvent is one admitted visit to a share. Append-only:
// written from the visitor path only after the policy evaluator
// allows the request, read from analytics, removed only by share
// deletion cascade. Denied requests never produce an event.
type ShareAccessEvent struct {
	ID           string    `db:"id" json:"id"`
	SharedViewID string    `db:"shared_view_id" json:"shared_view_id"`
	SessionID    string    `db:"session_id" json:"session_id"`
	IP           string    `db:"ip" json:"ip"`
	UserAgent    string    `db:"user_agent" json:"user_agent"`
	AccessedAt   time.Time `db:"accessed_at" json:"accessed_at"`
}

// AccessEventFilter captures filtering options for listing events.
type AccessEventFilter struct {
	SessionID string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// DailyAccessCount aggregates admissions per calendar day.
type DailyAccessCount struct {
	Day   time.Time `db:"day" json:"day"`
	Count int       `db:"count" json:"count"`
}

// ShareAccessStats summarises a share's access history.
type ShareAccessStats struct {
	TotalAccesses  int                `json:"total_accesses"`
	UniqueSessions int                `json:"unique_sessions"`
	LastAccessedAt *time.Time         `json:"last_accessed_at,omitempty"`
	PerDay         []DailyAccessCount `json:"per_day"`
}
