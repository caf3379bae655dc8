// Package domain defines the persistence models for the urge counter:
// per-tutorial aggregate counts, the append-only urge history, and the
// per-(tutorial, client) daily-limit counters. These types are mapped with
// GORM and form the core data layer of the application.
package domain

import (
	"time"
)

// UrgeCount holds the all-time urge total for a single tutorial. One row per
// tutorial, created on the first urge and incremented on every successful
// urge thereafter. Rows are never deleted; retention cleanup only touches
// the history and limit tables.
//
// Fields:
//   - ID: auto-increment primary key.
//   - TutorialID: unique tutorial identifier (max 100 chars).
//   - Count: cumulative urge total; monotonically non-decreasing.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type UrgeCount struct {
	ID         uint      `json:"id"          gorm:"primaryKey;autoIncrement"`
	TutorialID string    `json:"tutorial_id" gorm:"type:varchar(100);not null;uniqueIndex:ux_urge_tutorial"`
	Count      int64     `json:"urge_count"  gorm:"column:urge_count;not null;default:0"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"  gorm:"index"`
}

// TableName returns the database table name for UrgeCount.
func (UrgeCount) TableName() string { return "tutorial_urges" }

// UrgeHistory is the append-only audit log: one row per individual urge
// event. Rows are immutable once written and become eligible for deletion
// by retention cleanup after a configurable age.
//
// Fields:
//   - ID: auto-increment primary key.
//   - TutorialID: tutorial the urge targeted (indexed).
//   - IPAddress: client address; may be the sentinel "unknown" (45 chars
//     covers textual IPv6).
//   - UserAgent: optional client agent string.
//   - CreatedAt: event timestamp (indexed for retention and today-counts).
type UrgeHistory struct {
	ID         uint      `json:"id"          gorm:"primaryKey;autoIncrement"`
	TutorialID string    `json:"tutorial_id" gorm:"type:varchar(100);not null;index:idx_history_tutorial"`
	IPAddress  string    `json:"ip_address"  gorm:"type:varchar(45);not null;index:idx_history_ip"`
	UserAgent  string    `json:"user_agent,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index:idx_history_created"`
}

// TableName returns the database table name for UrgeHistory.
func (UrgeHistory) TableName() string { return "urge_history" }

// UrgeLimit tracks how many urges a single client has spent on a single
// tutorial within the current rolling 24-hour window. One row per
// (tutorial, client) pair, enforced by a unique index; the window reset is
// applied on write (reset to 1 when the previous urge is older than the
// window) and logically on read.
//
// Fields:
//   - ID: auto-increment primary key.
//   - TutorialID / IPAddress: composite unique identity of the counter.
//   - Count: urges spent inside the current window.
//   - LastUrgeAt: timestamp of the most recent urge; anchors the window.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM; UpdatedAt drives
//     retention cleanup.
type UrgeLimit struct {
	ID         uint      `json:"id"           gorm:"primaryKey;autoIncrement"`
	TutorialID string    `json:"tutorial_id"  gorm:"type:varchar(100);not null;uniqueIndex:ux_limit_tutorial_ip,priority:1"`
	IPAddress  string    `json:"ip_address"   gorm:"type:varchar(45);not null;uniqueIndex:ux_limit_tutorial_ip,priority:2"`
	Count      int64     `json:"urge_count"   gorm:"column:urge_count;not null;default:0"`
	LastUrgeAt time.Time `json:"last_urge_at" gorm:"not null;index:idx_limit_last_urge"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"   gorm:"index"`
}

// TableName returns the database table name for UrgeLimit.
func (UrgeLimit) TableName() string { return "urge_limits" }
