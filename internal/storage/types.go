package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (json snapshot + jsonl appends)
//   - "sqlite": SQLite database file
//   - "memory": volatile in-process backend (tests, dry runs)
//
// If Driver is empty, "file" is assumed.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// ScheduleRecord is the persisted form of a recurring on/off rule.
// Keep it compact and schema-stable.
type ScheduleRecord struct {
	ID        string    `json:"id"`
	Hour      int       `json:"hour"`
	Minute    int       `json:"minute"`
	Action    string    `json:"action"` // "on" | "off"
	Weekdays  []int     `json:"weekdays"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryRecord is one watch-history entry: a manual timer was armed.
// Records intent, not completion; entries are never rewritten.
type HistoryRecord struct {
	At      time.Time `json:"at"`
	Minutes int       `json:"minutes"`
	Note    string    `json:"note,omitempty"`
}

// AuditEntry records a link-controller action and its outcome.
type AuditEntry struct {
	At      time.Time `json:"at"`
	Source  string    `json:"source"`  // "manual" | "timer" | "schedule"
	Action  string    `json:"action"`  // "up" | "down"
	Outcome string    `json:"outcome"` // "accepted" | "skipped" | "suppressed" | "failed"
	Error   string    `json:"err,omitempty"`
}
