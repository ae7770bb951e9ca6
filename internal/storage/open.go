package storage

import (
	"context"
	"errors"
	"strings"

	logx "iptvctl/pkg/logx"
)

// Store is the persistence API used by the schedule store, the watch-history
// log and the audit trail.
//
// SaveSchedules replaces the whole collection atomically: a reader never
// observes a half-written set, and a failed write leaves the previous
// collection intact.
type Store interface {
	LoadSchedules(ctx context.Context) ([]ScheduleRecord, error)
	SaveSchedules(ctx context.Context, all []ScheduleRecord) error

	AppendHistory(ctx context.Context, r HistoryRecord) error
	ListHistory(ctx context.Context) ([]HistoryRecord, error)

	AppendAudit(ctx context.Context, e AuditEntry) error

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
