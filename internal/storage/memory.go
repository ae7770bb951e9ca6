package storage

import (
	"context"
	"sync"
)

// memStore keeps everything in process memory. Used by tests and dry runs.
type memStore struct {
	mu        sync.Mutex
	schedules []ScheduleRecord
	history   []HistoryRecord
	audit     []AuditEntry
}

// NewMemory returns a volatile Store.
func NewMemory() Store {
	return &memStore{}
}

func (s *memStore) Close() error { return nil }

func (s *memStore) LoadSchedules(ctx context.Context) ([]ScheduleRecord, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduleRecord, len(s.schedules))
	copy(out, s.schedules)
	return out, nil
}

func (s *memStore) SaveSchedules(ctx context.Context, all []ScheduleRecord) error {
	_ = ctx
	cp := make([]ScheduleRecord, len(all))
	copy(cp, all)
	s.mu.Lock()
	s.schedules = cp
	s.mu.Unlock()
	return nil
}

func (s *memStore) AppendHistory(ctx context.Context, r HistoryRecord) error {
	_ = ctx
	s.mu.Lock()
	s.history = append(s.history, r)
	s.mu.Unlock()
	return nil
}

func (s *memStore) ListHistory(ctx context.Context) ([]HistoryRecord, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryRecord, len(s.history))
	copy(out, s.history)
	return out, nil
}

func (s *memStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	_ = ctx
	s.mu.Lock()
	s.audit = append(s.audit, e)
	s.mu.Unlock()
	return nil
}
