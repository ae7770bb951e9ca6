// Package schedule owns the recurring on/off rules: CRUD with validation,
// persistence through the storage layer, and materialization of each rule
// into named jobs in the host job runner (one job per time/weekday pair).
//
// The store is the single writer of the job-runner projection; the runner
// holds only a derived, disposable copy of what is persisted here.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"iptvctl/internal/storage"
	logx "iptvctl/pkg/logx"
)

// JobRunner is the slice of the host job runner the store needs. Re-adding
// a name must replace the previous job (idempotent re-registration).
type JobRunner interface {
	AddWeekly(name string, weekday time.Weekday, hour, minute int, job func(ctx context.Context) error) error
	Remove(name string) bool
}

// Store manages the schedule collection.
//
// Reads (List, NextByAction) run under a shared lock; every mutation is a
// full-collection read-modify-write under the exclusive lock, persisted via
// the backend's atomic replace.
type Store struct {
	db     storage.Store
	runner JobRunner
	log    logx.Logger

	// onJob/offJob are what materialized jobs invoke when they fire. The
	// off path consults the conflict resolver before touching the link.
	onJob  func(ctx context.Context) error
	offJob func(ctx context.Context) error

	mu  sync.RWMutex
	all []Schedule
}

func NewStore(db storage.Store, runner JobRunner, onJob, offJob func(ctx context.Context) error, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{db: db, runner: runner, log: log, onJob: onJob, offJob: offJob}
}

// Load reads the persisted collection and materializes every enabled
// schedule into the job runner. Called once at startup.
func (s *Store) Load(ctx context.Context) error {
	records, err := s.db.LoadSchedules(ctx)
	if err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}

	all := make([]Schedule, 0, len(records))
	for _, r := range records {
		all = append(all, fromRecord(r))
	}

	s.mu.Lock()
	s.all = all
	s.mu.Unlock()

	for _, sc := range all {
		if sc.Enabled {
			s.materialize(sc)
		}
	}
	s.log.Info("schedules loaded", logx.Int("count", len(all)))
	return nil
}

// List returns all schedules annotated with their next fire time, soonest
// first; disabled schedules sort last.
func (s *Store) List(now time.Time) []Annotated {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Annotated, 0, len(s.all))
	for _, sc := range s.all {
		a := Annotated{Schedule: sc}
		if sc.Enabled {
			if next, ok := NextRun(sc, now); ok {
				a.NextRun = next
			}
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ni, nj := out[i].NextRun, out[j].NextRun
		if ni.IsZero() {
			return false
		}
		if nj.IsZero() {
			return true
		}
		return ni.Before(nj)
	})
	return out
}

// Get returns one schedule by id.
func (s *Store) Get(id string) (Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sc := range s.all {
		if sc.ID == id {
			return sc, nil
		}
	}
	return Schedule{}, ErrNotFound
}

// NextByAction reports the soonest upcoming fire time among enabled
// schedules with the given action.
func (s *Store) NextByAction(now time.Time, action Action) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best time.Time
	for _, sc := range s.all {
		if !sc.Enabled || sc.Action != action {
			continue
		}
		next, ok := NextRun(sc, now)
		if !ok {
			continue
		}
		if best.IsZero() || next.Before(best) {
			best = next
		}
	}
	return best, !best.IsZero()
}

// Create validates the input, persists the new schedule and materializes its
// jobs. Nothing is mutated when validation fails.
func (s *Store) Create(ctx context.Context, in Input) (Schedule, error) {
	sc, err := parseInput(in)
	if err != nil {
		return Schedule{}, err
	}
	now := time.Now()
	sc.ID = uuid.NewString()
	sc.CreatedAt = now
	sc.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(append([]Schedule(nil), s.all...), sc)
	if err := s.persistLocked(ctx, next); err != nil {
		return Schedule{}, err
	}
	s.all = next

	if sc.Enabled {
		s.materialize(sc)
	}
	s.log.Info("schedule created",
		logx.String("id", sc.ID),
		logx.String("time", sc.timeOfDay()),
		logx.String("action", string(sc.Action)))
	return sc, nil
}

// Update replaces an existing schedule. Its old jobs are unregistered before
// the record changes so a stale job can never fire against the new rule.
func (s *Store) Update(ctx context.Context, id string, in Input) (Schedule, error) {
	sc, err := parseInput(in)
	if err != nil {
		return Schedule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return Schedule{}, ErrNotFound
	}
	old := s.all[idx]

	sc.ID = old.ID
	sc.CreatedAt = old.CreatedAt
	sc.UpdatedAt = time.Now()

	s.unmaterialize(old)

	next := append([]Schedule(nil), s.all...)
	next[idx] = sc
	if err := s.persistLocked(ctx, next); err != nil {
		// Roll the projection back so the persisted rule keeps firing.
		if old.Enabled {
			s.materialize(old)
		}
		return Schedule{}, err
	}
	s.all = next

	if sc.Enabled {
		s.materialize(sc)
	}
	s.log.Info("schedule updated", logx.String("id", sc.ID))
	return sc, nil
}

// Delete unregisters the schedule's jobs first, then removes the record.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrNotFound
	}
	old := s.all[idx]

	s.unmaterialize(old)

	next := append([]Schedule(nil), s.all[:idx]...)
	next = append(next, s.all[idx+1:]...)
	if err := s.persistLocked(ctx, next); err != nil {
		if old.Enabled {
			s.materialize(old)
		}
		return err
	}
	s.all = next
	s.log.Info("schedule deleted", logx.String("id", id))
	return nil
}

// Toggle flips the enabled flag, adding or removing the materialized jobs
// without touching the record otherwise.
func (s *Store) Toggle(ctx context.Context, id string) (Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return Schedule{}, ErrNotFound
	}
	old := s.all[idx]

	sc := old
	sc.Enabled = !old.Enabled
	sc.UpdatedAt = time.Now()

	// Disabling: jobs go away before the record flips.
	if !sc.Enabled {
		s.unmaterialize(old)
	}

	next := append([]Schedule(nil), s.all...)
	next[idx] = sc
	if err := s.persistLocked(ctx, next); err != nil {
		if !sc.Enabled && old.Enabled {
			s.materialize(old)
		}
		return Schedule{}, err
	}
	s.all = next

	if sc.Enabled {
		s.materialize(sc)
	}
	s.log.Info("schedule toggled", logx.String("id", id), logx.Bool("enabled", sc.Enabled))
	return sc, nil
}

func (s *Store) indexLocked(id string) int {
	for i, sc := range s.all {
		if sc.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked(ctx context.Context, all []Schedule) error {
	records := make([]storage.ScheduleRecord, 0, len(all))
	for _, sc := range all {
		records = append(records, toRecord(sc))
	}
	if err := s.db.SaveSchedules(ctx, records); err != nil {
		return fmt.Errorf("persist schedules: %w", err)
	}
	return nil
}

// materialize registers one job per (time, weekday) pair.
func (s *Store) materialize(sc Schedule) {
	job := s.onJob
	if sc.Action == ActionOff {
		job = s.offJob
	}
	for _, wd := range sc.Weekdays {
		name := jobName(sc.ID, wd)
		if err := s.runner.AddWeekly(name, wd, sc.Hour, sc.Minute, job); err != nil {
			s.log.Error("job materialization failed",
				logx.String("id", sc.ID),
				logx.String("job", name),
				logx.Err(err))
		}
	}
}

func (s *Store) unmaterialize(sc Schedule) {
	for _, wd := range sc.Weekdays {
		s.runner.Remove(jobName(sc.ID, wd))
	}
}

func jobName(id string, wd time.Weekday) string {
	return fmt.Sprintf("schedule:%s:wd%d", id, int(wd))
}

func toRecord(sc Schedule) storage.ScheduleRecord {
	wd := make([]int, 0, len(sc.Weekdays))
	for _, d := range sc.Weekdays {
		wd = append(wd, int(d))
	}
	return storage.ScheduleRecord{
		ID:        sc.ID,
		Hour:      sc.Hour,
		Minute:    sc.Minute,
		Action:    string(sc.Action),
		Weekdays:  wd,
		Enabled:   sc.Enabled,
		CreatedAt: sc.CreatedAt,
		UpdatedAt: sc.UpdatedAt,
	}
}

func fromRecord(r storage.ScheduleRecord) Schedule {
	wd := make([]time.Weekday, 0, len(r.Weekdays))
	for _, d := range r.Weekdays {
		wd = append(wd, time.Weekday(d))
	}
	return Schedule{
		ID:        r.ID,
		Hour:      r.Hour,
		Minute:    r.Minute,
		Action:    Action(r.Action),
		Weekdays:  wd,
		Enabled:   r.Enabled,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
