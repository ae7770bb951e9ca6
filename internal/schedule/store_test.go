package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"iptvctl/internal/storage"
	logx "iptvctl/pkg/logx"
)

// fakeRunner records registrations and lets tests fire jobs by hand.
type fakeRunner struct {
	mu   sync.Mutex
	jobs map[string]func(ctx context.Context) error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{jobs: map[string]func(ctx context.Context) error{}}
}

func (f *fakeRunner) AddWeekly(name string, weekday time.Weekday, hour, minute int, job func(ctx context.Context) error) error {
	f.mu.Lock()
	f.jobs[name] = job
	f.mu.Unlock()
	return nil
}

func (f *fakeRunner) Remove(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.jobs[name]
	delete(f.jobs, name)
	return ok
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

// fireAll simulates the runner's clock passing every registered fire time.
func (f *fakeRunner) fireAll(ctx context.Context) {
	f.mu.Lock()
	jobs := make([]func(ctx context.Context) error, 0, len(f.jobs))
	for _, j := range f.jobs {
		jobs = append(jobs, j)
	}
	f.mu.Unlock()
	for _, j := range jobs {
		_ = j(ctx)
	}
}

type counters struct {
	mu   sync.Mutex
	ons  int
	offs int
}

func newTestStore(t *testing.T) (*Store, *fakeRunner, *counters) {
	t.Helper()
	fr := newFakeRunner()
	c := &counters{}
	on := func(ctx context.Context) error {
		c.mu.Lock()
		c.ons++
		c.mu.Unlock()
		return nil
	}
	off := func(ctx context.Context) error {
		c.mu.Lock()
		c.offs++
		c.mu.Unlock()
		return nil
	}
	return NewStore(storage.NewMemory(), fr, on, off, logx.Nop()), fr, c
}

func validInput() Input {
	return Input{Hour: 17, Minute: 0, Action: "off", Weekdays: []int{1, 2, 3, 4, 5}, Enabled: true}
}

func TestCreateRoundTrip(t *testing.T) {
	t.Parallel()
	s, fr, _ := newTestStore(t)
	ctx := context.Background()

	in := validInput()
	created, err := s.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("missing id")
	}

	list := s.List(time.Now())
	if len(list) != 1 {
		t.Fatalf("List = %d entries, want 1", len(list))
	}
	got := list[0]
	if got.Hour != in.Hour || got.Minute != in.Minute || string(got.Action) != in.Action || !got.Enabled {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if len(got.Weekdays) != 5 {
		t.Fatalf("weekdays = %v", got.Weekdays)
	}
	if got.NextRun.IsZero() || !got.NextRun.After(time.Now()) {
		t.Fatalf("NextRun = %v, want strictly in the future", got.NextRun)
	}
	// One job per (time, weekday) pair.
	if fr.count() != 5 {
		t.Fatalf("materialized %d jobs, want 5", fr.count())
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	s, fr, _ := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		mut  func(*Input)
	}{
		{name: "hour out of range", mut: func(in *Input) { in.Hour = 24 }},
		{name: "minute out of range", mut: func(in *Input) { in.Minute = 60 }},
		{name: "bad action", mut: func(in *Input) { in.Action = "reboot" }},
		{name: "empty weekdays", mut: func(in *Input) { in.Weekdays = nil }},
		{name: "weekday out of range", mut: func(in *Input) { in.Weekdays = []int{7} }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mut(&in)
			_, err := s.Create(ctx, in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
	// Rejected before any mutation: nothing persisted, nothing materialized.
	if len(s.List(time.Now())) != 0 || fr.count() != 0 {
		t.Fatal("invalid input caused side effects")
	}
}

func TestToggleDisableRemovesEffect(t *testing.T) {
	t.Parallel()
	s, fr, c := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	toggled, err := s.Toggle(ctx, created.ID)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if toggled.Enabled {
		t.Fatal("expected disabled after toggle")
	}
	if fr.count() != 0 {
		t.Fatalf("%d jobs still registered after disable", fr.count())
	}

	// Advancing past the fire time produces no link change.
	fr.fireAll(ctx)
	if c.offs != 0 {
		t.Fatalf("disabled schedule fired %d times", c.offs)
	}

	// Re-enable restores the jobs.
	again, err := s.Toggle(ctx, created.ID)
	if err != nil {
		t.Fatalf("Toggle back: %v", err)
	}
	if !again.Enabled || fr.count() != 5 {
		t.Fatalf("re-enable did not rematerialize: enabled=%v jobs=%d", again.Enabled, fr.count())
	}
}

func TestUpdateReplacesJobs(t *testing.T) {
	t.Parallel()
	s, fr, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	in := validInput()
	in.Hour = 23
	in.Weekdays = []int{0, 6}
	updated, err := s.Update(ctx, created.ID, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Hour != 23 || len(updated.Weekdays) != 2 {
		t.Fatalf("update not applied: %+v", updated)
	}
	if fr.count() != 2 {
		t.Fatalf("jobs = %d, want 2 (old weekday jobs removed)", fr.count())
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("CreatedAt changed on update")
	}
}

func TestDeleteUnknownID(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestStore(t)
	if err := s.Delete(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.Update(context.Background(), "nope", validInput()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.Toggle(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRemovesJobsAndRecord(t *testing.T) {
	t.Parallel()
	s, fr, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if fr.count() != 0 {
		t.Fatalf("jobs left after delete: %d", fr.count())
	}
	if len(s.List(time.Now())) != 0 {
		t.Fatal("record left after delete")
	}
	if _, err := s.Get(created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete: %v", err)
	}
}

func TestNextByAction(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	onIn := Input{Hour: 7, Minute: 0, Action: "on", Weekdays: []int{1, 2, 3, 4, 5}, Enabled: true}
	if _, err := s.Create(ctx, onIn); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, validInput()); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	nextOn, ok := s.NextByAction(now, ActionOn)
	if !ok || !nextOn.After(now) {
		t.Fatalf("next on = %v ok=%v", nextOn, ok)
	}
	nextOff, ok := s.NextByAction(now, ActionOff)
	if !ok || !nextOff.After(now) {
		t.Fatalf("next off = %v ok=%v", nextOff, ok)
	}
}

func TestLoadMaterializesEnabledOnly(t *testing.T) {
	t.Parallel()
	db := storage.NewMemory()
	ctx := context.Background()

	records := []storage.ScheduleRecord{
		{ID: "a", Hour: 7, Minute: 0, Action: "on", Weekdays: []int{1}, Enabled: true},
		{ID: "b", Hour: 22, Minute: 0, Action: "off", Weekdays: []int{1, 2}, Enabled: false},
	}
	if err := db.SaveSchedules(ctx, records); err != nil {
		t.Fatal(err)
	}

	fr := newFakeRunner()
	nop := func(ctx context.Context) error { return nil }
	s := NewStore(db, fr, nop, nop, logx.Nop())
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fr.count() != 1 {
		t.Fatalf("materialized %d jobs, want 1 (disabled schedule skipped)", fr.count())
	}
	if len(s.List(time.Now())) != 2 {
		t.Fatal("disabled schedule missing from list")
	}
}
