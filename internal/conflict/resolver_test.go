package conflict

import (
	"errors"
	"testing"
	"time"

	"iptvctl/internal/timer"
	logx "iptvctl/pkg/logx"
)

func newResolverAt(t *testing.T, marker timer.Marker, ceiling time.Duration, now time.Time) *Resolver {
	t.Helper()
	r := NewResolver(marker, ceiling, nil, logx.Nop())
	r.now = func() time.Time { return now }
	return r
}

func TestShouldProceedAroundCeiling(t *testing.T) {
	t.Parallel()
	const ceiling = 30 * time.Minute
	created := time.Date(2026, 3, 2, 21, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "fresh marker", at: created.Add(time.Minute), want: false},
		{name: "just under ceiling", at: created.Add(ceiling - time.Minute), want: false},
		{name: "exactly at ceiling", at: created.Add(ceiling), want: true},
		{name: "just past ceiling", at: created.Add(ceiling + time.Minute), want: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			m := timer.NewMemMarker()
			if err := m.Create(created); err != nil {
				t.Fatal(err)
			}
			r := newResolverAt(t, m, ceiling, tt.at)
			if got := r.ShouldProceed(); got != tt.want {
				t.Fatalf("ShouldProceed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldProceedWithoutMarker(t *testing.T) {
	t.Parallel()
	r := newResolverAt(t, timer.NewMemMarker(), 30*time.Minute, time.Now())
	if !r.ShouldProceed() {
		t.Fatal("no marker must allow the shutdown")
	}
}

func TestStaleMarkerIsNotDeleted(t *testing.T) {
	t.Parallel()
	m := timer.NewMemMarker()
	created := time.Now().Add(-2 * time.Hour)
	if err := m.Create(created); err != nil {
		t.Fatal(err)
	}
	r := newResolverAt(t, m, 30*time.Minute, time.Now())
	if !r.ShouldProceed() {
		t.Fatal("stale marker must allow the shutdown")
	}
	// Cleanup is the timer's job, not the resolver's.
	if _, ok, _ := m.Age(time.Now()); !ok {
		t.Fatal("resolver deleted the stale marker")
	}
}

type failingMarker struct{}

func (failingMarker) Create(time.Time) error { return nil }
func (failingMarker) Clear() error           { return nil }
func (failingMarker) Age(time.Time) (time.Duration, bool, error) {
	return 0, false, errors.New("io error")
}

func TestMarkerErrorFailsOpen(t *testing.T) {
	t.Parallel()
	r := newResolverAt(t, failingMarker{}, 30*time.Minute, time.Now())
	if !r.ShouldProceed() {
		t.Fatal("marker read error must not block the shutdown")
	}
}

func TestSetCeilingApplies(t *testing.T) {
	t.Parallel()
	m := timer.NewMemMarker()
	now := time.Now()
	if err := m.Create(now.Add(-20 * time.Minute)); err != nil {
		t.Fatal(err)
	}
	r := newResolverAt(t, m, 30*time.Minute, now)
	if r.ShouldProceed() {
		t.Fatal("marker younger than ceiling must suppress")
	}
	r.SetCeiling(10 * time.Minute)
	if !r.ShouldProceed() {
		t.Fatal("lowered ceiling must make the marker stale")
	}
}
