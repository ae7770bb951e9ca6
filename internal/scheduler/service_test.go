package scheduler

import (
	"context"
	"testing"
	"time"

	logx "iptvctl/pkg/logx"
)

func TestWeeklySpec(t *testing.T) {
	t.Parallel()
	tests := []struct {
		weekday time.Weekday
		hour    int
		minute  int
		want    string
	}{
		{time.Sunday, 17, 0, "0 17 * * 0"},
		{time.Monday, 6, 30, "30 6 * * 1"},
		{time.Saturday, 23, 59, "59 23 * * 6"},
	}
	for _, tt := range tests {
		if got := weeklySpec(tt.weekday, tt.hour, tt.minute); got != tt.want {
			t.Fatalf("weeklySpec(%v, %d, %d) = %q, want %q", tt.weekday, tt.hour, tt.minute, got, tt.want)
		}
	}
}

func TestAddWeeklyValidatesTime(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop())
	nop := func(ctx context.Context) error { return nil }

	if err := s.AddWeekly("x", time.Monday, 24, 0, nop); err == nil {
		t.Fatal("expected error for hour 24")
	}
	if err := s.AddWeekly("x", time.Monday, 0, 60, nop); err == nil {
		t.Fatal("expected error for minute 60")
	}
	if err := s.AddWeekly("", time.Monday, 0, 0, nop); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestUpsertByNameReplacesDefinition(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop())
	nop := func(ctx context.Context) error { return nil }

	if err := s.AddWeekly("sched:1:wd1", time.Monday, 17, 0, nop); err != nil {
		t.Fatalf("AddWeekly: %v", err)
	}
	if err := s.AddWeekly("sched:1:wd1", time.Monday, 18, 30, nop); err != nil {
		t.Fatalf("AddWeekly replace: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Jobs) != 1 {
		t.Fatalf("expected 1 job after upsert, got %d", len(snap.Jobs))
	}
	if snap.Jobs[0].Spec != "30 18 * * 1" {
		t.Fatalf("spec = %q, want replacement", snap.Jobs[0].Spec)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop())
	nop := func(ctx context.Context) error { return nil }

	if err := s.AddWeekly("a", time.Tuesday, 8, 0, nop); err != nil {
		t.Fatal(err)
	}
	if !s.Remove("a") {
		t.Fatal("Remove returned false for existing job")
	}
	if s.Remove("a") {
		t.Fatal("Remove returned true for absent job")
	}
	if n := len(s.Snapshot().Jobs); n != 0 {
		t.Fatalf("expected empty runner, got %d jobs", n)
	}
}

func TestStartRegistersPendingDefs(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Workers: 1}, logx.Nop())
	nop := func(ctx context.Context) error { return nil }

	if err := s.AddWeekly("pending", time.Friday, 12, 0, nop); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop(context.Background())

	snap := s.Snapshot()
	if len(snap.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(snap.Jobs))
	}
	if snap.Jobs[0].Next.IsZero() {
		t.Fatal("expected a computed next fire time after Start")
	}
	if snap.Jobs[0].Next.Weekday() != time.Friday {
		t.Fatalf("next fire on %v, want Friday", snap.Jobs[0].Next.Weekday())
	}
}
