package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "iptvctl/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "store")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSchedulesRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	all, err := st.LoadSchedules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("fresh store has %d schedules", len(all))
	}

	now := time.Now().Truncate(time.Second)
	in := []ScheduleRecord{
		{ID: "a", Hour: 18, Minute: 30, Action: "on", Weekdays: []int{1, 3}, Enabled: true, CreatedAt: now, UpdatedAt: now},
		{ID: "b", Hour: 23, Minute: 0, Action: "off", Weekdays: []int{0}, CreatedAt: now, UpdatedAt: now},
	}
	if err := st.SaveSchedules(ctx, in); err != nil {
		t.Fatal(err)
	}

	got, err := st.LoadSchedules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].Action != "off" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got[0].Weekdays) != 2 || got[0].Weekdays[1] != 3 {
		t.Fatalf("weekdays mismatch: %v", got[0].Weekdays)
	}
}

func TestSaveReplacesWholeCollection(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.SaveSchedules(ctx, []ScheduleRecord{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveSchedules(ctx, []ScheduleRecord{{ID: "c"}}); err != nil {
		t.Fatal(err)
	}
	got, err := st.LoadSchedules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("expected only the replacement collection, got %+v", got)
	}
}

func TestHistoryAppendAndList(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 20, 0, 0, 0, time.Local)
	for i, m := range []int{10, 20} {
		r := HistoryRecord{At: base.Add(time.Duration(i) * time.Hour), Minutes: m, Note: "timed-on"}
		if err := st.AppendHistory(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := st.ListHistory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Minutes != 10 || got[1].Minutes != 20 {
		t.Fatalf("history mismatch: %+v", got)
	}
}

func TestListHistorySkipsTornLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.AppendHistory(ctx, HistoryRecord{At: time.Now(), Minutes: 30}); err != nil {
		t.Fatal(err)
	}

	// Simulate a crash mid-append: a truncated trailing line.
	f, err := os.OpenFile(filepath.Join(dir, "store.history.jsonl"), os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"at":"2026-04-01T2`); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	got, err := st.ListHistory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Minutes != 30 {
		t.Fatalf("expected the intact entry only, got %+v", got)
	}
}

func TestAuditAppend(t *testing.T) {
	st := openTestStore(t)
	e := AuditEntry{At: time.Now(), Source: "schedule", Action: "down", Outcome: "suppressed"}
	if err := st.AppendAudit(context.Background(), e); err != nil {
		t.Fatal(err)
	}
}

func TestUnknownDriverRejected(t *testing.T) {
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected unknown driver error")
	}
}
