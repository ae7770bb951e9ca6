package history

import (
	"context"
	"testing"
	"time"

	"iptvctl/internal/storage"
	logx "iptvctl/pkg/logx"
)

func mustRecord(t *testing.T, l *Log, at time.Time, minutes int) {
	t.Helper()
	if err := l.RecordArm(context.Background(), at, minutes); err != nil {
		t.Fatalf("RecordArm: %v", err)
	}
}

func TestDailyAggregate(t *testing.T) {
	t.Parallel()
	l := NewLog(storage.NewMemory(), logx.Nop())
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)

	// Two sessions on the target day, one more the next morning.
	mustRecord(t, l, day.Add(10*time.Hour), 10)
	mustRecord(t, l, day.Add(10*time.Hour+30*time.Minute), 20)
	mustRecord(t, l, day.AddDate(0, 0, 1).Add(9*time.Hour), 30)

	page, agg, err := l.Query(context.Background(), &day, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if agg.Count != 2 {
		t.Fatalf("Count = %d, want 2", agg.Count)
	}
	if agg.TotalMinutes != 30 {
		t.Fatalf("TotalMinutes = %d, want 30", agg.TotalMinutes)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(page.Entries))
	}
	// Most recent first.
	if !page.Entries[0].At.After(page.Entries[1].At) {
		t.Fatal("entries not ordered most-recent-first")
	}
}

func TestQueryAllDaysAndPagination(t *testing.T) {
	t.Parallel()
	l := NewLog(storage.NewMemory(), logx.Nop())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)

	for i := 0; i < 12; i++ {
		mustRecord(t, l, base.Add(time.Duration(i)*time.Hour), 10)
	}

	page, agg, err := l.Query(context.Background(), nil, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if agg.Count != 12 || agg.TotalMinutes != 120 {
		t.Fatalf("aggregate = %+v, want 12/120", agg)
	}
	if len(page.Entries) != PageSize {
		t.Fatalf("page length = %d, want %d", len(page.Entries), PageSize)
	}
	if page.TotalPages != 3 || page.Total != 12 {
		t.Fatalf("pagination metadata = %+v", page)
	}
	// Newest entry leads page 1.
	if !page.Entries[0].At.Equal(base.Add(11 * time.Hour)) {
		t.Fatalf("unexpected first entry: %v", page.Entries[0].At)
	}

	last, _, err := l.Query(context.Background(), nil, 3)
	if err != nil {
		t.Fatalf("Query page 3: %v", err)
	}
	if len(last.Entries) != 2 {
		t.Fatalf("last page length = %d, want 2", len(last.Entries))
	}

	// Out-of-range pages clamp instead of erroring.
	clamped, _, err := l.Query(context.Background(), nil, 99)
	if err != nil {
		t.Fatalf("Query page 99: %v", err)
	}
	if clamped.Page != 3 {
		t.Fatalf("clamped page = %d, want 3", clamped.Page)
	}
}

func TestQueryEmptyLog(t *testing.T) {
	t.Parallel()
	l := NewLog(storage.NewMemory(), logx.Nop())

	page, agg, err := l.Query(context.Background(), nil, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if agg.Count != 0 || agg.TotalMinutes != 0 {
		t.Fatalf("aggregate = %+v, want zero", agg)
	}
	if len(page.Entries) != 0 || page.TotalPages != 1 {
		t.Fatalf("page = %+v", page)
	}
}

func TestRecordArmNote(t *testing.T) {
	t.Parallel()
	l := NewLog(storage.NewMemory(), logx.Nop())
	at := time.Date(2026, 3, 2, 20, 0, 0, 0, time.Local)
	mustRecord(t, l, at, 20)

	page, _, err := l.Query(context.Background(), nil, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if page.Entries[0].Note != "timed-on for 20 minutes" {
		t.Fatalf("note = %q", page.Entries[0].Note)
	}
}
