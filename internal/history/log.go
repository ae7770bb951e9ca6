// Package history is the append-only watch log: one entry per armed manual
// session, recorded at arm time. Entries are never rewritten; reporting is
// computed at query time.
package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"iptvctl/internal/storage"
	logx "iptvctl/pkg/logx"
)

// PageSize is the fixed page length of the history surface.
const PageSize = 5

// Entry is one watch-history record.
type Entry struct {
	At      time.Time `json:"at"`
	Minutes int       `json:"minutes"`
	Note    string    `json:"note"`
}

// Page is one page of entries, most recent first.
type Page struct {
	Entries    []Entry `json:"entries"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
	Total      int     `json:"total"`
}

// Aggregate summarizes the filtered set: how many sessions and how many
// minutes were requested in total.
type Aggregate struct {
	Count        int `json:"count"`
	TotalMinutes int `json:"total_minutes"`
}

// Log appends and queries watch-history entries through the storage layer.
type Log struct {
	store storage.Store
	log   logx.Logger
}

func NewLog(store storage.Store, log logx.Logger) *Log {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Log{store: store, log: log}
}

// RecordArm appends an entry for a freshly armed session. Called at arm
// time, before the session runs to completion.
func (l *Log) RecordArm(ctx context.Context, at time.Time, minutes int) error {
	r := storage.HistoryRecord{
		At:      at,
		Minutes: minutes,
		Note:    fmt.Sprintf("timed-on for %d minutes", minutes),
	}
	if err := l.store.AppendHistory(ctx, r); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Query returns one page of entries plus the aggregate over the whole
// filtered set.
//
// With a date, only entries on that local calendar day are returned; without
// one, all days are in scope. Ordering is most-recent-first. page is
// 1-based and clamped into range.
func (l *Log) Query(ctx context.Context, date *time.Time, page int) (Page, Aggregate, error) {
	records, err := l.store.ListHistory(ctx)
	if err != nil {
		return Page{}, Aggregate{}, fmt.Errorf("list history: %w", err)
	}

	filtered := make([]Entry, 0, len(records))
	var agg Aggregate
	for _, r := range records {
		if date != nil && !sameLocalDay(r.At, *date) {
			continue
		}
		filtered = append(filtered, Entry{At: r.At, Minutes: r.Minutes, Note: r.Note})
		agg.Count++
		agg.TotalMinutes += r.Minutes
	}

	// Arrival order is oldest-first; the surface shows most recent first.
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].At.After(filtered[j].At)
	})

	total := len(filtered)
	totalPages := (total + PageSize - 1) / PageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * PageSize
	end := start + PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page{
		Entries:    filtered[start:end],
		Page:       page,
		PageSize:   PageSize,
		TotalPages: totalPages,
		Total:      total,
	}, agg, nil
}

// sameLocalDay buckets by the local calendar day of the timestamp.
func sameLocalDay(a, b time.Time) bool {
	al, bl := a.Local(), b.Local()
	ay, am, ad := al.Date()
	by, bm, bd := bl.Date()
	return ay == by && am == bm && ad == bd
}
