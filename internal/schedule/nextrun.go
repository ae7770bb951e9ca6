package schedule

import "time"

// nextRunWindow bounds the forward scan: every weekday repeats within 7
// days, the extra day covers a fire time earlier today.
const nextRunWindow = 8

// NextRun searches forward from `from` for the schedule's next fire time,
// wrapping into next week when nothing remains this week. Display-only; the
// job runner is the source of truth for actual firing.
func NextRun(s Schedule, from time.Time) (time.Time, bool) {
	if len(s.Weekdays) == 0 {
		return time.Time{}, false
	}
	days := map[time.Weekday]bool{}
	for _, d := range s.Weekdays {
		days[d] = true
	}

	for i := 0; i < nextRunWindow; i++ {
		day := from.AddDate(0, 0, i)
		if !days[day.Weekday()] {
			continue
		}
		run := time.Date(day.Year(), day.Month(), day.Day(), s.Hour, s.Minute, 0, 0, from.Location())
		if run.After(from) {
			return run, true
		}
	}
	return time.Time{}, false
}
