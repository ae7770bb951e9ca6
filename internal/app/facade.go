package app

import (
	"context"
	"time"

	"iptvctl/internal/history"
	"iptvctl/internal/schedule"
)

// Status is the combined view of the link, the manual timer, the next
// schedule fires and the job runner. JSON tags serve the HTTP surface
// directly.
type Status struct {
	Interface string `json:"interface"`
	LinkState string `json:"link_state"` // "up" | "down" | "unknown"
	Raw       string `json:"raw,omitempty"`

	TimerActive    bool          `json:"timer_active"`
	TimerRemaining time.Duration `json:"-"`
	TimerOffAt     time.Time     `json:"timer_off_at,omitzero"`
	// RemainingSeconds is TimerRemaining in whole seconds for serialization.
	RemainingSeconds int `json:"timer_remaining_seconds,omitempty"`

	NextOn  time.Time `json:"next_on,omitzero"`
	NextOff time.Time `json:"next_off,omitzero"`

	SchedulerOn bool        `json:"scheduler_on"`
	Jobs        []JobStatus `json:"jobs,omitempty"`
}

// JobStatus is one registered runner job with its fire times, straight from
// the runner's own entry table.
type JobStatus struct {
	Name string    `json:"name"`
	Next time.Time `json:"next,omitzero"`
	Last time.Time `json:"last,omitzero"`
}

// TurnOn brings the link up immediately. Manual, no resolver involved.
func (a *App) TurnOn(ctx context.Context) error {
	return a.link.Up(ctx, "manual")
}

// TurnOff brings the link down immediately. A manual off ends any active
// timed session; its deferred shutdown must not fire afterwards.
func (a *App) TurnOff(ctx context.Context) error {
	a.timer.Cancel(ctx)
	return a.link.Down(ctx, "manual")
}

// ArmTimer starts (or replaces) a timed-on session.
func (a *App) ArmTimer(ctx context.Context, minutes int) error {
	return a.timer.Arm(ctx, minutes)
}

// CancelTimer stops the active session without touching the link. Reports
// whether a session was active.
func (a *App) CancelTimer(ctx context.Context) bool {
	return a.timer.Cancel(ctx)
}

// TimerPresets returns the selectable session lengths in minutes.
func (a *App) TimerPresets() []int { return a.timer.Presets() }

// Status reads the link and assembles the status surface. A probe failure
// degrades LinkState to "unknown" instead of failing the whole call.
func (a *App) Status(ctx context.Context) Status {
	now := time.Now()
	st := Status{Interface: a.link.Interface()}

	if ls, err := a.link.State(ctx); err != nil {
		st.LinkState = "unknown"
	} else {
		st.LinkState = ls.String()
	}
	if raw, err := a.link.Show(ctx); err == nil {
		st.Raw = raw
	}

	if left, ok := a.timer.Remaining(now); ok {
		st.TimerActive = true
		st.TimerRemaining = left
		st.RemainingSeconds = int(left / time.Second)
		if at, ok := a.timer.OffAt(); ok {
			st.TimerOffAt = at
		}
	}

	if at, ok := a.schedules.NextByAction(now, schedule.ActionOn); ok {
		st.NextOn = at
	}
	if at, ok := a.schedules.NextByAction(now, schedule.ActionOff); ok {
		st.NextOff = at
	}

	snap := a.sched.Snapshot()
	st.SchedulerOn = snap.Enabled
	for _, j := range snap.Jobs {
		st.Jobs = append(st.Jobs, JobStatus{Name: j.Name, Next: j.Next, Last: j.Prev})
	}
	return st
}

// History returns one page of the watch log plus the aggregate over the
// filtered set. date filters to one local calendar day; nil means all days.
func (a *App) History(ctx context.Context, date *time.Time, page int) (history.Page, history.Aggregate, error) {
	return a.hist.Query(ctx, date, page)
}

// Schedules lists all rules sorted by next fire time, disabled rules last.
func (a *App) Schedules() []schedule.Annotated {
	return a.schedules.List(time.Now())
}

func (a *App) GetSchedule(id string) (schedule.Schedule, error) {
	return a.schedules.Get(id)
}

func (a *App) CreateSchedule(ctx context.Context, in schedule.Input) (schedule.Schedule, error) {
	return a.schedules.Create(ctx, in)
}

func (a *App) UpdateSchedule(ctx context.Context, id string, in schedule.Input) (schedule.Schedule, error) {
	return a.schedules.Update(ctx, id, in)
}

func (a *App) DeleteSchedule(ctx context.Context, id string) error {
	return a.schedules.Delete(ctx, id)
}

func (a *App) ToggleSchedule(ctx context.Context, id string) (schedule.Schedule, error) {
	return a.schedules.Toggle(ctx, id)
}
