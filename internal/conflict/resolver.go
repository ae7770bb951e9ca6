// Package conflict decides whether a schedule-driven shutdown may proceed
// while a manual session appears to be active.
//
// Only schedule-driven OFF actions consult the resolver. Manual clicks and
// the timer's own expiry are authoritative and bypass it.
package conflict

import (
	"sync"
	"time"

	"iptvctl/internal/eventbus"
	"iptvctl/internal/timer"
	logx "iptvctl/pkg/logx"
)

// DefaultStaleCeiling must exceed the longest selectable manual session so a
// live session is never cut short by a schedule.
const DefaultStaleCeiling = 35 * time.Minute

// SkipEvent is published when a scheduled shutdown is suppressed.
type SkipEvent struct {
	MarkerAge time.Duration
	Ceiling   time.Duration
}

// Resolver consults the manual timer's liveness marker.
//
// The ceiling is a fixed constant decoupled from the requested session
// length: a 10-minute and a 30-minute session look identical here until the
// ceiling elapses. Markers older than the ceiling belong to a crashed or
// abandoned session and do not block the shutdown; they are left in place
// for the timer to clean up on its next run.
type Resolver struct {
	marker timer.Marker
	bus    eventbus.Bus
	log    logx.Logger
	now    func() time.Time

	mu      sync.Mutex
	ceiling time.Duration
}

func NewResolver(marker timer.Marker, ceiling time.Duration, bus eventbus.Bus, log logx.Logger) *Resolver {
	if ceiling <= 0 {
		ceiling = DefaultStaleCeiling
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Resolver{marker: marker, ceiling: ceiling, bus: bus, log: log, now: time.Now}
}

// SetCeiling swaps the staleness ceiling at runtime (config reload).
func (r *Resolver) SetCeiling(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.ceiling = d
	r.mu.Unlock()
}

// ShouldProceed reports whether the scheduled shutdown may run.
//
// Boundary: age == ceiling counts as stale, so the shutdown proceeds.
// A marker read error fails open: a broken marker must not pin the link up
// forever.
func (r *Resolver) ShouldProceed() bool {
	r.mu.Lock()
	ceiling := r.ceiling
	r.mu.Unlock()

	now := r.now()
	age, ok, err := r.marker.Age(now)
	if err != nil {
		r.log.Warn("marker read failed; allowing scheduled shutdown", logx.Err(err))
		return true
	}
	if !ok {
		return true
	}
	if age < ceiling {
		// Normal outcome, not an error: a manual session is still live.
		r.log.Info("scheduled shutdown suppressed by manual session",
			logx.Duration("marker_age", age),
			logx.Duration("ceiling", ceiling))
		if r.bus != nil {
			r.bus.Publish(eventbus.Event{
				Type: eventbus.TypeOffSuppressed,
				Data: SkipEvent{MarkerAge: age, Ceiling: ceiling},
			})
		}
		return false
	}

	r.log.Debug("stale manual marker ignored",
		logx.Duration("marker_age", age),
		logx.Duration("ceiling", ceiling))
	return true
}
