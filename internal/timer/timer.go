// Package timer implements the user-armed "stay on for N minutes" session.
//
// At most one session exists at a time. Arming turns the link up, persists a
// liveness marker, records a watch-history entry immediately (intent, not
// completion) and schedules the deferred shutdown. Re-arming replaces the
// session: the previous deferred shutdown is canceled so exactly one off
// fires per active session.
package timer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"iptvctl/internal/eventbus"
	logx "iptvctl/pkg/logx"
)

var ErrInvalidMinutes = errors.New("timer duration not in allowed presets")

// Switch is the slice of the link controller the timer needs.
type Switch interface {
	Up(ctx context.Context, source string) error
	Down(ctx context.Context, source string) error
}

// Recorder appends a watch-history entry when a session is armed.
type Recorder interface {
	RecordArm(ctx context.Context, at time.Time, minutes int) error
}

// Config controls the manual timer.
type Config struct {
	// Presets are the selectable session lengths in minutes.
	Presets []int
	// OffTimeout bounds the deferred shutdown's link command.
	OffTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if len(c.Presets) == 0 {
		c.Presets = []int{10, 20, 30}
	}
	if c.OffTimeout <= 0 {
		c.OffTimeout = 30 * time.Second
	}
	return c
}

// Service owns the singleton session state.
type Service struct {
	cfg    Config
	sw     Switch
	marker Marker
	rec    Recorder
	bus    eventbus.Bus
	log    logx.Logger

	// Injectable time source and timer factory for simulated-time tests.
	now   func() time.Time
	after func(d time.Duration, fn func()) func() bool

	mu       sync.Mutex
	stop     func() bool // cancels the pending deferred off
	ver      uint64      // bumped on every arm/cancel; stale callbacks no-op
	armedAt  time.Time
	duration time.Duration
}

func New(cfg Config, sw Switch, marker Marker, rec Recorder, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg.withDefaults(),
		sw:     sw,
		marker: marker,
		rec:    rec,
		bus:    bus,
		log:    log,
		now:    time.Now,
		after: func(d time.Duration, fn func()) func() bool {
			t := time.AfterFunc(d, fn)
			return t.Stop
		},
	}
}

// Presets returns the selectable session lengths.
func (s *Service) Presets() []int {
	out := make([]int, len(s.cfg.Presets))
	copy(out, s.cfg.Presets)
	return out
}

// Arm starts (or replaces) a session of the given length.
func (s *Service) Arm(ctx context.Context, minutes int) error {
	if !s.allowed(minutes) {
		return fmt.Errorf("%w: %d", ErrInvalidMinutes, minutes)
	}

	// Retire the previous session before any side effect runs. The version
	// bump makes a deferred off that fires from here on a no-op, so the old
	// session cannot shut the link down or clear the marker mid-re-arm.
	s.mu.Lock()
	if s.stop != nil {
		// New arm wins; the old deferred off must never fire.
		_ = s.stop()
	}
	s.ver++
	ver := s.ver
	s.stop = nil
	s.armedAt = time.Time{}
	s.duration = 0
	s.mu.Unlock()

	// A failed command must not leave a phantom session behind.
	if err := s.sw.Up(ctx, "timer"); err != nil {
		return err
	}

	now := s.now()
	d := time.Duration(minutes) * time.Minute

	s.mu.Lock()
	if s.ver != ver {
		// A concurrent arm or cancel superseded this one while the link
		// was coming up; its state wins.
		s.mu.Unlock()
		return nil
	}
	if err := s.marker.Create(now); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("write liveness marker: %w", err)
	}
	s.armedAt = now
	s.duration = d
	s.stop = s.after(d, func() { s.expire(ver) })
	s.mu.Unlock()

	// Log-on-intent: the history entry is written at arm time.
	if s.rec != nil {
		if err := s.rec.RecordArm(ctx, now, minutes); err != nil {
			s.log.Warn("history append failed", logx.Err(err))
		}
	}

	s.log.Info("manual timer armed", logx.Int("minutes", minutes), logx.Time("off_at", now.Add(d)))
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeTimerArmed, Data: minutes})
	}
	return nil
}

// Cancel stops the pending shutdown and clears the marker.
// It reports whether a session was actually canceled.
func (s *Service) Cancel(ctx context.Context) bool {
	_ = ctx
	s.mu.Lock()
	active := s.stop != nil
	if active {
		_ = s.stop()
	}
	s.ver++
	s.stop = nil
	s.armedAt = time.Time{}
	s.duration = 0
	// Clear under the lock so a racing arm cannot lose its fresh marker.
	if err := s.marker.Clear(); err != nil {
		s.log.Warn("marker clear failed", logx.Err(err))
	}
	s.mu.Unlock()

	if active {
		s.log.Info("manual timer canceled")
	}
	return active
}

// Remaining reports time left in the active session.
func (s *Service) Remaining(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return 0, false
	}
	left := s.armedAt.Add(s.duration).Sub(now)
	if left < 0 {
		left = 0
	}
	return left, true
}

// OffAt reports when the deferred shutdown will fire.
func (s *Service) OffAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return time.Time{}, false
	}
	return s.armedAt.Add(s.duration), true
}

// expire is the deferred off-action. A session's own expiry is authoritative:
// it never consults the conflict resolver.
func (s *Service) expire(ver uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.OffTimeout)
	defer cancel()

	s.mu.Lock()
	if ver != s.ver {
		// Replaced or canceled after this callback was scheduled.
		s.mu.Unlock()
		return
	}
	s.stop = nil
	s.armedAt = time.Time{}
	s.duration = 0

	// The shutdown runs under the lock so a racing re-arm is ordered
	// strictly after it and can never be undone by this callback.
	if err := s.sw.Down(ctx, "timer"); err != nil {
		s.log.Error("deferred shutdown failed", logx.Err(err))
	}
	if err := s.marker.Clear(); err != nil {
		s.log.Warn("marker clear failed", logx.Err(err))
	}
	s.mu.Unlock()

	s.log.Info("manual timer expired")
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeTimerExpired})
	}
}

func (s *Service) allowed(minutes int) bool {
	for _, p := range s.cfg.Presets {
		if p == minutes {
			return true
		}
	}
	return false
}
