package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration fields stay strings in the file so JSON and YAML read the same
// ("10s", "35m"). Validate checks every one of them up front; the accessors
// below assume a validated config and substitute the documented default when
// a field is empty.

// Timeout bounds every `ip` invocation.
func (l LinkConfig) Timeout() time.Duration {
	return durationOr(l.CommandTimeout, 10*time.Second)
}

// Ceiling is how long a liveness marker suppresses scheduled shutdowns.
func (t TimerConfig) Ceiling() time.Duration {
	return durationOr(t.StaleCeiling, 35*time.Minute)
}

// JobTimeout bounds a single scheduled job run.
func (s SchedulerConfig) JobTimeout() time.Duration {
	return durationOr(s.DefaultTimeout, 30*time.Second)
}

// SQLiteBusyTimeout is the sqlite busy handler budget; zero means the
// driver default.
func (s StorageConfig) SQLiteBusyTimeout() time.Duration {
	return durationOr(s.BusyTimeout, 0)
}

// Timeouts returns the HTTP server's read, write and idle timeouts. Zero
// values let the server pick its own defaults.
func (h HTTPConfig) Timeouts() (read, write, idle time.Duration) {
	return durationOr(h.ReadTimeout, 0), durationOr(h.WriteTimeout, 0), durationOr(h.IdleTimeout, 0)
}

func durationOr(raw string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// checkDuration is the Validate-side counterpart: empty is fine, anything
// else must parse as a non-negative Go duration.
func checkDuration(path, raw string) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return fmt.Errorf("%s: duration must be >= 0", path)
	}
	return nil
}
