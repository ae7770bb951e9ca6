package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate rejects configurations that cannot work before anything commits
// or publishes them.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Link.Interface) == "" {
		return fmt.Errorf("link.interface is required")
	}
	if err := checkDuration("link.command_timeout", c.Link.CommandTimeout); err != nil {
		return err
	}

	for _, p := range c.Timer.Presets {
		if p <= 0 {
			return fmt.Errorf("timer.presets: %d is not a positive minute count", p)
		}
	}
	if err := checkDuration("timer.stale_ceiling", c.Timer.StaleCeiling); err != nil {
		return err
	}
	ceiling := c.Timer.Ceiling()
	for _, p := range c.Timer.Presets {
		if time.Duration(p)*time.Minute >= ceiling {
			return fmt.Errorf("timer.stale_ceiling %s must exceed the longest preset (%dm)", ceiling, p)
		}
	}

	if err := checkDuration("scheduler.default_timeout", c.Scheduler.DefaultTimeout); err != nil {
		return err
	}
	if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: %w", err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "file", "sqlite", "sqlite3", "memory":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if err := checkDuration("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}

	if c.HTTP.Enabled && strings.TrimSpace(c.HTTP.Addr) == "" {
		return fmt.Errorf("http.addr is required when http is enabled")
	}
	for path, raw := range map[string]string{
		"http.read_timeout":  c.HTTP.ReadTimeout,
		"http.write_timeout": c.HTTP.WriteTimeout,
		"http.idle_timeout":  c.HTTP.IdleTimeout,
	} {
		if err := checkDuration(path, raw); err != nil {
			return err
		}
	}
	return nil
}
