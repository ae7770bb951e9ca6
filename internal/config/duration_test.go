package config

import (
	"testing"
	"time"
)

func TestDurationAccessors(t *testing.T) {
	t.Parallel()

	// Empty fields fall back to the documented defaults.
	var cfg Config
	if got := cfg.Link.Timeout(); got != 10*time.Second {
		t.Fatalf("Link.Timeout() = %v, want 10s", got)
	}
	if got := cfg.Timer.Ceiling(); got != 35*time.Minute {
		t.Fatalf("Timer.Ceiling() = %v, want 35m", got)
	}
	if got := cfg.Scheduler.JobTimeout(); got != 30*time.Second {
		t.Fatalf("Scheduler.JobTimeout() = %v, want 30s", got)
	}
	if got := cfg.Storage.SQLiteBusyTimeout(); got != 0 {
		t.Fatalf("Storage.SQLiteBusyTimeout() = %v, want 0", got)
	}

	// Set fields override the defaults.
	cfg.Link.CommandTimeout = "3s"
	cfg.Timer.StaleCeiling = "1h"
	cfg.Scheduler.DefaultTimeout = " 45s "
	cfg.Storage.BusyTimeout = "5s"
	cfg.HTTP.ReadTimeout = "15s"
	cfg.HTTP.IdleTimeout = "2m"

	if got := cfg.Link.Timeout(); got != 3*time.Second {
		t.Fatalf("Link.Timeout() = %v, want 3s", got)
	}
	if got := cfg.Timer.Ceiling(); got != time.Hour {
		t.Fatalf("Timer.Ceiling() = %v, want 1h", got)
	}
	if got := cfg.Scheduler.JobTimeout(); got != 45*time.Second {
		t.Fatalf("Scheduler.JobTimeout() = %v, want 45s", got)
	}
	if got := cfg.Storage.SQLiteBusyTimeout(); got != 5*time.Second {
		t.Fatalf("Storage.SQLiteBusyTimeout() = %v, want 5s", got)
	}
	read, write, idle := cfg.HTTP.Timeouts()
	if read != 15*time.Second || write != 0 || idle != 2*time.Minute {
		t.Fatalf("HTTP.Timeouts() = %v/%v/%v", read, write, idle)
	}
}

func TestCheckDuration(t *testing.T) {
	t.Parallel()
	if err := checkDuration("x", ""); err != nil {
		t.Fatalf("empty: %v", err)
	}
	if err := checkDuration("x", "10s"); err != nil {
		t.Fatalf("valid: %v", err)
	}
	if err := checkDuration("x", "soon"); err == nil {
		t.Fatal("garbage accepted")
	}
	if err := checkDuration("x", "-5s"); err == nil {
		t.Fatal("negative accepted")
	}
}
