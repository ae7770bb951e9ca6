package config

// Config is the daemon configuration. JSON and YAML are both accepted;
// unknown fields are rejected.
//
// All durations are Go duration strings (e.g. "10s", "30m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Link      LinkConfig      `json:"link"`
	Timer     TimerConfig     `json:"timer"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Storage   StorageConfig   `json:"storage"`
	HTTP      HTTPConfig      `json:"http"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LinkConfig names the IPTV interface and how to reach it.
type LinkConfig struct {
	Interface string `json:"interface"`
	UseSudo   bool   `json:"use_sudo,omitempty"`
	// CommandTimeout bounds every `ip` invocation. Default "10s".
	CommandTimeout string `json:"command_timeout,omitempty"`
}

// TimerConfig controls the manual "stay on for N minutes" sessions.
type TimerConfig struct {
	// Presets are the selectable session lengths in minutes.
	Presets []int `json:"presets,omitempty"`
	// MarkerPath backs the liveness marker file.
	MarkerPath string `json:"marker_path,omitempty"`
	// StaleCeiling is how long a marker suppresses scheduled shutdowns.
	// Must exceed the longest preset. Default "35m".
	StaleCeiling string `json:"stale_ceiling,omitempty"`
}

// SchedulerConfig controls the job runner.
type SchedulerConfig struct {
	// Enabled is a pointer so an omitted field defaults to true.
	Enabled        *bool  `json:"enabled,omitempty"`
	Workers        int    `json:"workers,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
	DefaultTimeout string `json:"default_timeout,omitempty"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./iptvctl_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// HTTPConfig controls the thin web API.
type HTTPConfig struct {
	Enabled    bool   `json:"enabled"`
	Addr       string `json:"addr,omitempty"` // default "127.0.0.1:8080"
	RatePerSec int    `json:"rate_per_sec,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

func (c *SchedulerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Default returns a runnable configuration for a root daemon on a host with
// an ens1 IPTV interface.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Console: true},
		Link:    LinkConfig{Interface: "ens1"},
		Timer: TimerConfig{
			Presets:      []int{10, 20, 30},
			MarkerPath:   "/tmp/iptv_manual_timer",
			StaleCeiling: "35m",
		},
		Scheduler: SchedulerConfig{Workers: 2},
		Storage:   StorageConfig{Driver: "file", Path: "./iptvctl_store"},
		HTTP:      HTTPConfig{Enabled: true, Addr: "127.0.0.1:8080", RatePerSec: 10},
	}
}
