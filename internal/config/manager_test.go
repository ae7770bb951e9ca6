package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadJSON(t *testing.T) {
	p := writeFile(t, "cfg.json", `{
		"link": {"interface": "ens1", "use_sudo": true},
		"timer": {"presets": [10, 20, 30], "stale_ceiling": "35m"},
		"storage": {"driver": "memory", "path": ""}
	}`)
	m := NewManager(p)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Link.Interface != "ens1" || !cfg.Link.UseSudo {
		t.Fatalf("link config not decoded: %+v", cfg.Link)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return the committed config")
	}
}

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, "cfg.yaml", `
link:
  interface: eth2
timer:
  presets: [10]
storage:
  driver: file
  path: /tmp/store
`)
	cfg, err := NewManager(p).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Link.Interface != "eth2" {
		t.Fatalf("interface = %q", cfg.Link.Interface)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	p := writeFile(t, "cfg.json", `{"link": {"interface": "ens1", "bogus": 1}}`)
	if _, err := NewManager(p).Load(); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestTrailingDataRejected(t *testing.T) {
	p := writeFile(t, "cfg.json", `{"link": {"interface": "ens1"}}{}`)
	if _, err := NewManager(p).Load(); err == nil {
		t.Fatal("expected trailing-data error")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing interface", func(c *Config) { c.Link.Interface = " " }},
		{"negative preset", func(c *Config) { c.Timer.Presets = []int{-5} }},
		{"ceiling under longest preset", func(c *Config) {
			c.Timer.Presets = []int{40}
			c.Timer.StaleCeiling = "35m"
		}},
		{"bad timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "redis" }},
		{"http enabled without addr", func(c *Config) {
			c.HTTP.Enabled = true
			c.HTTP.Addr = ""
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
