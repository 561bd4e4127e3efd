package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	d, err := cfg.Descriptor(cfg.Stations[0])
	if err != nil {
		t.Fatal(err)
	}
	if d.ShortName != "Chilbolton" || d.MinElevation != 10 || d.DefaultRequester.Name != "Duty Astronomer" {
		t.Fatalf("descriptor = %+v", d)
	}
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "triggerd.toml"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Bind != "127.0.0.1:9090" || cfg.Logging.Format != "json" {
		t.Fatalf("server/logging not applied: %+v %+v", cfg.Server, cfg.Logging)
	}
	if cfg.Trigger.Debug || cfg.Trigger.DurationSeconds != 1800 {
		t.Fatalf("trigger = %+v", cfg.Trigger)
	}
	// untouched sections keep their defaults
	if cfg.Trigger.RCUMode != 5 || cfg.Beams.FirstSubband != 220 || cfg.LCU.RCUs != "0:191" {
		t.Fatalf("defaults lost: %+v %+v", cfg.Trigger, cfg.Beams)
	}
	if len(cfg.Stations) != 2 {
		t.Fatalf("stations = %d, want the file's 2", len(cfg.Stations))
	}

	chil, err := cfg.Descriptor(cfg.Stations[0])
	if err != nil {
		t.Fatal(err)
	}
	if chil.Latitude != 51.145762 || len(chil.Recipients) != 2 || chil.Recipients[1].Email != "ops@example.org" {
		t.Fatalf("chilbolton = %+v", chil)
	}

	custom, err := cfg.Descriptor(cfg.Stations[1])
	if err != nil {
		t.Fatal(err)
	}
	if custom.Key() != "test" || custom.MinElevation != 20 || custom.DefaultAction != "OBSERVE" {
		t.Fatalf("custom = %+v", custom)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]func(*Config){
		"empty bind":         func(c *Config) { c.Server.Bind = "" },
		"zero duration":      func(c *Config) { c.Trigger.DurationSeconds = 0 },
		"no stations":        func(c *Config) { c.Stations = nil },
		"bad beams":          func(c *Config) { c.Beams.FirstSubband = 500 },
		"unknown probe":      func(c *Config) { c.Stations[0].Probe = "carrier-pigeon" },
		"bad static state":   func(c *Config) { c.Stations[0].StaticState = "maybe" },
		"lcu without host":   func(c *Config) { c.Stations[0].Probe = ProbeLCU },
		"email without smtp": func(c *Config) { c.Stations[0].Notifiers = []string{NotifyEmail} },
		"nats without url":   func(c *Config) { c.Stations[0].Notifiers = []string{NotifyNATS} },
		"no notifiers":       func(c *Config) { c.Stations[0].Notifiers = nil },
		"unknown contact":    func(c *Config) { c.Stations[0].DefaultRequester = "nobody" },
		"unknown builtin":    func(c *Config) { c.Stations[0].Builtin = "dwingeloo" },
		"duplicate":          func(c *Config) { c.Stations[1] = c.Stations[0] },
		"unknown calibrator": func(c *Config) { c.Trigger.Calibrators = []string{"CasA"} },
		"negative min elevation": func(c *Config) {
			v := -1.0
			c.Stations[0].MinElevation = &v
		},
		"bad latitude": func(c *Config) {
			c.Stations[0] = StationConfig{ShortName: "X", Latitude: 95, Probe: ProbeStatic, StaticState: "ok", Notifiers: []string{NotifyLog}}
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Stations = append([]StationConfig(nil), cfg.Stations...)
			mutate(&cfg)
			if err := validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCatalog(t *testing.T) {
	cfg := Default()
	cat, err := cfg.Catalog()
	if err != nil || len(cat) != 6 {
		t.Fatalf("default catalog = %v %v", cat.Names(), err)
	}

	cfg.Trigger.Calibrators = []string{"3C196", "3C380"}
	cat, err = cfg.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if got := cat.Names(); len(got) != 2 || got[0] != "3C196" {
		t.Fatalf("names = %v", got)
	}
}

func TestLoadZeroMinElevation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "horizon.toml")
	body := `
[[stations]]
builtin = "chilbolton"
min_elevation = 0
probe = "static"
static_state = "ok"
notifiers = ["log"]

[[stations]]
builtin = "nancay"
probe = "static"
static_state = "ok"
notifiers = ["log"]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	chil, err := cfg.Descriptor(cfg.Stations[0])
	if err != nil {
		t.Fatal(err)
	}
	if chil.MinElevation != 0 {
		t.Fatalf("chilbolton min elevation = %v, want 0", chil.MinElevation)
	}
	nancay, err := cfg.Descriptor(cfg.Stations[1])
	if err != nil {
		t.Fatal(err)
	}
	if nancay.MinElevation != 10 {
		t.Fatalf("nancay min elevation = %v, want the default 10", nancay.MinElevation)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[server\nbind = "), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parse") {
		t.Fatalf("err = %v", err)
	}
}
