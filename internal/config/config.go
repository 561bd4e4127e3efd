// Package config handles loading, defaulting, and validation of the triggerd
// TOML configuration file. Every section maps to a typed struct so the rest
// of the codebase gets strong typing without manual key lookups.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/large-farva/fast-trigger/internal/beam"
	"github.com/large-farva/fast-trigger/internal/calibrator"
	"github.com/large-farva/fast-trigger/internal/station"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Logging  LoggingConfig            `toml:"logging"  json:"logging"`
	Server   ServerConfig             `toml:"server"   json:"server"`
	Demo     DemoConfig               `toml:"demo"     json:"demo"`
	Trigger  TriggerConfig            `toml:"trigger"  json:"trigger"`
	Beams    beam.Layout              `toml:"beams"    json:"beams"`
	SMTP     SMTPConfig               `toml:"smtp"     json:"smtp"`
	NATS     NATSConfig               `toml:"nats"     json:"nats"`
	Redis    RedisConfig              `toml:"redis"    json:"redis"`
	LCU      LCUConfig                `toml:"lcu"      json:"lcu"`
	Contacts map[string]ContactConfig `toml:"contacts" json:"contacts"`
	Stations []StationConfig          `toml:"stations" json:"stations"`
}

type LoggingConfig struct {
	Level  string `toml:"level"  json:"level"`
	Format string `toml:"format" json:"format"` // console or json
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

type DemoConfig struct {
	Enabled         bool  `toml:"enabled"          json:"enabled"`
	IntervalSeconds int   `toml:"interval_seconds" json:"interval_seconds"`
	Seed            int64 `toml:"seed"             json:"seed"`
}

type TriggerConfig struct {
	DurationSeconds    int    `toml:"duration_seconds"     json:"duration_seconds"`
	Debug              bool   `toml:"debug"                json:"debug"`
	CallTimeoutSeconds int    `toml:"call_timeout_seconds" json:"call_timeout_seconds"`
	AntennaSet         string `toml:"antenna_set"          json:"antenna_set"`
	RCUMode            int    `toml:"rcu_mode"             json:"rcu_mode"`
	QueueSize          int    `toml:"queue_size"           json:"queue_size"`

	// Calibrators restricts selection to these catalog names. Empty means
	// the full standard set.
	Calibrators []string `toml:"calibrators" json:"calibrators,omitempty"`
}

type SMTPConfig struct {
	Host     string `toml:"host"      json:"host"`
	Port     int    `toml:"port"      json:"port"`
	Username string `toml:"username"  json:"username"`
	Password string `toml:"password"  json:"-"`
	From     string `toml:"from"      json:"from"`
	FromName string `toml:"from_name" json:"from_name"`
}

type NATSConfig struct {
	URL            string `toml:"url"             json:"url"`
	SubjectPrefix  string `toml:"subject_prefix"  json:"subject_prefix"`
	TimeoutSeconds int    `toml:"timeout_seconds" json:"timeout_seconds"`
}

type RedisConfig struct {
	Addr      string `toml:"addr"       json:"addr"`
	Password  string `toml:"password"   json:"-"`
	DB        int    `toml:"db"         json:"db"`
	KeyPrefix string `toml:"key_prefix" json:"key_prefix"`
}

type LCUConfig struct {
	User               string `toml:"user"                 json:"user"`
	KeyFile            string `toml:"key_file"             json:"key_file"`
	KnownHostsFile     string `toml:"known_hosts_file"     json:"known_hosts_file"`
	DialTimeoutSeconds int    `toml:"dial_timeout_seconds" json:"dial_timeout_seconds"`
	RCUs               string `toml:"rcus"                 json:"rcus"`
	LockFile           string `toml:"lock_file"            json:"lock_file"`
	LogFile            string `toml:"log_file"             json:"log_file"`
	MinSWLevel         int    `toml:"min_swlevel"          json:"min_swlevel"`
}

type ContactConfig struct {
	Name  string `toml:"name"  json:"name"`
	Email string `toml:"email" json:"email"`
}

// Probe kinds.
const (
	ProbeStatic = "static"
	ProbeRedis  = "redis"
	ProbeLCU    = "lcu"
)

// Notifier kinds.
const (
	NotifyLog   = "log"
	NotifyEmail = "email"
	NotifyNATS  = "nats"
)

// StationConfig is one [[stations]] entry. With builtin set, the site
// parameters come from the built-in table and only non-zero fields here
// override them. min_elevation overrides whenever it is present, so 0 is a
// usable horizon.
type StationConfig struct {
	Builtin          string   `toml:"builtin"           json:"builtin,omitempty"`
	Name             string   `toml:"name"              json:"name"`
	ShortName        string   `toml:"short_name"        json:"short_name"`
	Latitude         float64  `toml:"latitude"          json:"latitude"`
	Longitude        float64  `toml:"longitude"         json:"longitude"`
	Altitude         float64  `toml:"altitude"          json:"altitude"`
	TZOffset         float64  `toml:"tz_offset"         json:"tz_offset"`
	MinElevation     *float64 `toml:"min_elevation"     json:"min_elevation,omitempty"`
	DefaultAction    string   `toml:"default_action"    json:"default_action"`
	DefaultRequester string   `toml:"default_requester" json:"default_requester"`
	Recipients       []string `toml:"recipients"        json:"recipients"`

	Probe       string   `toml:"probe"        json:"probe"`
	StaticState string   `toml:"static_state" json:"static_state,omitempty"`
	LCUHost     string   `toml:"lcu_host"     json:"lcu_host,omitempty"`
	LCUPort     int      `toml:"lcu_port"     json:"lcu_port,omitempty"`
	Notifiers   []string `toml:"notifiers"    json:"notifiers"`
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Bind: "0.0.0.0:8080",
		},
		Demo: DemoConfig{
			Enabled:         false,
			IntervalSeconds: 30,
		},
		Trigger: TriggerConfig{
			DurationSeconds:    3600,
			Debug:              true,
			CallTimeoutSeconds: 30,
			AntennaSet:         "HBA_DUAL",
			RCUMode:            5,
			QueueSize:          16,
		},
		Beams: beam.DefaultLayout,
		SMTP: SMTPConfig{
			Port: 587,
			From: "fast-trigger@localhost",
		},
		NATS: NATSConfig{
			SubjectPrefix:  "fasttrigger.alerts",
			TimeoutSeconds: 5,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "fasttrigger:station",
		},
		LCU: LCUConfig{
			User:               "lofarsys",
			DialTimeoutSeconds: 10,
			RCUs:               "0:191",
			LockFile:           "/tmp/fasttrigger.lock",
			LogFile:            "/tmp/fasttrigger.log",
			MinSWLevel:         3,
		},
		Contacts: map[string]ContactConfig{
			"duty": {Name: "Duty Astronomer"},
		},
		Stations: []StationConfig{
			{Builtin: "chilbolton", DefaultRequester: "duty", Probe: ProbeStatic, StaticState: "ok", Notifiers: []string{NotifyLog}},
			{Builtin: "nancay", DefaultRequester: "duty", Probe: ProbeStatic, StaticState: "ok", Notifiers: []string{NotifyLog}},
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. A [[stations]] list in the file replaces the
// default list as a whole.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	// Arrays of tables are decoded element-wise onto existing entries, so
	// start from an empty list when the file brings its own.
	var probe struct {
		Stations []map[string]any `toml:"stations"`
	}
	_ = toml.Unmarshal(b, &probe)
	if len(probe.Stations) > 0 {
		cfg.Stations = nil
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Server.Bind == "" {
		return errors.New("server.bind must not be empty")
	}
	if cfg.Demo.IntervalSeconds < 1 && cfg.Demo.Enabled {
		return errors.New("demo.interval_seconds must be >= 1")
	}
	if cfg.Trigger.DurationSeconds < 1 {
		return errors.New("trigger.duration_seconds must be >= 1")
	}
	if cfg.Trigger.CallTimeoutSeconds < 0 {
		return errors.New("trigger.call_timeout_seconds must be >= 0")
	}
	if cfg.Trigger.QueueSize < 1 {
		return errors.New("trigger.queue_size must be >= 1")
	}
	if err := cfg.Beams.Validate(); err != nil {
		return err
	}
	if _, err := cfg.Catalog(); err != nil {
		return err
	}
	if len(cfg.Stations) == 0 {
		return errors.New("at least one [[stations]] entry is required")
	}

	seen := make(map[string]bool)
	for i, st := range cfg.Stations {
		desc, err := cfg.Descriptor(st)
		if err != nil {
			return fmt.Errorf("stations[%d]: %w", i, err)
		}
		if seen[desc.Key()] {
			return fmt.Errorf("stations[%d]: duplicate station %q", i, desc.ShortName)
		}
		seen[desc.Key()] = true

		switch st.Probe {
		case ProbeStatic:
			if _, err := station.ParseAvailability(st.StaticState); err != nil {
				return fmt.Errorf("stations[%d].static_state: %w", i, err)
			}
		case ProbeRedis:
			if cfg.Redis.Addr == "" {
				return fmt.Errorf("stations[%d]: redis probe needs redis.addr", i)
			}
		case ProbeLCU:
			if st.LCUHost == "" || cfg.LCU.KeyFile == "" {
				return fmt.Errorf("stations[%d]: lcu probe needs lcu_host and lcu.key_file", i)
			}
		default:
			return fmt.Errorf("stations[%d]: unknown probe %q", i, st.Probe)
		}

		if len(st.Notifiers) == 0 {
			return fmt.Errorf("stations[%d]: at least one notifier is required", i)
		}
		for _, n := range st.Notifiers {
			switch n {
			case NotifyLog:
			case NotifyEmail:
				if cfg.SMTP.Host == "" {
					return fmt.Errorf("stations[%d]: email notifier needs smtp.host", i)
				}
			case NotifyNATS:
				if cfg.NATS.URL == "" {
					return fmt.Errorf("stations[%d]: nats notifier needs nats.url", i)
				}
			default:
				return fmt.Errorf("stations[%d]: unknown notifier %q", i, n)
			}
		}
	}
	return nil
}

// Catalog returns the calibrators named in trigger.calibrators, or the
// standard set when none are listed.
func (c Config) Catalog() (calibrator.Catalog, error) {
	cat, err := calibrator.Default.Subset(c.Trigger.Calibrators)
	if err != nil {
		return nil, fmt.Errorf("trigger.calibrators: %w", err)
	}
	return cat, nil
}

// Contact resolves a contact key.
func (c Config) Contact(key string) (station.Contact, error) {
	for k, cc := range c.Contacts {
		if strings.EqualFold(k, key) {
			return station.Contact{Name: cc.Name, Email: cc.Email}, nil
		}
	}
	return station.Contact{}, fmt.Errorf("unknown contact %q", key)
}

// Descriptor builds the station descriptor for one entry, resolving
// contacts and built-in site parameters.
func (c Config) Descriptor(st StationConfig) (station.Descriptor, error) {
	var requester station.Contact
	if st.DefaultRequester != "" {
		r, err := c.Contact(st.DefaultRequester)
		if err != nil {
			return station.Descriptor{}, err
		}
		requester = r
	}
	recipients := make([]station.Contact, 0, len(st.Recipients))
	for _, key := range st.Recipients {
		r, err := c.Contact(key)
		if err != nil {
			return station.Descriptor{}, err
		}
		recipients = append(recipients, r)
	}

	var d station.Descriptor
	if st.Builtin != "" {
		b, ok := station.Builtin(st.Builtin, requester, recipients)
		if !ok {
			return station.Descriptor{}, fmt.Errorf("unknown builtin station %q", st.Builtin)
		}
		d = b
	} else {
		d = station.Descriptor{
			Name:             st.Name,
			ShortName:        st.ShortName,
			Latitude:         st.Latitude,
			Longitude:        st.Longitude,
			Altitude:         st.Altitude,
			TZOffset:         st.TZOffset,
			MinElevation:     station.DefaultMinElevation,
			DefaultAction:    "NONE",
			DefaultRequester: requester,
			Recipients:       recipients,
		}
	}

	if st.Builtin != "" {
		if st.Name != "" {
			d.Name = st.Name
		}
		if st.ShortName != "" {
			d.ShortName = st.ShortName
		}
	}
	if st.MinElevation != nil {
		d.MinElevation = *st.MinElevation
	}
	if st.DefaultAction != "" {
		d.DefaultAction = st.DefaultAction
	}

	if err := d.Validate(); err != nil {
		return station.Descriptor{}, err
	}
	return d, nil
}
