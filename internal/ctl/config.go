package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Config fetches and displays the daemon's running configuration.
func (c *Client) Config(ctx context.Context) error {
	// Keep the raw body so --json shows every field.
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/api/config", &raw); err != nil {
		return err
	}
	if c.JSON {
		var v any
		_ = json.Unmarshal(raw, &v)
		return c.printJSON(v)
	}

	var cfg struct {
		Logging struct {
			Level  string `json:"level"`
			Format string `json:"format"`
		} `json:"logging"`
		Server struct {
			Bind string `json:"bind"`
		} `json:"server"`
		Demo struct {
			Enabled         bool `json:"enabled"`
			IntervalSeconds int  `json:"interval_seconds"`
		} `json:"demo"`
		Trigger struct {
			DurationSeconds    int    `json:"duration_seconds"`
			Debug              bool   `json:"debug"`
			CallTimeoutSeconds int    `json:"call_timeout_seconds"`
			AntennaSet         string `json:"antenna_set"`
			RCUMode            int    `json:"rcu_mode"`
		} `json:"trigger"`
		Beams struct {
			Machines           int `json:"machines"`
			SubbandsPerMachine int `json:"subbands_per_machine"`
			FirstSubband       int `json:"first_subband"`
		} `json:"beams"`
		Stations []struct {
			Builtin   string   `json:"builtin"`
			ShortName string   `json:"short_name"`
			Probe     string   `json:"probe"`
			Notifiers []string `json:"notifiers"`
		} `json:"stations"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	p := c.p
	p.header("RUNNING CONFIGURATION")
	p.field("Logging", cfg.Logging.Level+" / "+cfg.Logging.Format)
	p.field("Bind", cfg.Server.Bind)
	if cfg.Demo.Enabled {
		p.field("Demo", fmt.Sprintf("every %ds", cfg.Demo.IntervalSeconds))
	} else {
		p.field("Demo", "off")
	}
	p.field("Duration", strconv.Itoa(cfg.Trigger.DurationSeconds)+"s")
	p.field("Debug", strconv.FormatBool(cfg.Trigger.Debug))
	p.field("Timeout", strconv.Itoa(cfg.Trigger.CallTimeoutSeconds)+"s per call")
	p.field("Antennas", fmt.Sprintf("%s, rcumode %d", cfg.Trigger.AntennaSet, cfg.Trigger.RCUMode))
	p.field("Beams", fmt.Sprintf("%d x %d subbands from %d", cfg.Beams.Machines, cfg.Beams.SubbandsPerMachine, cfg.Beams.FirstSubband))
	for _, st := range cfg.Stations {
		name := st.ShortName
		if name == "" {
			name = st.Builtin
		}
		p.field("Station", fmt.Sprintf("%s (probe %s, notify %s)", name, st.Probe, strings.Join(st.Notifiers, "+")))
	}
	p.println()
	return nil
}
