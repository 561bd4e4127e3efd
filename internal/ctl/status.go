package ctl

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Outcome mirrors the record of one processed request.
type Outcome struct {
	RequestID    string    `json:"request_id"`
	Station      string    `json:"station"`
	Target       string    `json:"target"`
	Status       int       `json:"status"`
	StatusText   string    `json:"status_text"`
	Message      string    `json:"message"`
	AlertMessage string    `json:"alert_message"`
	Subject      string    `json:"subject"`
	Calibrator   string    `json:"calibrator"`
	Debug        bool      `json:"debug"`
	NotifyError  string    `json:"notify_error"`
	At           time.Time `json:"at"`
}

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name          string   `json:"name"`
	State         string   `json:"state"`
	Mode          string   `json:"mode"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Processed     int64    `json:"processed"`
	Paused        bool     `json:"paused"`
	DebugDefault  bool     `json:"debug_default"`
	Stations      []string `json:"stations"`
	Calibrators   []string `json:"calibrators"`
	WSClients     int      `json:"ws_clients"`
	Last          *Outcome `json:"last,omitempty"`
}

// Status fetches the daemon status and prints a formatted summary.
func (c *Client) Status(ctx context.Context) error {
	var s StatusResponse
	if err := c.getJSON(ctx, "/api/status", &s); err != nil {
		return err
	}
	if c.JSON {
		return c.printJSON(s)
	}

	p := c.p
	p.header("FAST TRIGGER STATUS")
	p.field("Daemon", s.Name)
	p.field("State", p.paint(stateStyle(s.State), s.State))
	p.field("Mode", s.Mode)
	p.field("Uptime", formatDuration(time.Duration(s.UptimeSeconds)*time.Second))
	p.field("Stations", strings.Join(s.Stations, ", "))
	p.field("Calibrators", strings.Join(s.Calibrators, ", "))
	p.field("Processed", strconv.FormatInt(s.Processed, 10))
	if s.DebugDefault {
		p.field("Default", p.paint(cyanStyle, "debug (dry run)"))
	} else {
		p.field("Default", p.paint(redStyle, "live"))
	}
	p.field("Watchers", strconv.Itoa(s.WSClients))
	p.field("Host", c.BaseURL)
	if s.Last != nil {
		p.field("Last", c.outcomeLine(*s.Last))
	}
	p.println()
	return nil
}

func (c *Client) outcomeLine(o Outcome) string {
	return c.p.paint(statusStyle(o.Status), o.StatusText) + " " + o.Target + "@" + o.Station +
		c.p.paint(dimStyle, " ("+o.At.Local().Format("2006-01-02 15:04:05")+")")
}
