package ctl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
)

// TriggerOptions controls the trigger command.
type TriggerOptions struct {
	Station         string `json:"-"`
	Kind            string `json:"kind,omitempty"`
	IVORN           string `json:"ivorn,omitempty"`
	RA              string `json:"ra"`
	Dec             string `json:"dec"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Debug           *bool  `json:"debug,omitempty"`
	Action          string `json:"action,omitempty"`
	Requester       string `json:"requester,omitempty"`
}

// Trigger submits an alert position for one station and prints the outcome.
func (c *Client) Trigger(ctx context.Context, opts TriggerOptions) error {
	if opts.Station == "" {
		return fmt.Errorf("station is required")
	}
	if opts.RA == "" || opts.Dec == "" {
		return fmt.Errorf("ra and dec are required")
	}

	var res CommandResult
	if err := c.postJSON(ctx, "/api/stations/"+url.PathEscape(opts.Station)+"/trigger", opts, &res); err != nil {
		return err
	}
	return c.renderResult(res)
}

// VOEventOptions controls the voevent command.
type VOEventOptions struct {
	Station         string
	File            string // "-" reads stdin
	DurationSeconds int
	Debug           *bool
}

// VOEvent posts a VOEvent packet from a file for one station.
func (c *Client) VOEvent(ctx context.Context, opts VOEventOptions) error {
	if opts.Station == "" || opts.File == "" {
		return fmt.Errorf("station and file are required")
	}
	var (
		data []byte
		err  error
	)
	if opts.File == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(opts.File)
	}
	if err != nil {
		return err
	}

	q := url.Values{}
	if opts.DurationSeconds > 0 {
		q.Set("duration_seconds", strconv.Itoa(opts.DurationSeconds))
	}
	if opts.Debug != nil {
		q.Set("debug", strconv.FormatBool(*opts.Debug))
	}
	path := "/api/stations/" + url.PathEscape(opts.Station) + "/voevent"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var res CommandResult
	if err := c.do(ctx, http.MethodPost, path, bytes.NewReader(data), "application/xml", &res); err != nil {
		return err
	}
	return c.renderResult(res)
}

func (c *Client) renderResult(res CommandResult) error {
	if c.JSON {
		return c.printJSON(res)
	}

	p := c.p
	p.println()
	if !res.OK {
		p.printf("  %s  %s\n\n", p.paint(redStyle, "REJECTED"), res.Error)
		return nil
	}
	o := res.Outcome
	if o == nil {
		p.printf("  %s  %s\n\n", p.paint(greenStyle, "OK"), res.Message)
		return nil
	}

	p.printf("  %s  %s at %s\n", p.paint(statusStyle(o.Status), fmt.Sprintf("%s (%d)", o.StatusText, o.Status)), p.paint(boldStyle, o.Target), o.Station)
	p.field("Request", o.RequestID)
	if o.Calibrator != "" {
		p.field("Calibrator", o.Calibrator)
	}
	if o.Debug {
		p.field("Mode", p.paint(cyanStyle, "debug, nothing sent to the station"))
	}
	if o.NotifyError != "" {
		p.field("Notify", p.paint(redStyle, o.NotifyError))
	}
	if o.Message != "" {
		p.println()
		p.println(p.paint(dimStyle, indent(o.Message, "    ")))
	}
	p.println()
	return nil
}
