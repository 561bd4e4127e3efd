package ctl

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// VisibilityOptions controls the visibility command.
type VisibilityOptions struct {
	Station         string
	RA, Dec         string
	DurationSeconds int
	At              string // RFC 3339, empty for now
	Calibrator      string // restrict to one catalog entry
}

// VisibilityResponse mirrors GET /api/stations/{name}/visibility.
type VisibilityResponse struct {
	Station           string    `json:"station"`
	RA                string    `json:"ra"`
	Dec               string    `json:"dec"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	MinElevation      float64   `json:"min_elevation"`
	ElevationStart    float64   `json:"elevation_start"`
	ElevationEnd      float64   `json:"elevation_end"`
	Visible           bool      `json:"visible"`
	VisibleThroughout bool      `json:"visible_throughout"`
	Calibrator        string    `json:"calibrator"`
	Candidates        []struct {
		Name           string  `json:"name"`
		Separation     float64 `json:"separation_deg"`
		ElevationStart float64 `json:"elevation_start"`
		ElevationEnd   float64 `json:"elevation_end"`
		Eligible       bool    `json:"eligible"`
	} `json:"candidates"`
}

// Visibility asks the daemon whether a position can be observed now (or at
// opts.At) and which calibrator it would pick. Nothing is sent to the
// station.
func (c *Client) Visibility(ctx context.Context, opts VisibilityOptions) error {
	if opts.Station == "" || opts.RA == "" || opts.Dec == "" {
		return fmt.Errorf("station, ra and dec are required")
	}
	q := url.Values{}
	q.Set("ra", opts.RA)
	q.Set("dec", opts.Dec)
	if opts.DurationSeconds > 0 {
		q.Set("duration_seconds", strconv.Itoa(opts.DurationSeconds))
	}
	if opts.At != "" {
		q.Set("at", opts.At)
	}
	if opts.Calibrator != "" {
		q.Set("calibrator", opts.Calibrator)
	}

	var v VisibilityResponse
	if err := c.getJSON(ctx, "/api/stations/"+url.PathEscape(opts.Station)+"/visibility?"+q.Encode(), &v); err != nil {
		return err
	}
	if c.JSON {
		return c.printJSON(v)
	}

	p := c.p
	p.header("VISIBILITY FROM " + v.Station)
	p.field("Target", v.RA+" "+v.Dec)
	p.field("Window", v.Start.Local().Format("15:04:05")+" - "+v.End.Local().Format("15:04:05"))
	p.field("Elevation", fmt.Sprintf("%s -> %s (min %s)", formatDegrees(v.ElevationStart), formatDegrees(v.ElevationEnd), formatDegrees(v.MinElevation)))
	switch {
	case v.VisibleThroughout:
		p.field("Visible", p.paint(greenStyle, "yes, whole window"))
	case v.Visible:
		p.field("Visible", p.paint(yellowStyle, "at start only"))
	default:
		p.field("Visible", p.paint(redStyle, "no"))
	}
	if v.Calibrator != "" {
		p.field("Calibrator", p.paint(boldStyle, v.Calibrator))
	} else {
		p.field("Calibrator", p.paint(redStyle, "none available"))
	}

	p.println()
	for _, cand := range v.Candidates {
		row := fmt.Sprintf("%s sep %6s  elev %6s -> %6s", padRight(cand.Name, 7),
			formatDegrees(cand.Separation), formatDegrees(cand.ElevationStart), formatDegrees(cand.ElevationEnd))
		switch {
		case cand.Name == v.Calibrator:
			p.printf("  %s %s\n", p.paint(greenStyle, "*"), row)
		case cand.Eligible:
			p.printf("    %s\n", row)
		default:
			p.printf("    %s\n", p.paint(dimStyle, row))
		}
	}
	p.println()
	return nil
}
