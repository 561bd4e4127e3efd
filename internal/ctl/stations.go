package ctl

import (
	"context"
	"fmt"
	"net/url"
	"text/tabwriter"
)

// Contact mirrors a station contact.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// StationInfo mirrors one entry of GET /api/stations.
type StationInfo struct {
	Key              string    `json:"key"`
	Name             string    `json:"name"`
	ShortName        string    `json:"short_name"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Altitude         float64   `json:"altitude"`
	MinElevation     float64   `json:"min_elevation"`
	DefaultAction    string    `json:"default_action"`
	DefaultRequester Contact   `json:"default_requester"`
	Recipients       []Contact `json:"recipients"`
	Availability     string    `json:"availability"`
	ProbeMessage     string    `json:"probe_message"`
	ProbeError       string    `json:"probe_error"`
}

// Stations lists the configured stations as a table.
func (c *Client) Stations(ctx context.Context) error {
	var resp struct {
		Stations []StationInfo `json:"stations"`
	}
	if err := c.getJSON(ctx, "/api/stations", &resp); err != nil {
		return err
	}
	if c.JSON {
		return c.printJSON(resp)
	}
	if len(resp.Stations) == 0 {
		c.p.println("  no stations configured")
		return nil
	}

	c.p.println()
	w := tabwriter.NewWriter(c.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  KEY\tNAME\tLAT\tLON\tMIN ELEV\tRECIPIENTS")
	for _, st := range resp.Stations {
		fmt.Fprintf(w, "  %s\t%s\t%.4f\t%.4f\t%s\t%d\n",
			st.Key, st.Name, st.Latitude, st.Longitude, formatDegrees(st.MinElevation), len(st.Recipients))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	c.p.println()
	return nil
}

// Station shows one station. With probe set the daemon queries its live
// availability.
func (c *Client) Station(ctx context.Context, name string, probe bool) error {
	path := "/api/stations/" + url.PathEscape(name)
	if probe {
		path += "?probe=true"
	}
	var st StationInfo
	if err := c.getJSON(ctx, path, &st); err != nil {
		return err
	}
	if c.JSON {
		return c.printJSON(st)
	}

	p := c.p
	p.header("STATION " + st.ShortName)
	p.field("Name", st.Name)
	p.field("Position", fmt.Sprintf("%.6f, %.6f, %.0f m", st.Latitude, st.Longitude, st.Altitude))
	p.field("Min elev", formatDegrees(st.MinElevation))
	p.field("Action", st.DefaultAction)
	p.field("Requester", st.DefaultRequester.Name)
	for _, r := range st.Recipients {
		p.field("Notify", fmt.Sprintf("%s <%s>", r.Name, r.Email))
	}
	switch {
	case st.ProbeError != "":
		p.field("Available", p.paint(redStyle, "probe failed: "+st.ProbeError))
	case st.Availability != "":
		v := p.paint(availabilityStyle(st.Availability), st.Availability)
		if st.ProbeMessage != "" {
			v += p.paint(dimStyle, " ("+st.ProbeMessage+")")
		}
		p.field("Available", v)
	}
	p.println()
	return nil
}
