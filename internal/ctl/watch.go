package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// WatchOptions controls the watch command behavior.
type WatchOptions struct {
	Filter []string // event types to show (empty = all)
}

// wsURL derives the event stream URL from the HTTP base URL.
func wsURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// Watch streams daemon events to Out until ctx is cancelled or the daemon
// closes the connection.
func (c *Client) Watch(ctx context.Context, opts WatchOptions) error {
	target, err := wsURL(c.BaseURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	p := c.p
	if !c.JSON {
		p.println()
		p.printf("  %s %s\n", p.paint(greenStyle, "connected"), p.paint(dimStyle, target))
		if len(opts.Filter) > 0 {
			p.printf("  %s\n", p.paint(dimStyle, "filter: "+strings.Join(opts.Filter, ", ")))
		}
		p.println(p.paint(dimStyle, "  "+strings.Repeat("─", 50)))
		p.println()
	}

	filterSet := make(map[string]bool, len(opts.Filter))
	for _, f := range opts.Filter {
		filterSet[f] = true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if len(filterSet) > 0 && !filterSet[eventType(msg)] {
				continue
			}
			if c.JSON {
				p.println(string(msg))
			} else {
				c.renderEvent(msg)
			}
		}
	}()

	select {
	case <-ctx.Done():
		if !c.JSON {
			p.println()
			p.println(p.paint(dimStyle, "  disconnecting..."))
		}
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second),
		)
		return nil
	case <-done:
		return nil
	}
}

func eventType(raw []byte) string {
	var ev struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(raw, &ev)
	return ev.Type
}

// renderEvent prints one event in a human-friendly format. Unknown types
// are dumped as indented JSON so nothing is lost.
func (c *Client) renderEvent(raw []byte) {
	p := c.p
	var ev map[string]any
	if err := json.Unmarshal(raw, &ev); err != nil {
		p.printf("  %s\n", string(raw))
		return
	}

	evType, _ := ev["type"].(string)
	ts := p.paint(dimStyle, formatEventTime(ev))

	switch evType {
	case "heartbeat":
		state, _ := ev["state"].(string)
		uptime, _ := ev["uptime_seconds"].(float64)
		processed, _ := ev["processed"].(float64)
		p.printf("  %s %s  %s  up %s  %s\n",
			ts,
			p.paint(dimStyle, "heartbeat"),
			p.paint(stateStyle(state), state),
			p.paint(dimStyle, formatDuration(time.Duration(uptime)*time.Second)),
			p.paint(dimStyle, fmt.Sprintf("%.0f processed", processed)),
		)

	case "state":
		from, _ := ev["from"].(string)
		to, _ := ev["to"].(string)
		p.printf("  %s %s  %s %s %s\n",
			ts,
			p.paint(boldStyle, "STATE"),
			p.paint(stateStyle(from), from),
			p.paint(dimStyle, "->"),
			p.paint(stateStyle(to), to),
		)

	case "log":
		level, _ := ev["level"].(string)
		message, _ := ev["message"].(string)
		component, _ := ev["component"].(string)
		src := ""
		if component != "" {
			src = p.paint(dimStyle, "["+component+"] ")
		}
		p.printf("  %s %s  %s%s\n", ts, c.formatLogLevel(level), src, message)

	case "stage":
		station, _ := ev["station"].(string)
		stage, _ := ev["stage"].(string)
		outcome, _ := ev["outcome"].(string)
		style := greenStyle
		if outcome != "ok" {
			style = yellowStyle
		}
		p.printf("  %s %s  %s %s\n", ts, p.paint(cyanStyle, padRight(stage, 12)), p.paint(dimStyle, station), p.paint(style, outcome))

	case "request":
		station, _ := ev["station"].(string)
		target, _ := ev["target"].(string)
		status, _ := ev["status"].(float64)
		text, _ := ev["status_text"].(string)
		elapsed, _ := ev["elapsed_ms"].(float64)
		p.printf("  %s %s  %s@%s %s %s\n",
			ts,
			p.paint(boldStyle, "REQUEST"),
			target, station,
			p.paint(statusStyle(int(status)), fmt.Sprintf("%s (%d)", text, int(status))),
			p.paint(dimStyle, fmt.Sprintf("%.0fms", elapsed)),
		)

	default:
		pretty, err := json.MarshalIndent(ev, "  ", "  ")
		if err != nil {
			p.printf("  %s\n", string(raw))
			return
		}
		p.printf("  %s\n", string(pretty))
	}
}

// formatEventTime extracts and shortens the timestamp from an event.
func formatEventTime(ev map[string]any) string {
	tsRaw, ok := ev["ts"].(string)
	if !ok {
		return "        "
	}
	t, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return tsRaw
	}
	return t.Local().Format("15:04:05")
}

// formatLogLevel returns a coloured, fixed-width log level label.
func (c *Client) formatLogLevel(level string) string {
	switch level {
	case "info":
		return c.p.paint(greenStyle, "INFO ")
	case "warn":
		return c.p.paint(yellowStyle, "WARN ")
	case "error", "fatal", "panic":
		return c.p.paint(redStyle, "ERROR")
	default:
		return padRight(level, 5)
	}
}
