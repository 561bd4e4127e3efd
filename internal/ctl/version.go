package ctl

import "context"

// Build-time variables set via -ldflags.
var (
	Version   = "dev"
	GoVersion = "unknown"
)

// VersionInfo fetches the daemon version via GET /api/version and displays
// it next to the CLI's own.
func (c *Client) VersionInfo(ctx context.Context) error {
	var daemon struct {
		Version   string `json:"version"`
		GoVersion string `json:"go_version"`
		BuiltAt   string `json:"built_at"`
	}
	daemonErr := c.getJSON(ctx, "/api/version", &daemon)

	if c.JSON {
		resp := map[string]any{
			"cli": map[string]any{
				"version":    Version,
				"go_version": GoVersion,
			},
		}
		if daemonErr == nil {
			resp["daemon"] = daemon
		} else {
			resp["daemon_error"] = daemonErr.Error()
		}
		return c.printJSON(resp)
	}

	p := c.p
	p.header("FAST TRIGGER VERSION")
	p.field("CLI", Version+" ("+GoVersion+")")
	if daemonErr != nil {
		p.field("Daemon", p.paint(redStyle, "unreachable: "+daemonErr.Error()))
	} else {
		p.field("Daemon", daemon.Version+" ("+daemon.GoVersion+")")
		p.field("Built", daemon.BuiltAt)
	}
	p.println()
	return nil
}
