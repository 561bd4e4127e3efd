package ctl

import "context"

// CommandResult mirrors a dispatcher reply.
type CommandResult struct {
	OK      bool     `json:"ok"`
	Message string   `json:"message"`
	Error   string   `json:"error"`
	Outcome *Outcome `json:"outcome"`
}

// Pause makes the daemon refuse trigger requests until resumed.
func (c *Client) Pause(ctx context.Context) error {
	return c.dispatcherControl(ctx, "/api/dispatcher/pause", "PAUSED")
}

// Resume lets trigger requests through again.
func (c *Client) Resume(ctx context.Context) error {
	return c.dispatcherControl(ctx, "/api/dispatcher/resume", "RESUMED")
}

func (c *Client) dispatcherControl(ctx context.Context, path, label string) error {
	var result CommandResult
	if err := c.postJSON(ctx, path, nil, &result); err != nil {
		return err
	}
	if c.JSON {
		return c.printJSON(result)
	}

	p := c.p
	if result.OK {
		p.printf("\n  %s  %s\n\n", p.paint(greenStyle, label), result.Message)
	} else {
		p.printf("\n  %s  %s\n\n", p.paint(redStyle, "ERROR"), result.Error)
	}
	return nil
}
