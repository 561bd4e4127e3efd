package ctl

import (
	"context"
	"net/http"
)

// Health checks daemon liveness via GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if c.JSON {
			return c.printJSON(map[string]any{"healthy": false, "url": c.BaseURL, "error": err.Error()})
		}
		return err
	}
	resp.Body.Close()

	healthy := resp.StatusCode == http.StatusOK
	if c.JSON {
		return c.printJSON(map[string]any{"healthy": healthy, "url": c.BaseURL})
	}

	p := c.p
	p.println()
	if healthy {
		p.printf("  %s  triggerd is reachable at %s\n", p.paint(greenStyle, "HEALTHY"), p.paint(dimStyle, c.BaseURL))
	} else {
		p.printf("  %s  triggerd returned HTTP %d at %s\n", p.paint(redStyle, "UNHEALTHY"), resp.StatusCode, p.paint(dimStyle, c.BaseURL))
	}
	p.println()
	return nil
}
