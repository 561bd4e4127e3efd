package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to one triggerd instance and renders replies to Out.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Out     io.Writer
	JSON    bool // print raw JSON instead of formatted text

	p printer
}

// NewClient returns a client for baseURL. Colour is enabled only when out
// is a terminal.
func NewClient(baseURL string, out io.Writer, jsonOut bool) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		// Trigger requests block until the station has answered.
		HTTP: &http.Client{Timeout: 2 * time.Minute},
		Out:  out,
		JSON: jsonOut,
		p:    printer{out: out, color: colorEnabled(out)},
	}
}

// apiError is the error body every handler writes.
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Command results carry their own error and are rendered by the caller.
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusConflict {
			if dst != nil && json.Unmarshal(b, dst) == nil && looksLikeResult(b) {
				return nil
			}
		}
		var e apiError
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return fmt.Errorf("HTTP %s: %s", resp.Status, e.Error)
		}
		if msg := strings.TrimSpace(string(b)); msg != "" {
			return fmt.Errorf("HTTP %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("HTTP %s from %s", resp.Status, path)
	}
	if dst == nil {
		return nil
	}
	return json.Unmarshal(b, dst)
}

// looksLikeResult reports whether b is a dispatcher command result, which
// has an "ok" field, rather than a plain error body.
func looksLikeResult(b []byte) bool {
	var probe struct {
		OK *bool `json:"ok"`
	}
	return json.Unmarshal(b, &probe) == nil && probe.OK != nil
}

// getJSON sends a GET request and decodes the JSON response into dst.
func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", dst)
}

// postJSON sends a POST request with a JSON body and decodes the response.
func (c *Client) postJSON(ctx context.Context, path string, body, dst any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	return c.do(ctx, http.MethodPost, path, r, "application/json", dst)
}

// printJSON prints v as indented JSON.
func (c *Client) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.Out, string(b))
	return err
}
