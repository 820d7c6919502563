package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a polling consumer of a live-view server. Used by the watch
// command to render a remote run in a local terminal.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client targeting the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Status fetches where the run stands.
func (c *Client) Status() (*Status, error) {
	var out Status
	if err := c.fetchJSON("/api/v1/status", &out); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	return &out, nil
}

// Grid fetches the immutable world layout.
func (c *Client) Grid() (*GridInfo, error) {
	var out GridInfo
	if err := c.fetchJSON("/api/v1/grid", &out); err != nil {
		return nil, fmt.Errorf("fetch grid: %w", err)
	}
	return &out, nil
}

// Snapshot fetches the most recent published step.
func (c *Client) Snapshot() (*Snapshot, error) {
	var out Snapshot
	if err := c.fetchJSON("/api/v1/snapshot", &out); err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	return &out, nil
}

// WaitReady polls the status endpoint with exponential backoff until it
// answers or the deadline passes. Process start does not imply HTTP
// readiness, so watchers call this before their first cycle.
func (c *Client) WaitReady(timeout time.Duration) error {
	backoff := 250 * time.Millisecond
	const maxBackoff = 5 * time.Second
	deadline := time.Now().Add(timeout)

	for {
		resp, err := c.HTTPClient.Get(c.BaseURL + "/api/v1/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("live view at %s not ready within %s", c.BaseURL, timeout)
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (c *Client) fetchJSON(path string, target any) error {
	resp, err := c.HTTPClient.Get(c.BaseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
