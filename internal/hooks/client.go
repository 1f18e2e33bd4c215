package hooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const (
	defaultServerURL = "http://127.0.0.1:37911"
	httpTimeout      = 5 * time.Second
)

// Client is a typed wrapper over the anima server API, used by hook
// handlers. Every method maps to one endpoint.
type Client struct {
	http      *http.Client
	serverURL string
}

// NewClient creates a hook HTTP client. Respects ANIMA_URL, falling
// back to the local default.
func NewClient() *Client {
	u := os.Getenv("ANIMA_URL")
	if u == "" {
		u = defaultServerURL
	}
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: u,
	}
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy() bool {
	resp, err := c.http.Get(c.serverURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// BootContext asks the server to compile a boot context. Mode and task
// are optional; empty strings mean server defaults.
func (c *Client) BootContext(mode, task string) (string, error) {
	params := url.Values{}
	if mode != "" {
		params.Set("mode", mode)
	}
	if task != "" {
		params.Set("task", task)
	}
	path := "/api/boot"
	if enc := params.Encode(); enc != "" {
		path += "?" + enc
	}

	data, err := c.get(path)
	if err != nil {
		return "", err
	}
	var resp struct {
		Context string `json:"context"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode boot response: %w", err)
	}
	return resp.Context, nil
}

// TrackTool records one tool invocation against the usage analytics.
func (c *Client) TrackTool(name string, cost float64) error {
	return c.track("/api/track/tool", name, cost)
}

// TrackPrompt records one user prompt against the usage analytics.
func (c *Client) TrackPrompt(prompt string, cost float64) error {
	return c.track("/api/track/prompt", prompt, cost)
}

// Beat triggers one heartbeat cycle on the server.
func (c *Client) Beat() error {
	_, err := c.post("/api/heartbeat", nil)
	return err
}

func (c *Client) track(path, name string, cost float64) error {
	body, err := json.Marshal(map[string]any{"name": name, "cost": cost})
	if err != nil {
		return err
	}
	_, err = c.post(path, body)
	return err
}

func (c *Client) post(path string, body []byte) ([]byte, error) {
	resp, err := c.http.Post(c.serverURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return data, fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) get(path string) ([]byte, error) {
	resp, err := c.http.Get(c.serverURL + path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return data, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, data)
	}
	return data, nil
}
