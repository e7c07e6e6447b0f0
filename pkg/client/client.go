package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dougsko/rigsetup/pkg/protocol"
	"github.com/dougsko/rigsetup/pkg/settings"
	"github.com/dougsko/rigsetup/pkg/storage"
)

// PanelClient talks to the rigsetupd web panel API
type PanelClient struct {
	baseURL string
	http    *http.Client
}

// NewPanelClient creates a client for the daemon at baseURL, e.g.
// http://127.0.0.1:8080
func NewPanelClient(baseURL string) *PanelClient {
	return &PanelClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *PanelClient) get(path string, out interface{}) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("%s: %s %s", path, resp.Status, body.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	return nil
}

// SendCommand sends a text or JSON command and returns the response
func (c *PanelClient) SendCommand(cmd string) (*protocol.Response, error) {
	resp, err := c.http.Post(c.baseURL+"/api/v1/input", "text/plain", strings.NewReader(cmd))
	if err != nil {
		return nil, fmt.Errorf("send error: %w", err)
	}
	defer resp.Body.Close()

	var response protocol.Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return &response, nil
}

func (c *PanelClient) do(cmd string) error {
	resp, err := c.SendCommand(cmd)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%s: %s", strings.SplitN(cmd, ":", 2)[0], resp.Error)
	}
	return nil
}

// GetStatus gets the current daemon status
func (c *PanelClient) GetStatus() (*protocol.Status, error) {
	var status protocol.Status
	if err := c.get("/api/v1/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetSettings gets the last committed settings
func (c *PanelClient) GetSettings() (*settings.Record, error) {
	var rec settings.Record
	if err := c.get("/api/v1/settings", &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetHistory gets up to limit saved records, newest first
func (c *PanelClient) GetHistory(limit int) ([]storage.HistoryEntry, error) {
	path := "/api/v1/settings/history"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}

	var body struct {
		History []storage.HistoryEntry `json:"history"`
	}
	if err := c.get(path, &body); err != nil {
		return nil, err
	}
	return body.History, nil
}

// Screen copies the current panel PNG to w
func (c *PanelClient) Screen(w io.Writer) error {
	resp, err := c.http.Get(c.baseURL + "/api/v1/screen.png")
	if err != nil {
		return fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("screen: %s", resp.Status)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// Rotate turns the knob by pulses; negative is counter-clockwise
func (c *PanelClient) Rotate(pulses int) error {
	return c.do(fmt.Sprintf("%s:%d", protocol.CmdRotate, pulses))
}

// Click presses the knob button for hold
func (c *PanelClient) Click(hold time.Duration) error {
	return c.do(fmt.Sprintf("%s:%d", protocol.CmdClick, hold.Milliseconds()))
}

// Press holds the knob button down
func (c *PanelClient) Press() error {
	return c.do(protocol.CmdPress)
}

// Release lets the knob button go
func (c *PanelClient) Release() error {
	return c.do(protocol.CmdRelease)
}

// OpenMenu opens the setup menu
func (c *PanelClient) OpenMenu() error {
	return c.do(protocol.CmdMenu)
}

// Ping tests the connection
func (c *PanelClient) Ping() error {
	return c.do(protocol.CmdPing)
}

// IsConnected tests if the daemon is reachable
func (c *PanelClient) IsConnected() bool {
	return c.Ping() == nil
}
