package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dougsko/rigsetup/pkg/settings"
)

// Command represents a front panel command sent by a client
type Command struct {
	Type string                 `json:"type"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// Response represents a response to a command
type Response struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Event is pushed to connected panels
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Status represents the current daemon status
type Status struct {
	MenuActive       bool            `json:"menu_active"`
	Settings         settings.Record `json:"settings"`
	CarrierFrequency uint32          `json:"carrier_frequency"`
	Calibration      int32           `json:"calibration"`
	ActiveFrequency  uint32          `json:"active_frequency"`
	InputBackend     string          `json:"input_backend"`
	OscBackend       string          `json:"oscillator_backend"`
	Uptime           string          `json:"uptime"`
	StartTime        time.Time       `json:"start_time"`
	Version          string          `json:"version"`
}

// ParseCommand parses a text command such as "ROTATE:-3" into a Command
func ParseCommand(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty command")
	}
	parts := strings.SplitN(text, ":", 2)

	cmd := &Command{
		Type: strings.ToUpper(parts[0]),
		Args: make(map[string]interface{}),
	}

	switch cmd.Type {
	case CmdRotate:
		// ROTATE:5 or ROTATE:-2
		if len(parts) < 2 {
			return nil, fmt.Errorf("ROTATE needs a pulse count")
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid pulse count %q", parts[1])
		}
		cmd.Args["pulses"] = n

	case CmdClick:
		// CLICK or CLICK:250 (hold in ms)
		if len(parts) > 1 {
			ms, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil || ms < 0 {
				return nil, fmt.Errorf("invalid hold time %q", parts[1])
			}
			cmd.Args["hold_ms"] = ms
		}

	case CmdPress, CmdRelease, CmdMenu, CmdStatus, CmdPing:

	default:
		return nil, fmt.Errorf("unknown command %q", cmd.Type)
	}

	return cmd, nil
}

// DecodeCommand accepts a JSON command object or the text form
func DecodeCommand(data []byte) (*Command, error) {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") {
		return ParseCommand(trimmed)
	}

	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}
	cmd.Type = strings.ToUpper(cmd.Type)
	if cmd.Args == nil {
		cmd.Args = make(map[string]interface{})
	}

	// JSON numbers decode as float64
	if v, ok := cmd.Args["pulses"].(float64); ok {
		cmd.Args["pulses"] = int(v)
	}
	if v, ok := cmd.Args["hold_ms"].(float64); ok {
		cmd.Args["hold_ms"] = int(v)
	}
	if cmd.Type == CmdRotate {
		if _, ok := cmd.Args["pulses"].(int); !ok {
			return nil, fmt.Errorf("ROTATE needs a pulse count")
		}
	}
	return &cmd, nil
}

// IntArg returns an integer argument, or def when it is missing
func (c *Command) IntArg(name string, def int) int {
	if v, ok := c.Args[name].(int); ok {
		return v
	}
	return def
}

// String converts a Response to a JSON string
func (r *Response) String() string {
	data, _ := json.Marshal(r)
	return string(data)
}

// NewSuccessResponse creates a successful response
func NewSuccessResponse(data map[string]interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(err string) *Response {
	return &Response{
		Success: false,
		Error:   err,
	}
}

// NewEvent creates an event stamped now
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// Protocol commands
const (
	CmdRotate  = "ROTATE"
	CmdPress   = "PRESS"
	CmdRelease = "RELEASE"
	CmdClick   = "CLICK"
	CmdMenu    = "MENU"
	CmdStatus  = "STATUS"
	CmdPing    = "PING"
)

// Event types
const (
	EventCommitted = "settings_committed"
	EventFailed    = "settings_save_failed"
	EventMenu      = "menu"
	EventScreen    = "screen"
	EventStatus    = "status"
)
