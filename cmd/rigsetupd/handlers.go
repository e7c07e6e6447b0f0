package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gopkg.in/yaml.v2"

	"github.com/dougsko/rigsetup/pkg/protocol"
	"github.com/dougsko/rigsetup/pkg/storage"
)

// setupWebServer initializes the web server and routes
func (d *RigDaemon) setupWebServer() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	api := router.Group("/api/v1")
	{
		api.GET("/status", d.handleGetStatus)
		api.GET("/settings", d.handleGetSettings)
		api.GET("/settings/history", d.handleGetHistory)
		api.GET("/screen.png", d.handleGetScreen)
		api.GET("/config", d.handleGetConfig)
		api.GET("/serial-devices", d.handleGetSerialDevices)
		api.POST("/input", d.handleInput)
	}

	router.GET("/ws", d.handlePanelWebSocket)

	d.router = router
	d.webServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", d.config.Web.BindAddress, d.config.Web.Port),
		Handler: router,
	}
}

// handleGetStatus returns daemon status
func (d *RigDaemon) handleGetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, d.status())
}

// handleGetSettings returns the last committed settings
func (d *RigDaemon) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, d.gate.Snapshot())
}

// handleGetHistory returns saved settings, newest first
func (d *RigDaemon) handleGetHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	query := storage.HistoryQuery{Limit: limit}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("invalid since time: %v", err),
			})
			return
		}
		query.Since = &t
	}

	entries, err := d.store.History(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}
	total, err := d.store.HistoryCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": entries,
		"count":   len(entries),
		"total":   total,
	})
}

// handleGetScreen returns the panel as a PNG
func (d *RigDaemon) handleGetScreen(c *gin.Context) {
	var buf bytes.Buffer
	if err := d.screen.WritePNG(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// handleGetConfig returns the current configuration
func (d *RigDaemon) handleGetConfig(c *gin.Context) {
	// Round trip through YAML so the keys match the config file
	yamlData, err := yaml.Marshal(d.config)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("failed to marshal config: %v", err),
		})
		return
	}

	var yamlConfig interface{}
	if err := yaml.Unmarshal(yamlData, &yamlConfig); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("failed to unmarshal config: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, convertYamlToJson(yamlConfig))
}

// convertYamlToJson converts YAML map[interface{}]interface{} to JSON-compatible map[string]interface{}
func convertYamlToJson(i interface{}) interface{} {
	switch x := i.(type) {
	case map[interface{}]interface{}:
		m2 := map[string]interface{}{}
		for k, v := range x {
			m2[fmt.Sprint(k)] = convertYamlToJson(v)
		}
		return m2
	case []interface{}:
		for i, v := range x {
			x[i] = convertYamlToJson(v)
		}
	}
	return i
}

// handleGetSerialDevices lists candidate ports for the oscillator board
func (d *RigDaemon) handleGetSerialDevices(c *gin.Context) {
	var patterns []string
	switch runtime.GOOS {
	case "linux":
		patterns = []string{
			"/dev/ttyUSB*",
			"/dev/ttyACM*",
			"/dev/ttyAMA*",
			"/dev/serial/by-id/*",
		}
	case "darwin":
		patterns = []string{
			"/dev/tty.usbserial*",
			"/dev/tty.wchusbserial*", // CH340, as on most Si5351 boards
			"/dev/tty.usbmodem*",
		}
	}

	devices := []string{}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if _, err := os.Stat(m); err == nil {
				devices = append(devices, m)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"serial_devices": devices,
		"configured":     d.config.Oscillator.Device,
	})
}

// handleInput applies one panel command
func (d *RigDaemon) handleInput(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, protocol.NewErrorResponse(err.Error()))
		return
	}
	cmd, err := protocol.DecodeCommand(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, protocol.NewErrorResponse(err.Error()))
		return
	}

	resp := d.applyCommand(cmd)
	code := http.StatusOK
	if !resp.Success {
		code = http.StatusConflict
	}
	c.JSON(code, resp)
}

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handlePanelWebSocket streams events to a remote panel and accepts its
// knob commands
func (d *RigDaemon) handlePanelWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		d.log.Warnf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events := d.events.subscribe()
	defer d.events.unsubscribe(events)
	d.log.Infof("Panel connected (%d open)", d.events.count())

	replies := make(chan *protocol.Response, 8)
	done := make(chan struct{})
	quit := make(chan struct{})
	defer close(quit)

	// Reads happen here; all writes stay on this handler's goroutine
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					d.log.Warnf("WebSocket read error: %v", err)
				}
				return
			}
			cmd, err := protocol.DecodeCommand(data)
			var resp *protocol.Response
			if err != nil {
				resp = protocol.NewErrorResponse(err.Error())
			} else {
				resp = d.applyCommand(cmd)
			}
			select {
			case replies <- resp:
			case <-quit:
				return
			}
		}
	}()

	if err := conn.WriteJSON(protocol.NewEvent(protocol.EventStatus, d.status())); err != nil {
		return
	}

	for {
		select {
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				d.log.Warnf("WebSocket write error: %v", err)
				return
			}
		case resp := <-replies:
			if err := conn.WriteJSON(resp); err != nil {
				d.log.Warnf("WebSocket write error: %v", err)
				return
			}
		case <-done:
			d.log.Infof("Panel disconnected")
			return
		case <-d.ctx.Done():
			return
		}
	}
}
