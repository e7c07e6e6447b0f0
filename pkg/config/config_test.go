package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("Valid Config", func(t *testing.T) {
		configContent := `
menu:
  select_quiet_ms: 250
  return_to_radio_after_save: true

input:
  backend: "gpio"
  pulses_per_step: 4
  pin_a: 5
  pin_b: 6
  button_pin: 13

oscillator:
  backend: "serial"
  device: "/dev/ttyUSB0"
  baud_rate: 115200
  vfo_frequency: 14200000

storage:
  database_path: "/tmp/rigsetup.db"

web:
  enabled: true
  port: 9090

logging:
  level: "debug"
  console: true
`
		config, err := LoadConfig(writeConfig(t, tempDir, "valid.yaml", configContent))
		require.NoError(t, err)

		assert.Equal(t, 250, config.Menu.SelectQuietMs)
		assert.True(t, config.Menu.ReturnAfterSave)
		assert.Equal(t, InputGPIO, config.Input.Backend)
		assert.Equal(t, 4, config.Input.PulsesPerStep)
		assert.Equal(t, 13, config.Input.ButtonPin)
		assert.Equal(t, OscillatorSerial, config.Oscillator.Backend)
		assert.Equal(t, "/dev/ttyUSB0", config.Oscillator.Device)
		assert.Equal(t, 115200, config.Oscillator.BaudRate)
		assert.Equal(t, uint32(14200000), config.Oscillator.VFOFrequency)
		assert.Equal(t, "/tmp/rigsetup.db", config.Storage.DatabasePath)
		assert.True(t, config.Web.Enabled)
		assert.Equal(t, 9090, config.Web.Port)
		assert.Equal(t, "debug", config.Logging.Level)
		assert.NoError(t, config.Validate())
	})

	t.Run("Defaults Applied", func(t *testing.T) {
		config, err := LoadConfig(writeConfig(t, tempDir, "minimal.yaml", "logging:\n  level: warn\n"))
		require.NoError(t, err)

		assert.Equal(t, 10, config.Menu.PollIntervalMs)
		assert.Equal(t, 50, config.Menu.ButtonPollMs)
		assert.Equal(t, 300, config.Menu.SelectQuietMs)
		assert.Equal(t, 500, config.Menu.SettleMs)
		assert.False(t, config.Menu.ReturnAfterSave)
		assert.Equal(t, 100, config.Storage.MaxHistory)
		assert.Equal(t, InputSim, config.Input.Backend)
		assert.Equal(t, OscillatorMock, config.Oscillator.Backend)
		assert.Equal(t, 320, config.Display.Width)
		assert.Equal(t, 240, config.Display.Height)
		assert.Equal(t, "./rigsetup.db", config.Storage.DatabasePath)
		assert.Equal(t, "127.0.0.1", config.Web.BindAddress)
		assert.Equal(t, 2048, config.ZeroBeat.FFTSize)
		assert.NoError(t, config.Validate())
	})

	t.Run("Environment Overrides", func(t *testing.T) {
		t.Setenv("RIGSETUP_DB_PATH", "/var/lib/rigsetup/settings.db")
		t.Setenv("RIGSETUP_WEB_PORT", "8181")
		t.Setenv("RIGSETUP_LOG_LEVEL", "error")

		config, err := LoadConfig(writeConfig(t, tempDir, "env.yaml", "web:\n  port: 9090\n"))
		require.NoError(t, err)

		assert.Equal(t, "/var/lib/rigsetup/settings.db", config.Storage.DatabasePath)
		assert.Equal(t, 8181, config.Web.Port)
		assert.Equal(t, "error", config.Logging.Level)
	})

	t.Run("Bad Environment Value", func(t *testing.T) {
		t.Setenv("RIGSETUP_WEB_PORT", "eighty")

		_, err := LoadConfig(writeConfig(t, tempDir, "badenv.yaml", ""))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "environment")
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(tempDir, "nope.yaml"))
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "failed to read config file"))
	})

	t.Run("Invalid YAML", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, tempDir, "invalid.yaml", "menu: [unclosed\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestValidate(t *testing.T) {
	t.Run("Default Is Valid", func(t *testing.T) {
		assert.NoError(t, Default().Validate())
	})

	t.Run("Unknown Input Backend", func(t *testing.T) {
		c := Default()
		c.Input.Backend = "joystick"
		assert.Error(t, c.Validate())
	})

	t.Run("Serial Oscillator Needs Device", func(t *testing.T) {
		c := Default()
		c.Oscillator.Backend = OscillatorSerial
		assert.Error(t, c.Validate())
		c.Oscillator.Device = "/dev/ttyACM0"
		assert.NoError(t, c.Validate())
	})

	t.Run("Shared GPIO Pins", func(t *testing.T) {
		c := Default()
		c.Input.Backend = InputGPIO
		c.Input.ButtonPin = c.Input.PinA
		assert.Error(t, c.Validate())
	})

	t.Run("Display Too Small", func(t *testing.T) {
		c := Default()
		c.Display.Width = 128
		c.Display.Height = 64
		assert.Error(t, c.Validate())
	})

	t.Run("FFT Size Not Power Of Two", func(t *testing.T) {
		c := Default()
		c.ZeroBeat.Enabled = true
		c.ZeroBeat.FFTSize = 1000
		assert.Error(t, c.Validate())
	})
}
