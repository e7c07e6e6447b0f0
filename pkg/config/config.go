package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

// Config represents the rigsetup configuration
type Config struct {
	Menu struct {
		// Debounce and polling intervals, milliseconds
		PollIntervalMs  int  `yaml:"poll_interval_ms"`
		ButtonPollMs    int  `yaml:"button_poll_ms"`
		MenuQuietMs     int  `yaml:"menu_quiet_ms"`
		SelectQuietMs   int  `yaml:"select_quiet_ms"`
		EditorPollMs    int  `yaml:"editor_poll_ms"`
		EditorQuietMs   int  `yaml:"editor_quiet_ms"`
		CommitQuietMs   int  `yaml:"commit_quiet_ms"`
		CWEntryQuietMs  int  `yaml:"cw_entry_quiet_ms"`
		SettleMs        int  `yaml:"settle_ms"`
		CarrierChangeMs int  `yaml:"carrier_change_ms"`
		FunctionPollMs  int  `yaml:"function_poll_ms"`
		ReturnAfterSave bool `yaml:"return_to_radio_after_save" env:"RIGSETUP_RETURN_AFTER_SAVE"`
	} `yaml:"menu"`

	Input struct {
		Backend        string `yaml:"backend" env:"RIGSETUP_INPUT"`
		PulsesPerStep  int    `yaml:"pulses_per_step"`
		PinA           int    `yaml:"pin_a"`
		PinB           int    `yaml:"pin_b"`
		ButtonPin      int    `yaml:"button_pin"`
		SamplePeriodUs int    `yaml:"sample_period_us"`
		StableSamples  int    `yaml:"stable_samples"`
	} `yaml:"input"`

	Oscillator struct {
		Backend       string `yaml:"backend" env:"RIGSETUP_OSCILLATOR"`
		Device        string `yaml:"device" env:"RIGSETUP_OSC_DEVICE"`
		BaudRate      int    `yaml:"baud_rate"`
		ReadTimeoutMs int    `yaml:"read_timeout_ms"`
		VFOFrequency  uint32 `yaml:"vfo_frequency"`
	} `yaml:"oscillator"`

	Display struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"display"`

	Storage struct {
		DatabasePath string `yaml:"database_path" env:"RIGSETUP_DB_PATH"`
		MaxHistory   int    `yaml:"max_history"`
	} `yaml:"storage"`

	Web struct {
		Enabled     bool   `yaml:"enabled" env:"RIGSETUP_WEB"`
		Port        int    `yaml:"port" env:"RIGSETUP_WEB_PORT"`
		BindAddress string `yaml:"bind_address" env:"RIGSETUP_WEB_BIND"`
	} `yaml:"web"`

	ZeroBeat struct {
		Enabled    bool    `yaml:"enabled"`
		SampleRate int     `yaml:"sample_rate"`
		FFTSize    int     `yaml:"fft_size"`
		SimToneHz  float64 `yaml:"sim_tone_hz"`
	} `yaml:"zerobeat"`

	Logging struct {
		Level      string `yaml:"level" env:"RIGSETUP_LOG_LEVEL"`
		File       string `yaml:"file" env:"RIGSETUP_LOG_FILE"`
		Console    bool   `yaml:"console"`
		Structured bool   `yaml:"structured"`
		MaxSize    int    `yaml:"max_size"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
}

// Backend names, shared with the hardware manager
const (
	InputSim         = "sim"
	InputGPIO        = "gpio"
	OscillatorMock   = "mock"
	OscillatorSerial = "serial"
)

// LoadConfig loads configuration from a YAML file, then applies
// RIGSETUP_* environment overrides
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	config.SetDefaults()
	return &config, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	var config Config
	config.SetDefaults()
	return &config
}

// SetDefaults fills in zero values
func (c *Config) SetDefaults() {
	if c.Menu.PollIntervalMs == 0 {
		c.Menu.PollIntervalMs = 10
	}
	if c.Menu.ButtonPollMs == 0 {
		c.Menu.ButtonPollMs = 50
	}
	if c.Menu.MenuQuietMs == 0 {
		c.Menu.MenuQuietMs = 50
	}
	if c.Menu.SelectQuietMs == 0 {
		c.Menu.SelectQuietMs = 300
	}
	if c.Menu.EditorPollMs == 0 {
		c.Menu.EditorPollMs = 100
	}
	if c.Menu.EditorQuietMs == 0 {
		c.Menu.EditorQuietMs = 100
	}
	if c.Menu.CommitQuietMs == 0 {
		c.Menu.CommitQuietMs = 100
	}
	if c.Menu.CWEntryQuietMs == 0 {
		c.Menu.CWEntryQuietMs = 500
	}
	if c.Menu.SettleMs == 0 {
		c.Menu.SettleMs = 500
	}
	if c.Menu.CarrierChangeMs == 0 {
		c.Menu.CarrierChangeMs = 100
	}
	if c.Menu.FunctionPollMs == 0 {
		c.Menu.FunctionPollMs = 20
	}
	if c.Input.Backend == "" {
		c.Input.Backend = InputSim
	}
	if c.Input.PulsesPerStep == 0 {
		c.Input.PulsesPerStep = 1
	}
	if c.Input.PinA == 0 {
		c.Input.PinA = 17
	}
	if c.Input.PinB == 0 {
		c.Input.PinB = 27
	}
	if c.Input.ButtonPin == 0 {
		c.Input.ButtonPin = 22
	}
	if c.Input.SamplePeriodUs == 0 {
		c.Input.SamplePeriodUs = 500
	}
	if c.Input.StableSamples == 0 {
		c.Input.StableSamples = 10
	}
	if c.Oscillator.Backend == "" {
		c.Oscillator.Backend = OscillatorMock
	}
	if c.Oscillator.BaudRate == 0 {
		c.Oscillator.BaudRate = 38400
	}
	if c.Oscillator.ReadTimeoutMs == 0 {
		c.Oscillator.ReadTimeoutMs = 200
	}
	if c.Oscillator.VFOFrequency == 0 {
		c.Oscillator.VFOFrequency = 7150000
	}
	if c.Display.Width == 0 {
		c.Display.Width = 320
	}
	if c.Display.Height == 0 {
		c.Display.Height = 240
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "./rigsetup.db"
	}
	if c.Storage.MaxHistory == 0 {
		c.Storage.MaxHistory = 100
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8080
	}
	if c.Web.BindAddress == "" {
		c.Web.BindAddress = "127.0.0.1"
	}
	if c.ZeroBeat.SampleRate == 0 {
		c.ZeroBeat.SampleRate = 8000
	}
	if c.ZeroBeat.FFTSize == 0 {
		c.ZeroBeat.FFTSize = 2048
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSize == 0 {
		c.Logging.MaxSize = 10
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAge == 0 {
		c.Logging.MaxAge = 28
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Input.Backend {
	case InputSim, InputGPIO:
	default:
		return fmt.Errorf("unknown input backend %q", c.Input.Backend)
	}
	switch c.Oscillator.Backend {
	case OscillatorMock:
	case OscillatorSerial:
		if c.Oscillator.Device == "" {
			return fmt.Errorf("oscillator device is required for the serial backend")
		}
	default:
		return fmt.Errorf("unknown oscillator backend %q", c.Oscillator.Backend)
	}
	if c.Input.PulsesPerStep < 1 {
		return fmt.Errorf("pulses_per_step must be at least 1")
	}
	if c.Input.Backend == InputGPIO && (c.Input.PinA == c.Input.PinB || c.Input.ButtonPin == c.Input.PinA || c.Input.ButtonPin == c.Input.PinB) {
		return fmt.Errorf("encoder and button pins must be distinct")
	}
	if c.Display.Width < 320 || c.Display.Height < 240 {
		return fmt.Errorf("display must be at least 320x240, got %dx%d", c.Display.Width, c.Display.Height)
	}
	if c.ZeroBeat.Enabled && c.ZeroBeat.FFTSize&(c.ZeroBeat.FFTSize-1) != 0 {
		return fmt.Errorf("zerobeat fft_size must be a power of two")
	}
	return nil
}
