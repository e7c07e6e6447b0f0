package hardware

import (
	"fmt"
	"sync"

	"github.com/dougsko/rigsetup/pkg/config"
	"github.com/dougsko/rigsetup/pkg/input"
	"github.com/dougsko/rigsetup/pkg/logging"
)

// HardwareConfig represents hardware configuration
type HardwareConfig struct {
	InputBackend  string
	PulsesPerStep int
	Encoder       EncoderConfig
	Oscillator    OscillatorConfig
}

// pulseLevelSource is what a knob backend provides
type pulseLevelSource interface {
	input.PulseSource
	input.LevelSource
}

// Manager owns the front panel knob and the oscillator
type Manager struct {
	config HardwareConfig
	mutex  sync.RWMutex
	log    *logging.ComponentLogger

	knob       pulseLevelSource
	virtual    *VirtualInput
	encoder    *GPIOEncoder
	quantizer  *input.Quantizer
	oscillator Oscillator

	initialized bool
}

// NewManager creates a new hardware manager
func NewManager(cfg HardwareConfig) *Manager {
	return &Manager{
		config: cfg,
		log:    logging.For("Hardware"),
	}
}

// Initialize brings up the knob and the oscillator
func (m *Manager) Initialize() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.initialized {
		return nil
	}

	m.log.Infof("Initializing hardware manager...")

	switch m.config.InputBackend {
	case config.InputGPIO:
		m.encoder = NewGPIOEncoder(m.config.Encoder)
		if err := m.encoder.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize encoder: %w", err)
		}
		m.knob = m.encoder
	case config.InputSim, "":
		m.virtual = NewVirtualInput()
		m.knob = m.virtual
		m.log.Infof("Using virtual knob")
	default:
		return fmt.Errorf("unknown input backend %q", m.config.InputBackend)
	}
	m.quantizer = input.NewQuantizer(m.knob, m.knob, m.config.PulsesPerStep)

	switch m.config.Oscillator.Backend {
	case config.OscillatorSerial:
		m.oscillator = NewSerialOscillator(m.config.Oscillator)
	case config.OscillatorMock, "":
		m.oscillator = NewMockOscillator(m.config.Oscillator)
	default:
		m.closeInputLocked()
		return fmt.Errorf("unknown oscillator backend %q", m.config.Oscillator.Backend)
	}
	if err := m.oscillator.Initialize(); err != nil {
		m.closeInputLocked()
		return fmt.Errorf("failed to initialize oscillator: %w", err)
	}

	m.initialized = true
	m.log.Infof("Hardware manager initialized (input %s, oscillator %s)",
		m.config.InputBackend, m.config.Oscillator.Backend)
	return nil
}

func (m *Manager) closeInputLocked() {
	if m.encoder != nil {
		if err := m.encoder.Close(); err != nil {
			m.log.Errorf("Error closing encoder: %v", err)
		}
		m.encoder = nil
	}
}

// Close shuts down all hardware interfaces
func (m *Manager) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.initialized {
		return nil
	}

	m.log.Infof("Shutting down hardware manager...")
	if m.oscillator != nil {
		if err := m.oscillator.Close(); err != nil {
			m.log.Errorf("Error closing oscillator: %v", err)
		}
	}
	m.closeInputLocked()

	m.initialized = false
	m.log.Infof("Hardware manager shut down")
	return nil
}

// Input returns the quantized knob
func (m *Manager) Input() *input.Quantizer {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.quantizer
}

// Virtual returns the software knob, or nil when a real encoder is used
func (m *Manager) Virtual() *VirtualInput {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.virtual
}

// Oscillator returns the oscillator
func (m *Manager) Oscillator() Oscillator {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.oscillator
}

// OscillatorState returns the programmed outputs when the backend tracks them
func (m *Manager) OscillatorState() (OscillatorState, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if s, ok := m.oscillator.(interface{ State() OscillatorState }); ok {
		return s.State(), true
	}
	return OscillatorState{}, false
}

// IsInitialized returns whether hardware is initialized
func (m *Manager) IsInitialized() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.initialized
}

// GetConfig returns the hardware configuration
func (m *Manager) GetConfig() HardwareConfig {
	return m.config
}
