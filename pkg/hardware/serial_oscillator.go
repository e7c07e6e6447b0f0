package hardware

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/dougsko/rigsetup/pkg/logging"
)

// SerialOscillator drives a clock generator board over a serial line. Each
// command is one text line; the board answers "OK" or "ERR <reason>".
//
//	CAR 11053000
//	CAL -875
//	VFO 7150000
//	INIT
type SerialOscillator struct {
	config OscillatorConfig
	mutex  sync.Mutex
	log    *logging.ComponentLogger

	port   io.ReadWriteCloser
	reader *bufio.Reader

	// open is replaced in tests
	open func(OscillatorConfig) (io.ReadWriteCloser, error)

	connected bool
	state     OscillatorState
}

// NewSerialOscillator creates a serial oscillator; the port is opened by Initialize
func NewSerialOscillator(config OscillatorConfig) *SerialOscillator {
	return &SerialOscillator{
		config: config,
		log:    logging.For("SerialOscillator"),
		open:   openSerialPort,
		state: OscillatorState{
			ActiveFrequency: config.VFOFrequency,
		},
	}
}

func openSerialPort(config OscillatorConfig) (io.ReadWriteCloser, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        config.Device,
		Baud:        config.BaudRate,
		ReadTimeout: time.Duration(config.ReadTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", config.Device, err)
	}
	return port, nil
}

// Initialize opens the port and programs the start-up VFO frequency
func (o *SerialOscillator) Initialize() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.connected {
		return nil
	}

	o.log.Infof("Opening %s at %d baud", o.config.Device, o.config.BaudRate)
	port, err := o.open(o.config)
	if err != nil {
		return err
	}
	o.port = port
	o.reader = bufio.NewReader(port)
	o.connected = true

	if err := o.commandLocked("INIT"); err != nil {
		o.closeLocked()
		return fmt.Errorf("oscillator did not answer INIT: %w", err)
	}
	if err := o.commandLocked(fmt.Sprintf("VFO %d", o.state.ActiveFrequency)); err != nil {
		o.closeLocked()
		return err
	}

	o.log.Infof("Oscillator ready, VFO %.3f MHz", float64(o.state.ActiveFrequency)/1000000.0)
	return nil
}

// Close closes the serial port
func (o *SerialOscillator) Close() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.closeLocked()
}

func (o *SerialOscillator) closeLocked() error {
	if !o.connected {
		return nil
	}
	o.connected = false
	o.reader = nil
	o.log.Infof("Closing %s", o.config.Device)
	return o.port.Close()
}

// commandLocked writes one command line and waits for the answer
func (o *SerialOscillator) commandLocked(cmd string) error {
	if !o.connected {
		return fmt.Errorf("oscillator not connected")
	}

	if _, err := io.WriteString(o.port, cmd+"\n"); err != nil {
		return fmt.Errorf("write %q: %w", cmd, err)
	}

	line, err := o.reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read reply to %q: %w", cmd, err)
	}
	line = strings.TrimSpace(line)

	switch {
	case line == "OK":
		return nil
	case strings.HasPrefix(line, "ERR"):
		return fmt.Errorf("%s: %s", cmd, strings.TrimSpace(strings.TrimPrefix(line, "ERR")))
	default:
		return fmt.Errorf("%s: unexpected reply %q", cmd, line)
	}
}

// SetCarrierFrequency programs the BFO output
func (o *SerialOscillator) SetCarrierFrequency(hz uint32) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if err := o.commandLocked(fmt.Sprintf("CAR %d", hz)); err != nil {
		return err
	}
	o.state.CarrierFrequency = hz
	return nil
}

// SetCalibration programs the reference trim
func (o *SerialOscillator) SetCalibration(cal int32) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if err := o.commandLocked(fmt.Sprintf("CAL %d", cal)); err != nil {
		return err
	}
	o.state.Calibration = cal
	return nil
}

// SetActiveFrequency programs the VFO output
func (o *SerialOscillator) SetActiveFrequency(hz uint32) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if err := o.commandLocked(fmt.Sprintf("VFO %d", hz)); err != nil {
		return err
	}
	o.state.ActiveFrequency = hz
	return nil
}

// ActiveFrequency returns the last VFO frequency programmed
func (o *SerialOscillator) ActiveFrequency() uint32 {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.state.ActiveFrequency
}

// Reinitialize resets the board. The carrier and calibration are cleared and
// must be programmed again; the VFO is restored.
func (o *SerialOscillator) Reinitialize() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if err := o.commandLocked("INIT"); err != nil {
		return err
	}
	o.state.CarrierFrequency = 0
	o.state.Calibration = 0
	return o.commandLocked(fmt.Sprintf("VFO %d", o.state.ActiveFrequency))
}

// State returns what the board has acknowledged
func (o *SerialOscillator) State() OscillatorState {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.state
}
