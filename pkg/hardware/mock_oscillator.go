package hardware

import (
	"fmt"
	"sync"

	"github.com/dougsko/rigsetup/pkg/logging"
)

// OscillatorCall is one operation recorded by MockOscillator
type OscillatorCall struct {
	Op    string
	Value int64
}

func (c OscillatorCall) String() string {
	return fmt.Sprintf("%s(%d)", c.Op, c.Value)
}

// MockOscillator implements Oscillator for testing and the simulator
type MockOscillator struct {
	config OscillatorConfig
	mutex  sync.RWMutex
	log    *logging.ComponentLogger

	// Mock state
	connected bool
	state     OscillatorState
	reinits   int
	calls     []OscillatorCall

	// FailOp makes the named operation return an error
	failOp string
}

// NewMockOscillator creates a new mock oscillator
func NewMockOscillator(config OscillatorConfig) *MockOscillator {
	return &MockOscillator{
		config: config,
		log:    logging.For("MockOscillator"),
		state: OscillatorState{
			ActiveFrequency: config.VFOFrequency,
		},
	}
}

// Initialize initializes the mock oscillator
func (o *MockOscillator) Initialize() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.connected = true
	o.log.Infof("Mock oscillator ready, VFO %.3f MHz", float64(o.state.ActiveFrequency)/1000000.0)
	return nil
}

// Close closes the mock oscillator
func (o *MockOscillator) Close() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if !o.connected {
		return nil
	}
	o.log.Infof("Closing mock oscillator")
	o.connected = false
	return nil
}

// FailOn makes every later call of op fail; "" clears it
func (o *MockOscillator) FailOn(op string) {
	o.mutex.Lock()
	o.failOp = op
	o.mutex.Unlock()
}

// record logs a call and reports the injected failure; callers hold the lock
func (o *MockOscillator) record(op string, value int64) error {
	o.calls = append(o.calls, OscillatorCall{Op: op, Value: value})
	if !o.connected {
		return fmt.Errorf("oscillator not connected")
	}
	if o.failOp == op {
		return fmt.Errorf("%s failed (mock)", op)
	}
	return nil
}

// SetCarrierFrequency sets the mock carrier
func (o *MockOscillator) SetCarrierFrequency(hz uint32) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if err := o.record("carrier", int64(hz)); err != nil {
		return err
	}
	o.log.Debugf("Carrier %d Hz", hz)
	o.state.CarrierFrequency = hz
	return nil
}

// SetCalibration sets the mock calibration
func (o *MockOscillator) SetCalibration(cal int32) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if err := o.record("calibration", int64(cal)); err != nil {
		return err
	}
	o.log.Debugf("Calibration %d", cal)
	o.state.Calibration = cal
	return nil
}

// SetActiveFrequency sets the mock VFO
func (o *MockOscillator) SetActiveFrequency(hz uint32) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if err := o.record("frequency", int64(hz)); err != nil {
		return err
	}
	o.log.Debugf("Frequency %d Hz", hz)
	o.state.ActiveFrequency = hz
	return nil
}

// ActiveFrequency returns the mock VFO
func (o *MockOscillator) ActiveFrequency() uint32 {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.state.ActiveFrequency
}

// Reinitialize clears the carrier and calibration like a reset board
func (o *MockOscillator) Reinitialize() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if err := o.record("init", 0); err != nil {
		return err
	}
	o.state.CarrierFrequency = 0
	o.state.Calibration = 0
	o.reinits++
	return nil
}

// State returns what the mock has been told to produce
func (o *MockOscillator) State() OscillatorState {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.state
}

// Reinits returns how many times Reinitialize succeeded
func (o *MockOscillator) Reinits() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.reinits
}

// Calls returns every call made so far
func (o *MockOscillator) Calls() []OscillatorCall {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return append([]OscillatorCall(nil), o.calls...)
}

// ResetCalls clears the call log
func (o *MockOscillator) ResetCalls() {
	o.mutex.Lock()
	o.calls = nil
	o.mutex.Unlock()
}

// IsConnected returns mock connection state
func (o *MockOscillator) IsConnected() bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.connected
}
