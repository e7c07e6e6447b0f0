package hardware

// OscillatorConfig represents oscillator configuration
type OscillatorConfig struct {
	Backend       string // "mock" or "serial"
	Device        string // Serial device path (e.g., /dev/ttyUSB0)
	BaudRate      int
	ReadTimeoutMs int
	VFOFrequency  uint32 // Active frequency at start-up, Hz
}

// Oscillator drives the clock generator that makes the carrier (BFO) and
// the VFO of the radio
type Oscillator interface {
	Initialize() error
	Close() error

	SetCarrierFrequency(hz uint32) error
	SetCalibration(cal int32) error
	SetActiveFrequency(hz uint32) error
	ActiveFrequency() uint32

	// Reinitialize resets the synthesiser and restores the VFO. The carrier
	// and calibration read zero until they are programmed again.
	Reinitialize() error
}

// OscillatorState is what the oscillator has been told to produce
type OscillatorState struct {
	CarrierFrequency uint32 `json:"carrier_frequency"`
	Calibration      int32  `json:"calibration"`
	ActiveFrequency  uint32 `json:"active_frequency"`
}
