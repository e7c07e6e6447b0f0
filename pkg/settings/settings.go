package settings

import (
	"fmt"
	"strings"
)

// Persisted limits and factory values
const (
	DefaultOscillatorCal  int32  = 0
	DefaultUSBCarrierFreq uint32 = 11053000 // Hz, also the BFO editor baseline
	DefaultCWTimeoutMs    uint32 = 500

	MinCWTimeoutMs  uint32 = 100
	MaxCWTimeoutMs  uint32 = 1000
	CWTimeoutStepMs uint32 = 100
)

// KeyerMode selects how the CW paddle input is interpreted
type KeyerMode uint8

const (
	KeyerStraight KeyerMode = iota
	KeyerIambicA
	KeyerIambicB
)

// MinKeyerMode and MaxKeyerMode bound the ordinal range
const (
	MinKeyerMode = KeyerStraight
	MaxKeyerMode = KeyerIambicB
)

// String returns the short name used in config files and the API
func (k KeyerMode) String() string {
	switch k {
	case KeyerStraight:
		return "straight"
	case KeyerIambicA:
		return "iambic_a"
	case KeyerIambicB:
		return "iambic_b"
	default:
		return "unknown"
	}
}

// Label returns the text shown in the keyer editor
func (k KeyerMode) Label() string {
	switch k {
	case KeyerStraight:
		return "< Hand Key >"
	case KeyerIambicA:
		return "< Iambic A >"
	default:
		return "< Iambic B >"
	}
}

// Valid reports whether k is one of the defined modes
func (k KeyerMode) Valid() bool {
	return k >= MinKeyerMode && k <= MaxKeyerMode
}

// ParseKeyerMode parses the short name produced by String
func ParseKeyerMode(s string) (KeyerMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "straight", "hand", "hand_key":
		return KeyerStraight, nil
	case "iambic_a", "iambica", "a":
		return KeyerIambicA, nil
	case "iambic_b", "iambicb", "b":
		return KeyerIambicB, nil
	default:
		return 0, fmt.Errorf("unknown keyer mode %q", s)
	}
}

// Record is the persisted settings record of the transceiver
type Record struct {
	OscillatorCal     int32     `json:"oscillator_cal"`
	USBCarrierFreq    uint32    `json:"usb_carrier_freq"`
	CWActiveTimeoutMs uint32    `json:"cw_active_timeout_ms"`
	KeyerMode         KeyerMode `json:"keyer_mode"`
}

// Defaults returns the factory settings record
func Defaults() Record {
	return Record{
		OscillatorCal:     DefaultOscillatorCal,
		USBCarrierFreq:    DefaultUSBCarrierFreq,
		CWActiveTimeoutMs: DefaultCWTimeoutMs,
		KeyerMode:         KeyerIambicA,
	}
}

// Validate checks the bounded fields of the record
func (r Record) Validate() error {
	if r.CWActiveTimeoutMs < MinCWTimeoutMs || r.CWActiveTimeoutMs > MaxCWTimeoutMs {
		return fmt.Errorf("cw timeout %d ms outside [%d, %d]",
			r.CWActiveTimeoutMs, MinCWTimeoutMs, MaxCWTimeoutMs)
	}
	if !r.KeyerMode.Valid() {
		return fmt.Errorf("invalid keyer mode %d", r.KeyerMode)
	}
	if r.USBCarrierFreq == 0 {
		return fmt.Errorf("usb carrier frequency is zero")
	}
	return nil
}

// Normalize clamps bounded fields into range. Records written by older
// builds may carry values the editors can no longer produce.
func (r Record) Normalize() Record {
	switch {
	case r.CWActiveTimeoutMs < MinCWTimeoutMs:
		r.CWActiveTimeoutMs = MinCWTimeoutMs
	case r.CWActiveTimeoutMs > MaxCWTimeoutMs:
		r.CWActiveTimeoutMs = MaxCWTimeoutMs
	}
	if !r.KeyerMode.Valid() {
		r.KeyerMode = MaxKeyerMode
	}
	if r.USBCarrierFreq == 0 {
		r.USBCarrierFreq = DefaultUSBCarrierFreq
	}
	return r
}
