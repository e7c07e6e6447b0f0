package menu

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dougsko/rigsetup/pkg/settings"
)

// Step sizes per quantized encoder step
const (
	CalibrationStep = 875
	CarrierStepHz   = 50
	minCarrierHz    = CarrierStepHz
)

const saveHint = "Push TUNE to Save"

// StepCalibration moves the oscillator trim by 875 units per step. The
// trim has no bound of its own; it only saturates at the int32 limits.
func StepCalibration(v int32, delta int) (int32, bool) {
	next := int64(v) + int64(delta)*CalibrationStep
	if next > math.MaxInt32 {
		next = math.MaxInt32
	} else if next < math.MinInt32 {
		next = math.MinInt32
	}
	return int32(next), int32(next) != v
}

// StepCarrier moves the BFO by -50 Hz per step; clockwise lowers the
// carrier so the received pitch rises
func StepCarrier(v uint32, delta int) (uint32, bool) {
	next := int64(v) - int64(delta)*CarrierStepHz
	if next > math.MaxUint32 {
		next = math.MaxUint32
	} else if next < minCarrierHz {
		next = minCarrierHz
	}
	return uint32(next), uint32(next) != v
}

// StepCWTimeout moves the T/R delay by one 100 ms step per read whatever
// the magnitude of delta, and refuses to leave [100, 1000]
func StepCWTimeout(v uint32, delta int) (uint32, bool) {
	switch {
	case delta < 0 && v > settings.MinCWTimeoutMs:
		return v - settings.CWTimeoutStepMs, true
	case delta > 0 && v < settings.MaxCWTimeoutMs:
		return v + settings.CWTimeoutStepMs, true
	default:
		return v, false
	}
}

// StepKeyerMode moves one mode per read, no wraparound
func StepKeyerMode(v settings.KeyerMode, delta int) (settings.KeyerMode, bool) {
	switch {
	case delta < 0 && v > settings.MinKeyerMode:
		return v - 1, true
	case delta > 0 && v < settings.MaxKeyerMode:
		return v + 1, true
	default:
		return v, false
	}
}

// FormatCarrier renders a frequency as dotted groups, 11053000 -> 11.053.000
func FormatCarrier(hz uint32) string {
	s := strconv.FormatUint(uint64(hz), 10)
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, s[i])
	}
	return string(out)
}

func drawInstruction(s *Session, line int16, text string) {
	s.Display.DrawText(text, instructionX, line, layoutItemWidth+20, lineHeight, ColorCyan, ColorNavy, ColorNavy)
}

func newCalibrationEditor(t Timing) *Setting[int32] {
	return &Setting[int32]{
		Name:       "calibration",
		Title:      "Set Frequency",
		Subtitle:   saveHint,
		EntryQuiet: t.EditorQuiet,
		Current:    func(rec *settings.Record) int32 { return rec.OscillatorCal },
		Prime: func(s *Session, _ int32) int32 {
			// zero-beat against a signal on a round kHz
			freq := s.Osc.ActiveFrequency() / 1000 * 1000
			s.apply("calibration", s.Osc.SetActiveFrequency(freq))

			drawInstruction(s, 50, "You should have a")
			drawInstruction(s, 75, "signal exactly at")
			drawInstruction(s, 100, fmt.Sprintf("%d KHz", freq/1000))
			drawInstruction(s, 180, "Rotate to zerobeat")

			// adjust from a known baseline
			return 0
		},
		Step: StepCalibration,
		Apply: func(s *Session, v int32) error {
			// CW transmit may have switched the carrier oscillator off
			return errors.Join(
				s.Osc.SetCarrierFrequency(s.Record().USBCarrierFreq),
				s.Osc.SetCalibration(v),
				s.Osc.SetActiveFrequency(s.Osc.ActiveFrequency()),
			)
		},
		Render: func(s *Session, v int32) {
			s.Display.DrawText(strconv.FormatInt(int64(v), 10), valueX, calValueY, calValueWidth, valueHeight,
				ColorCyan, ColorNavy, ColorWhite)
			drawBeat(s)
		},
		IdleEvery: beatRefresh,
		Idle:      drawBeat,
		Store:     func(rec *settings.Record, v int32) { rec.OscillatorCal = v },
		Resync: func(s *Session, v int32) {
			s.apply("calibration", errors.Join(
				s.Osc.Reinitialize(),
				s.Osc.SetCarrierFrequency(s.Record().USBCarrierFreq),
				s.Osc.SetCalibration(v),
				s.Osc.SetActiveFrequency(s.Osc.ActiveFrequency()),
			))
		},
	}
}

// beatRefresh is how often the beat readout is redrawn while the knob rests
const beatRefresh = 250 * time.Millisecond

func drawBeat(s *Session) {
	if s.Beat == nil {
		return
	}
	if hz, ok := s.Beat.Estimate(); ok {
		drawInstruction(s, 205, fmt.Sprintf("Beat: %.0f Hz", hz))
	} else {
		drawInstruction(s, 205, "Beat: --")
	}
}

func renderCarrier(s *Session, v uint32) {
	s.Display.DrawText(FormatCarrier(v), valueX, valueY, valueWidth, valueHeight, ColorCyan, ColorNavy, ColorNavy)
}

func newCarrierEditor(t Timing) *Setting[uint32] {
	return &Setting[uint32]{
		Name:        "bfo",
		Title:       "Set BFO",
		Subtitle:    saveHint,
		EntryQuiet:  t.EditorQuiet,
		ChangeDelay: t.CarrierChange,
		Leaves:      true,
		Current:     func(rec *settings.Record) uint32 { return rec.USBCarrierFreq },
		Prime: func(s *Session, _ uint32) uint32 {
			// always start from the factory carrier, not the saved one
			v := settings.DefaultUSBCarrierFreq
			s.apply("bfo", s.Osc.SetCarrierFrequency(v))
			renderCarrier(s, v)
			return v
		},
		Step: StepCarrier,
		Apply: func(s *Session, v uint32) error {
			return errors.Join(
				s.Osc.SetCarrierFrequency(v),
				s.Osc.SetActiveFrequency(s.Osc.ActiveFrequency()),
			)
		},
		Render: renderCarrier,
		Store:  func(rec *settings.Record, v uint32) { rec.USBCarrierFreq = v },
		Resync: func(s *Session, v uint32) {
			s.apply("bfo", errors.Join(
				s.Osc.SetCarrierFrequency(v),
				s.Osc.SetActiveFrequency(s.Osc.ActiveFrequency()),
			))
		},
	}
}

func renderCWTimeout(s *Session, v uint32) {
	s.Display.DrawText(fmt.Sprintf("%d msec", v), valueX, valueY, valueWidth, valueHeight,
		ColorCyan, ColorBlack, ColorBlack)
}

func newCWTimeoutEditor(t Timing) *Setting[uint32] {
	return &Setting[uint32]{
		Name:        "cw_delay",
		Title:       "Set CW T/R Delay",
		Subtitle:    saveHint,
		EntryQuiet:  t.CWEntryQuiet,
		SettleDelay: t.Settle,
		Leaves:      true,
		Current:     func(rec *settings.Record) uint32 { return rec.CWActiveTimeoutMs },
		Prime: func(s *Session, v uint32) uint32 {
			renderCWTimeout(s, v)
			return v
		},
		Step:   StepCWTimeout,
		Render: renderCWTimeout,
		Store:  func(rec *settings.Record, v uint32) { rec.CWActiveTimeoutMs = v },
	}
}

func renderKeyerMode(s *Session, v settings.KeyerMode) {
	s.Display.DrawText(v.Label(), valueX, valueY, valueWidth, valueHeight, ColorCyan, ColorBlack, ColorBlack)
}

func newKeyerEditor(t Timing) *Setting[settings.KeyerMode] {
	return &Setting[settings.KeyerMode]{
		Name:        "keyer",
		Title:       "Set CW Keyer",
		Subtitle:    saveHint,
		EntryQuiet:  t.EditorQuiet,
		SettleDelay: t.Settle,
		Leaves:      true,
		Current:     func(rec *settings.Record) settings.KeyerMode { return rec.KeyerMode },
		Prime: func(s *Session, v settings.KeyerMode) settings.KeyerMode {
			renderKeyerMode(s, v)
			return v
		},
		Step:   StepKeyerMode,
		Render: renderKeyerMode,
		Store:  func(rec *settings.Record, v settings.KeyerMode) { rec.KeyerMode = v },
	}
}
