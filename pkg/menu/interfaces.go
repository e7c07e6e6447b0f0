package menu

import (
	"image/color"
	"time"

	"github.com/dougsko/rigsetup/pkg/settings"
)

// Display is the drawing surface the menu renders on
type Display interface {
	Clear(c color.RGBA)
	DrawDialogHeader(title, subtitle string)
	DrawText(text string, x, y, w, h int16, fg, bg, border color.RGBA)
	DrawRect(x, y, w, h int16, c color.RGBA)
}

// Input is the quantized encoder and the debounced button level
type Input interface {
	ReadEncoderDelta() int
	IsButtonDown() bool
}

// Oscillator is the frequency synthesis subsystem
type Oscillator interface {
	SetCarrierFrequency(hz uint32) error
	SetCalibration(cal int32) error
	SetActiveFrequency(hz uint32) error
	ActiveFrequency() uint32
	// Reinitialize resets the synthesiser; the carrier and calibration
	// must be programmed again afterwards
	Reinitialize() error
}

// Store loads and saves the non-volatile settings record
type Store interface {
	Load() (settings.Record, error)
	Save(rec settings.Record) error
}

// Clock provides the blocking delays used for debounce
type Clock interface {
	Sleep(d time.Duration)
}

// BeatMeter estimates the audible beat note while zero-beating
type BeatMeter interface {
	Estimate() (hz float64, ok bool)
}

// Procedures are routines owned by the rest of the radio firmware. Any of
// them may be nil.
type Procedures struct {
	TouchCalibration func()
	CheckCAT         func()
	RefreshDisplay   func()
}

func (p Procedures) touch() {
	if p.TouchCalibration != nil {
		p.TouchCalibration()
	}
}

func (p Procedures) checkCAT() {
	if p.CheckCAT != nil {
		p.CheckCAT()
	}
}

func (p Procedures) refresh() {
	if p.RefreshDisplay != nil {
		p.RefreshDisplay()
	}
}
