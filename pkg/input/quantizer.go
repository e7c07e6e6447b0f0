package input

import "sync"

// PulseSource reports raw encoder pulses counted since the previous call
type PulseSource interface {
	Pulses() int
}

// LevelSource reports the button level, already debounced at the sampling boundary
type LevelSource interface {
	IsButtonDown() bool
}

// Quantizer converts raw encoder pulses into logical steps. Pulses that do
// not yet make up a whole step are carried to the next read with their sign,
// so slow rotation is not lost.
type Quantizer struct {
	pulses        PulseSource
	button        LevelSource
	pulsesPerStep int

	mu        sync.Mutex
	remainder int
}

// NewQuantizer creates a quantizer. pulsesPerStep below 1 is treated as 1.
func NewQuantizer(pulses PulseSource, button LevelSource, pulsesPerStep int) *Quantizer {
	if pulsesPerStep < 1 {
		pulsesPerStep = 1
	}
	return &Quantizer{
		pulses:        pulses,
		button:        button,
		pulsesPerStep: pulsesPerStep,
	}
}

// ReadEncoderDelta returns the whole steps accumulated since the last read
func (q *Quantizer) ReadEncoderDelta() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.remainder += q.pulses.Pulses()
	steps := q.remainder / q.pulsesPerStep // truncates toward zero
	q.remainder -= steps * q.pulsesPerStep
	return steps
}

// IsButtonDown passes the button level through
func (q *Quantizer) IsButtonDown() bool {
	return q.button.IsButtonDown()
}

// PulsesPerStep returns the configured quantization
func (q *Quantizer) PulsesPerStep() int {
	return q.pulsesPerStep
}

// Reset drops any partial step
func (q *Quantizer) Reset() {
	q.mu.Lock()
	q.remainder = 0
	q.mu.Unlock()
}
