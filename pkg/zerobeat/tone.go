package zerobeat

import (
	"math"
	"sync"
)

// ToneSource synthesises the beat note the receiver would produce, for the
// simulator. The pitch is asked for on every read so it follows the
// oscillator while the operator turns the knob.
type ToneSource struct {
	mutex sync.Mutex

	sampleRate int
	amplitude  float64
	frequency  func() float64
	phase      float64
}

// NewToneSource creates a tone at half full scale
func NewToneSource(sampleRate int, frequency func() float64) *ToneSource {
	return &ToneSource{
		sampleRate: sampleRate,
		amplitude:  0.5,
		frequency:  frequency,
	}
}

// SetAmplitude sets the level, 0 to 1 of full scale
func (t *ToneSource) SetAmplitude(a float64) {
	t.mutex.Lock()
	t.amplitude = math.Max(0, math.Min(1, a))
	t.mutex.Unlock()
}

// Read fills samples with the tone, continuing the phase of the last read
func (t *ToneSource) Read(samples []int16) (int, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	step := 2 * math.Pi * math.Abs(t.frequency()) / float64(t.sampleRate)
	for i := range samples {
		samples[i] = int16(t.amplitude * 32767 * math.Sin(t.phase))
		t.phase += step
		if t.phase > 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
	return len(samples), nil
}
