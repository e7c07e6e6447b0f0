package zerobeat

import (
	"fmt"
	"math"
	"sync"

	"github.com/mjibson/go-dsp/fft"
)

// Source delivers receiver audio
type Source interface {
	Read(samples []int16) (int, error)
}

// Result is one analysis of a block of audio
type Result struct {
	Frequency float64 `json:"frequency"` // Hz of the strongest tone
	LevelDB   float32 `json:"level_db"`  // RMS level, dBFS
	Valid     bool    `json:"valid"`
}

// Meter finds the beat note in receiver audio while the operator zero-beats
// the reference oscillator
type Meter struct {
	mutex sync.Mutex

	source     Source
	sampleRate int
	fftSize    int
	minLevelDB float32

	samples   []int16
	fftBuffer []complex128
	window    []float64
	last      Result
}

// NewMeter creates a meter reading fftSize samples per estimate. fftSize
// must be a power of two.
func NewMeter(source Source, sampleRate, fftSize int) (*Meter, error) {
	if fftSize < 64 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("fft size %d is not a power of two >= 64", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	return &Meter{
		source:     source,
		sampleRate: sampleRate,
		fftSize:    fftSize,
		minLevelDB: -60,
		samples:    make([]int16, fftSize),
		fftBuffer:  make([]complex128, fftSize),
		window:     makeHannWindow(fftSize),
	}, nil
}

// makeHannWindow creates a Hann window function for FFT
func makeHannWindow(size int) []float64 {
	window := make([]float64, size)
	for i := 0; i < size; i++ {
		window[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(size-1)))
	}
	return window
}

// Estimate reads one block from the source and returns the beat frequency.
// ok is false when the audio is too quiet to hold a tone.
func (m *Meter) Estimate() (float64, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	n, err := m.source.Read(m.samples)
	if err != nil || n < m.fftSize {
		m.last = Result{}
		return 0, false
	}
	m.last = m.analyze(m.samples)
	return m.last.Frequency, m.last.Valid
}

// Last returns the most recent analysis
func (m *Meter) Last() Result {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.last
}

// analyze windows one block, transforms it and locates the strongest bin
func (m *Meter) analyze(samples []int16) Result {
	var sumSquares float64
	for i := 0; i < m.fftSize; i++ {
		sample := float64(samples[i]) / 32768.0
		sumSquares += sample * sample
		m.fftBuffer[i] = complex(sample*m.window[i], 0)
	}

	rms := math.Sqrt(sumSquares / float64(m.fftSize))
	res := Result{LevelDB: -100}
	if rms > 0 {
		res.LevelDB = float32(20.0 * math.Log10(rms))
	}
	if res.LevelDB < m.minLevelDB {
		return res
	}

	spectrum := fft.FFT(m.fftBuffer)
	half := m.fftSize / 2
	mags := make([]float64, half)
	for i := 0; i < half; i++ {
		mags[i] = math.Hypot(real(spectrum[i]), imag(spectrum[i]))
	}

	// skip DC
	peak := 1
	for i := 2; i < half; i++ {
		if mags[i] > mags[peak] {
			peak = i
		}
	}

	// parabolic interpolation between neighbouring bins
	offset := 0.0
	if peak > 1 && peak < half-1 {
		a, b, c := mags[peak-1], mags[peak], mags[peak+1]
		if d := a - 2*b + c; d != 0 {
			offset = 0.5 * (a - c) / d
		}
	}

	binWidth := float64(m.sampleRate) / float64(m.fftSize)
	res.Frequency = (float64(peak) + offset) * binWidth
	res.Valid = true
	return res
}
