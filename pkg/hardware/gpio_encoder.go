package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/dougsko/rigsetup/pkg/logging"
)

// EncoderConfig represents the front panel knob wiring
type EncoderConfig struct {
	PinA          int
	PinB          int
	ButtonPin     int
	SamplePeriod  time.Duration
	StableSamples int
}

// GPIOEncoder samples a quadrature encoder and its push switch on the
// Raspberry Pi GPIO header. The switch is active low with the internal
// pull-up enabled.
type GPIOEncoder struct {
	config EncoderConfig
	log    *logging.ComponentLogger

	pinA   rpio.Pin
	pinB   rpio.Pin
	button rpio.Pin

	mutex   sync.Mutex
	pulses  int
	down    bool
	decoder QuadratureDecoder
	filter  *ButtonFilter

	cancel context.CancelFunc
	done   chan struct{}
}

// NewGPIOEncoder creates an encoder; pins are claimed by Initialize
func NewGPIOEncoder(config EncoderConfig) *GPIOEncoder {
	if config.SamplePeriod <= 0 {
		config.SamplePeriod = 500 * time.Microsecond
	}
	return &GPIOEncoder{
		config: config,
		log:    logging.For("GPIOEncoder"),
		pinA:   rpio.Pin(config.PinA),
		pinB:   rpio.Pin(config.PinB),
		button: rpio.Pin(config.ButtonPin),
		filter: NewButtonFilter(config.StableSamples),
	}
}

// Initialize maps the GPIO registers and starts sampling
func (e *GPIOEncoder) Initialize() error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("GPIO not available on this system: %w", err)
	}

	for _, pin := range []rpio.Pin{e.pinA, e.pinB, e.button} {
		pin.Input()
		pin.PullUp()
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.sampleLoop(ctx)

	e.log.Infof("Encoder on pins %d/%d, button on pin %d, sampling every %v",
		e.config.PinA, e.config.PinB, e.config.ButtonPin, e.config.SamplePeriod)
	return nil
}

// Close stops sampling and releases the GPIO mapping
func (e *GPIOEncoder) Close() error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()
	<-e.done
	e.cancel = nil
	e.log.Infof("Closed")
	return rpio.Close()
}

func (e *GPIOEncoder) sampleLoop(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.config.SamplePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sample(
				e.pinA.Read() == rpio.Low,
				e.pinB.Read() == rpio.Low,
				e.button.Read() == rpio.Low,
			)
		}
	}
}

// sample feeds one reading of the three lines
func (e *GPIOEncoder) sample(a, b, pressed bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.pulses += e.decoder.Update(a, b)
	e.down = e.filter.Sample(pressed)
}

// Pulses implements input.PulseSource
func (e *GPIOEncoder) Pulses() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	n := e.pulses
	e.pulses = 0
	return n
}

// IsButtonDown implements input.LevelSource
func (e *GPIOEncoder) IsButtonDown() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.down
}
