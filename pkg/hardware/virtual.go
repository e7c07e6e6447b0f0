package hardware

import "sync"

// VirtualInput is an encoder and button driven from software, used by the
// web panel in place of the front panel knob
type VirtualInput struct {
	mu     sync.Mutex
	pulses int
	down   bool
}

// NewVirtualInput creates a virtual input with the button up
func NewVirtualInput() *VirtualInput {
	return &VirtualInput{}
}

// Rotate adds n pulses; negative is counter-clockwise
func (v *VirtualInput) Rotate(n int) {
	v.mu.Lock()
	v.pulses += n
	v.mu.Unlock()
}

// SetButton sets the button level
func (v *VirtualInput) SetButton(down bool) {
	v.mu.Lock()
	v.down = down
	v.mu.Unlock()
}

// Pulses implements input.PulseSource
func (v *VirtualInput) Pulses() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := v.pulses
	v.pulses = 0
	return n
}

// IsButtonDown implements input.LevelSource
func (v *VirtualInput) IsButtonDown() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.down
}
