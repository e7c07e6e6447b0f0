package input

import (
	"context"
	"time"
)

// Sleeper blocks for a fixed duration
type Sleeper interface {
	Sleep(d time.Duration)
}

// Debouncer implements the press -> wait-for-release -> quiet interval
// policy applied at every state transition. One physical press therefore
// never reads as two logical presses.
type Debouncer struct {
	Button LevelSource
	Clock  Sleeper
}

// WaitRelease polls the button every poll until it is up, then holds for quiet.
func (d *Debouncer) WaitRelease(ctx context.Context, poll, quiet time.Duration) error {
	for d.Button.IsButtonDown() {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.Clock.Sleep(poll)
	}
	if quiet > 0 {
		d.Clock.Sleep(quiet)
	}
	return ctx.Err()
}

// Edge is a debounced button transition
type Edge int

const (
	EdgeNone Edge = iota
	EdgePressed
	EdgeReleased
)

func (e Edge) String() string {
	switch e {
	case EdgePressed:
		return "pressed"
	case EdgeReleased:
		return "released"
	default:
		return "none"
	}
}

// EdgeDetector turns a button level into press/release edges
type EdgeDetector struct {
	Button LevelSource
	down   bool
}

// Poll samples the button once and reports the transition since the last sample
func (e *EdgeDetector) Poll() Edge {
	down := e.Button.IsButtonDown()
	if down == e.down {
		return EdgeNone
	}
	e.down = down
	if down {
		return EdgePressed
	}
	return EdgeReleased
}
