package hardware

import (
	"sync"
	"time"
)

type scriptEvent struct {
	at     time.Duration
	pulses int
	level  int // -1 unchanged, 0 up, 1 down
}

// ScriptedInput replays encoder pulses and button presses against a
// SimClock. Events are queued with a cursor that Wait moves forward, so a
// script reads as a sequence of user actions:
//
//	in.Wait(time.Second).Rotate(12).Wait(200*time.Millisecond).Click(80*time.Millisecond)
//
// Pulses that arrive while nobody is reading accumulate until the next read.
type ScriptedInput struct {
	clock *SimClock

	mu      sync.Mutex
	cursor  time.Duration
	events  []scriptEvent
	next    int
	down    bool
	pending int
}

// NewScriptedInput creates an idle script on clock
func NewScriptedInput(clock *SimClock) *ScriptedInput {
	return &ScriptedInput{clock: clock}
}

// Wait moves the script cursor forward by d
func (s *ScriptedInput) Wait(d time.Duration) *ScriptedInput {
	s.mu.Lock()
	s.cursor += d
	s.mu.Unlock()
	return s
}

// Rotate queues n encoder pulses; negative is counter-clockwise
func (s *ScriptedInput) Rotate(n int) *ScriptedInput {
	return s.add(scriptEvent{pulses: n, level: -1})
}

// Press queues the button going down
func (s *ScriptedInput) Press() *ScriptedInput {
	return s.add(scriptEvent{level: 1})
}

// Release queues the button going up
func (s *ScriptedInput) Release() *ScriptedInput {
	return s.add(scriptEvent{level: 0})
}

// Click presses the button, holds it for hold and releases it
func (s *ScriptedInput) Click(hold time.Duration) *ScriptedInput {
	return s.Press().Wait(hold).Release()
}

// Down sets the button level at the current cursor without queueing a
// separate press, for starting a script with the button already held
func (s *ScriptedInput) Down() *ScriptedInput {
	s.mu.Lock()
	s.down = true
	s.mu.Unlock()
	return s
}

func (s *ScriptedInput) add(ev scriptEvent) *ScriptedInput {
	s.mu.Lock()
	ev.at = s.cursor
	s.events = append(s.events, ev)
	s.mu.Unlock()
	return s
}

// advance applies every event that is due; callers hold s.mu
func (s *ScriptedInput) advance() {
	now := s.clock.Now()
	for s.next < len(s.events) && s.events[s.next].at <= now {
		ev := s.events[s.next]
		s.pending += ev.pulses
		switch ev.level {
		case 0:
			s.down = false
		case 1:
			s.down = true
		}
		s.next++
	}
}

// Pulses implements input.PulseSource
func (s *ScriptedInput) Pulses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	n := s.pending
	s.pending = 0
	return n
}

// IsButtonDown implements input.LevelSource
func (s *ScriptedInput) IsButtonDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	return s.down
}

// Done reports whether every queued event has been played
func (s *ScriptedInput) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	return s.next == len(s.events)
}

// End returns the script time of the last queued event
func (s *ScriptedInput) End() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}
