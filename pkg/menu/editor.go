package menu

import (
	"context"
	"errors"
	"time"

	"github.com/dougsko/rigsetup/pkg/input"
	"github.com/dougsko/rigsetup/pkg/logging"
	"github.com/dougsko/rigsetup/pkg/settings"
)

// Session is what a running editor works against
type Session struct {
	Display Display
	Input   Input
	Osc     Oscillator
	Clock   Clock
	Gate    *Gate
	Beat    BeatMeter
	Timing  Timing

	debounce *input.Debouncer
	log      *logging.ComponentLogger
}

// Record is the working settings record
func (s *Session) Record() *settings.Record {
	return s.Gate.Record()
}

func (s *Session) apply(name string, err error) {
	if err != nil {
		s.log.Warnf("%s: hardware apply failed: %v", name, err)
	}
}

// Editor is one entry that opens a live adjustment dialog
type Editor interface {
	Run(ctx context.Context, s *Session) error
	// LeavesMenu reports whether the radio returns to normal operation
	// after this editor commits, when that behaviour is enabled
	LeavesMenu() bool
}

// Setting is the bounded live-adjustment loop for one field of the record.
// Step returns false when the value cannot move (a clamp bound or a zero
// delta); nothing is applied or redrawn in that case.
type Setting[T comparable] struct {
	Name     string
	Title    string
	Subtitle string

	EntryQuiet  time.Duration
	ChangeDelay time.Duration
	SettleDelay time.Duration
	IdleEvery   time.Duration
	Leaves      bool

	Current func(rec *settings.Record) T
	Prime   func(s *Session, previous T) T
	Step    func(v T, delta int) (T, bool)
	Apply   func(s *Session, v T) error
	Render  func(s *Session, v T)
	Store   func(rec *settings.Record, v T)
	Resync  func(s *Session, v T)
	// Idle runs every IdleEvery of polling with no knob movement. It must
	// not redraw the value.
	Idle func(s *Session)
}

// LeavesMenu implements Editor
func (st *Setting[T]) LeavesMenu() bool {
	return st.Leaves
}

// Run shows the dialog, tracks the encoder until the button goes down,
// then commits the working value.
func (st *Setting[T]) Run(ctx context.Context, s *Session) error {
	s.Display.DrawDialogHeader(st.Title, st.Subtitle)

	previous := st.Current(s.Record())
	working := previous
	if st.Prime != nil {
		working = st.Prime(s, previous)
	}
	s.log.Debugf("%s: editing, previous %v, working %v", st.Name, previous, working)

	// the press that selected this entry must not commit it
	if err := s.debounce.WaitRelease(ctx, s.Timing.EditorPoll, st.EntryQuiet); err != nil {
		return err
	}

	var idle time.Duration
	for !s.Input.IsButtonDown() {
		if err := ctx.Err(); err != nil {
			return err
		}

		delta := s.Input.ReadEncoderDelta()
		if delta == 0 {
			s.Clock.Sleep(s.Timing.Poll)
			if st.Idle != nil && st.IdleEvery > 0 {
				idle += s.Timing.Poll
				if idle >= st.IdleEvery {
					idle = 0
					st.Idle(s)
				}
			}
			continue
		}

		next, changed := st.Step(working, delta)
		if !changed {
			continue
		}
		working = next

		if st.Apply != nil {
			s.apply(st.Name, st.Apply(s, working))
		}
		if st.Render != nil {
			st.Render(s, working)
		}
		if st.ChangeDelay > 0 {
			s.Clock.Sleep(st.ChangeDelay)
		}
	}

	st.Store(s.Record(), working)
	err := s.Gate.Commit(func() {
		if st.Resync != nil {
			st.Resync(s, working)
		}
	})
	if err == nil {
		s.log.Infof("%s: committed %v", st.Name, working)
	}

	if derr := s.debounce.WaitRelease(ctx, s.Timing.ButtonPoll, s.Timing.CommitQuiet); derr != nil {
		return errors.Join(err, derr)
	}
	if st.SettleDelay > 0 {
		s.Clock.Sleep(st.SettleDelay)
	}
	return err
}
