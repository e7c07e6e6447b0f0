package menu

import (
	"context"
	"errors"

	"github.com/dougsko/rigsetup/pkg/input"
	"github.com/dougsko/rigsetup/pkg/logging"
)

// Menu entries, in display order
const (
	EntrySetFreq = iota
	EntrySetBFO
	EntryCWDelay
	EntryCWKeyer
	EntryTouch
	EntryExit
	NumEntries
)

// CountsPerItem is the number of encoder steps between two entries
const CountsPerItem = 10

// MaxCursor is the largest selection cursor value
const MaxCursor = NumEntries*CountsPerItem - 1

type entryKind int

const (
	entryEditor entryKind = iota
	entryTouch
	entryExit
)

type entry struct {
	label  string
	kind   entryKind
	editor Editor
}

// Deps are the collaborators of the setup menu
type Deps struct {
	Display    Display
	Input      Input
	Oscillator Oscillator
	Clock      Clock
	Gate       *Gate
	Beat       BeatMeter
	Procedures Procedures
}

// Options change the flow of the menu
type Options struct {
	Timing Timing
	// ReturnAfterSave leaves the menu after the BFO, CW delay and keyer
	// editors commit
	ReturnAfterSave bool
}

// Navigator is the setup menu: a highlighted entry moved by the encoder and
// a push-button that opens the entry's editor
type Navigator struct {
	session    *Session
	procedures Procedures
	opts       Options
	entries    []entry
	log        *logging.ComponentLogger

	cursor int
	active bool
	puck   int
}

// New creates the setup menu
func New(deps Deps, opts Options) *Navigator {
	log := logging.For("menu")
	session := &Session{
		Display: deps.Display,
		Input:   deps.Input,
		Osc:     deps.Oscillator,
		Clock:   deps.Clock,
		Gate:    deps.Gate,
		Beat:    deps.Beat,
		Timing:  opts.Timing,
		debounce: &input.Debouncer{
			Button: deps.Input,
			Clock:  deps.Clock,
		},
		log: log,
	}

	t := opts.Timing
	return &Navigator{
		session:    session,
		procedures: deps.Procedures,
		opts:       opts,
		log:        log,
		puck:       -1,
		entries: []entry{
			EntrySetFreq: {label: "Set Freq...", kind: entryEditor, editor: newCalibrationEditor(t)},
			EntrySetBFO:  {label: "Set BFO...", kind: entryEditor, editor: newCarrierEditor(t)},
			EntryCWDelay: {label: "CW Delay...", kind: entryEditor, editor: newCWTimeoutEditor(t)},
			EntryCWKeyer: {label: "CW Keyer...", kind: entryEditor, editor: newKeyerEditor(t)},
			EntryTouch:   {label: "Touch Screen...", kind: entryTouch},
			EntryExit:    {label: "Exit", kind: entryExit},
		},
	}
}

// Cursor returns the selection cursor
func (n *Navigator) Cursor() int { return n.cursor }

// Highlighted returns the index of the highlighted entry
func (n *Navigator) Highlighted() int { return n.cursor / CountsPerItem }

// Active reports whether the menu loop is running
func (n *Navigator) Active() bool { return n.active }

// Label returns the text of entry i
func (n *Navigator) Label(i int) string { return n.entries[i].label }

// EnterSetupMenu runs the menu until Exit is chosen. Settings that could not
// be saved are reported as joined *PersistenceFailure errors once the menu
// has closed; a cancelled ctx ends the menu early with ctx.Err().
func (n *Navigator) EnterSetupMenu(ctx context.Context) error {
	n.log.Infof("Entering setup menu")
	if err := n.Enter(ctx); err != nil {
		return err
	}

	var failures []error
	for n.active {
		pressed, err := n.Tick(ctx)
		if err != nil {
			return err
		}
		if !pressed {
			continue
		}

		if err := n.Select(ctx); err != nil {
			var pf *PersistenceFailure
			if !errors.As(err, &pf) {
				return err
			}
			failures = append(failures, err)
		}
	}

	if err := n.session.debounce.WaitRelease(ctx, n.session.Timing.ButtonPoll, n.session.Timing.MenuQuiet); err != nil {
		return err
	}
	n.procedures.checkCAT()
	n.procedures.refresh()
	n.log.Infof("Left setup menu")
	return errors.Join(failures...)
}

// Enter draws the menu, highlights the first entry and waits out the press
// that opened it
func (n *Navigator) Enter(ctx context.Context) error {
	n.drawMenu()
	n.cursor = 0
	n.puck = -1
	n.movePuck(0)

	if err := n.session.debounce.WaitRelease(ctx, n.session.Timing.ButtonPoll, n.session.Timing.MenuQuiet); err != nil {
		return err
	}
	n.active = true
	return nil
}

// Tick reads the encoder once, moves the highlight and reports a confirmed
// press. A confirmed press has already been released and debounced.
func (n *Navigator) Tick(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if d := n.session.Input.ReadEncoderDelta(); d != 0 {
		n.cursor += d
		if n.cursor > MaxCursor {
			n.cursor = MaxCursor
		} else if n.cursor < 0 {
			n.cursor = 0
		}
		n.movePuck(n.Highlighted())
	}

	if !n.session.Input.IsButtonDown() {
		n.session.Clock.Sleep(n.session.Timing.ButtonPoll)
		return false, nil
	}

	if err := n.session.debounce.WaitRelease(ctx, n.session.Timing.ButtonPoll, n.session.Timing.SelectQuiet); err != nil {
		return false, err
	}
	return true, nil
}

// Select runs the highlighted entry, then redraws the whole menu since the
// editor dialog painted over it
func (n *Navigator) Select(ctx context.Context) error {
	i := n.Highlighted()
	e := n.entries[i]
	n.log.Debugf("Selected %q (cursor %d)", e.label, n.cursor)

	var err error
	switch e.kind {
	case entryExit:
		n.active = false
	case entryTouch:
		n.procedures.touch()
	case entryEditor:
		err = e.editor.Run(ctx, n.session)
		if ctx.Err() != nil {
			return err
		}
		if n.opts.ReturnAfterSave && e.editor.LeavesMenu() {
			n.active = false
		}
	}

	n.drawMenu()
	n.puck = -1
	n.movePuck(i)
	return err
}

func (n *Navigator) drawMenu() {
	d := n.session.Display
	d.Clear(colorBackground)
	d.DrawText("Setup", layoutTitleX, layoutTitleY, layoutTitleWidth, layoutTitleHeight,
		colorText, colorTitleBackground, colorActiveBorder)
	for i, e := range n.entries {
		d.DrawText(e.label, layoutItemX, itemY(i), layoutItemWidth, layoutItemHeight,
			colorText, colorBackground, colorInactiveBorder)
	}
}

// movePuck moves the highlight border from the previous entry to entry i
func (n *Navigator) movePuck(i int) {
	if n.puck == i {
		return
	}
	d := n.session.Display
	if n.puck >= 0 {
		d.DrawRect(layoutItemX, itemY(n.puck), layoutItemWidth, layoutItemHeight, colorInactiveBorder)
	}
	d.DrawRect(layoutItemX, itemY(i), layoutItemWidth, layoutItemHeight, colorActiveBorder)
	n.puck = i
}
