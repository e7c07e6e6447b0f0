package display

import (
	"fmt"
	"image/color"
	"sync"
)

// Operation kinds recorded by Recorder
const (
	OpClear  = "clear"
	OpDialog = "dialog"
	OpText   = "text"
	OpRect   = "rect"
)

// Op is one drawing call
type Op struct {
	Kind   string
	Text   string // text, or the dialog title
	Sub    string // dialog subtitle
	X, Y   int16
	W, H   int16
	FG     color.RGBA
	BG     color.RGBA
	Border color.RGBA
}

func (o Op) String() string {
	switch o.Kind {
	case OpClear:
		return "clear"
	case OpDialog:
		return fmt.Sprintf("dialog %q %q", o.Text, o.Sub)
	case OpText:
		return fmt.Sprintf("text %q @%d,%d", o.Text, o.X, o.Y)
	default:
		return fmt.Sprintf("rect @%d,%d %dx%d", o.X, o.Y, o.W, o.H)
	}
}

// Recorder keeps every drawing call in order instead of drawing. Tests and
// the headless simulator use it to see what the menu showed.
type Recorder struct {
	mu  sync.RWMutex
	ops []Op
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(op Op) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

// Clear records a screen clear
func (r *Recorder) Clear(c color.RGBA) {
	r.add(Op{Kind: OpClear, BG: c})
}

// DrawDialogHeader records a dialog
func (r *Recorder) DrawDialogHeader(title, subtitle string) {
	r.add(Op{Kind: OpDialog, Text: title, Sub: subtitle})
}

// DrawText records a text box
func (r *Recorder) DrawText(text string, x, y, w, h int16, fg, bg, border color.RGBA) {
	r.add(Op{Kind: OpText, Text: text, X: x, Y: y, W: w, H: h, FG: fg, BG: bg, Border: border})
}

// DrawRect records a rectangle outline
func (r *Recorder) DrawRect(x, y, w, h int16, c color.RGBA) {
	r.add(Op{Kind: OpRect, X: x, Y: y, W: w, H: h, Border: c})
}

// Ops returns a copy of the recorded calls
func (r *Recorder) Ops() []Op {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Op(nil), r.ops...)
}

// Texts returns the text of every text box, in order
func (r *Recorder) Texts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, op := range r.ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

// Count returns how many calls of kind were recorded
func (r *Recorder) Count(kind string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, op := range r.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Last returns the last call of kind
func (r *Recorder) Last(kind string) (Op, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.ops) - 1; i >= 0; i-- {
		if r.ops[i].Kind == kind {
			return r.ops[i], true
		}
	}
	return Op{}, false
}

// Reset drops everything recorded
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.ops = nil
	r.mu.Unlock()
}
