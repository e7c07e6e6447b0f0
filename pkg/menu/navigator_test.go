package menu

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dougsko/rigsetup/pkg/display"
	"github.com/dougsko/rigsetup/pkg/hardware"
	"github.com/dougsko/rigsetup/pkg/input"
	"github.com/dougsko/rigsetup/pkg/settings"
	"github.com/dougsko/rigsetup/pkg/storage"
)

const (
	gap  = time.Second
	hold = 100 * time.Millisecond
)

type fakeBeat struct {
	hz float64
	ok bool
}

func (f fakeBeat) Estimate() (float64, bool) { return f.hz, f.ok }

// driftingBeat falls 10 Hz per reading, like a carrier being tuned in
type driftingBeat struct {
	hz    float64
	reads int
}

func (b *driftingBeat) Estimate() (float64, bool) {
	b.reads++
	return b.hz - float64(10*b.reads), true
}

// rig is a radio front panel on virtual time
type rig struct {
	clock  *hardware.SimClock
	script *hardware.ScriptedInput
	screen *display.Recorder
	osc    *hardware.MockOscillator
	store  *storage.MemoryStore
	gate   *Gate
	nav    *Navigator

	touches int
	catRuns int
	redraws int
}

func newRig(t *testing.T, stored *settings.Record, opts Options) *rig {
	t.Helper()

	r := &rig{
		clock:  hardware.NewSimClock(),
		screen: display.NewRecorder(),
		osc:    hardware.NewMockOscillator(hardware.OscillatorConfig{VFOFrequency: 7150321}),
		store:  storage.NewMemoryStore(),
	}
	r.script = hardware.NewScriptedInput(r.clock)
	if stored != nil {
		r.store = storage.NewMemoryStoreWith(*stored)
	}
	require.NoError(t, r.osc.Initialize())

	r.gate = NewGate(r.store)
	_, err := r.gate.Load()
	require.NoError(t, err)

	if opts.Timing == (Timing{}) {
		opts.Timing = DefaultTiming()
	}
	r.nav = New(Deps{
		Display:    r.screen,
		Input:      input.NewQuantizer(r.script, r.script, 1),
		Oscillator: r.osc,
		Clock:      r.clock,
		Gate:       r.gate,
		Beat:       fakeBeat{hz: 440, ok: true},
		Procedures: Procedures{
			TouchCalibration: func() { r.touches++ },
			CheckCAT:         func() { r.catRuns++ },
			RefreshDisplay:   func() { r.redraws++ },
		},
	}, opts)
	return r
}

// context cancels a minute of virtual time after the script ends so a
// stuck loop fails the test instead of hanging it
func (r *rig) context(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r.clock.AfterFunc(r.script.End()+time.Minute, cancel)
	return ctx
}

// selectEntry scrolls down by steps and presses the button
func (r *rig) selectEntry(steps int) {
	r.script.Wait(gap)
	if steps != 0 {
		r.script.Rotate(steps).Wait(gap)
	}
	r.script.Click(hold)
}

// turn rotates one quantized step at a time
func (r *rig) turn(steps int) {
	dir := 1
	if steps < 0 {
		dir, steps = -1, -steps
	}
	r.script.Wait(gap)
	for i := 0; i < steps; i++ {
		r.script.Rotate(dir).Wait(50 * time.Millisecond)
	}
}

func (r *rig) commit() {
	r.script.Wait(gap).Click(hold)
}

func (r *rig) runEditor(t *testing.T, entry int) error {
	return r.nav.entries[entry].editor.Run(r.context(t), r.nav.session)
}

func TestScenarioA(t *testing.T) {
	r := newRig(t, nil, Options{})
	r.script.Wait(60 * time.Millisecond).Rotate(7).Wait(50 * time.Millisecond).Rotate(5)
	ctx := r.context(t)

	require.NoError(t, r.nav.Enter(ctx))
	assert.True(t, r.nav.Active())
	assert.Equal(t, 0, r.nav.Cursor())

	want := []int{0, 7, 12}
	for i, w := range want {
		pressed, err := r.nav.Tick(ctx)
		require.NoError(t, err)
		assert.False(t, pressed)
		assert.Equal(t, w, r.nav.Cursor(), "tick %d", i)
	}

	assert.Equal(t, EntrySetBFO, r.nav.Highlighted())
	assert.Equal(t, "Set BFO...", r.nav.Label(r.nav.Highlighted()))

	last, ok := r.screen.Last(display.OpRect)
	require.True(t, ok)
	assert.Equal(t, itemY(EntrySetBFO), last.Y)
	assert.Equal(t, colorActiveBorder, last.Border)
}

func TestCursorStaysInRange(t *testing.T) {
	clock := hardware.NewSimClock()
	knob := hardware.NewVirtualInput()
	gate := NewGate(storage.NewMemoryStore())
	nav := New(Deps{
		Display:    display.NewRecorder(),
		Input:      input.NewQuantizer(knob, knob, 1),
		Oscillator: hardware.NewMockOscillator(hardware.OscillatorConfig{}),
		Clock:      clock,
		Gate:       gate,
	}, Options{Timing: DefaultTiming()})

	ctx := context.Background()
	require.NoError(t, nav.Enter(ctx))

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		knob.Rotate(rng.Intn(51) - 25)
		_, err := nav.Tick(ctx)
		require.NoError(t, err)
		if nav.Cursor() < 0 || nav.Cursor() > MaxCursor {
			t.Fatalf("tick %d: cursor %d out of range", i, nav.Cursor())
		}
		if nav.Highlighted() >= NumEntries {
			t.Fatalf("tick %d: highlighted %d out of range", i, nav.Highlighted())
		}
	}
}

func TestEnterDrainsOpeningPress(t *testing.T) {
	r := newRig(t, nil, Options{})
	r.script.Down().Wait(200 * time.Millisecond).Release()
	r.selectEntry(EntryExit * CountsPerItem)

	require.NoError(t, r.nav.EnterSetupMenu(r.context(t)))

	assert.False(t, r.nav.Active())
	assert.Zero(t, r.screen.Count(display.OpDialog), "the opening press must not select an entry")
	assert.Equal(t, 1, r.catRuns)
	assert.Equal(t, 1, r.redraws)
	assert.Equal(t, "Setup", r.screen.Texts()[0])
}

func TestScenarioBThroughMenu(t *testing.T) {
	r := newRig(t, nil, Options{})
	r.selectEntry(EntryCWDelay * CountsPerItem)
	r.turn(-6)
	r.commit()
	r.selectEntry((EntryExit - EntryCWDelay) * CountsPerItem)

	require.NoError(t, r.nav.EnterSetupMenu(r.context(t)))

	assert.Equal(t, uint32(100), r.gate.Snapshot().CWActiveTimeoutMs)
	saved, err := r.store.Load()
	require.NoError(t, err)
	assert.Equal(t, uint32(100), saved.CWActiveTimeoutMs)
	assert.Equal(t, 1, r.store.Saves())

	var values []string
	for _, s := range r.screen.Texts() {
		if len(s) > 5 && s[len(s)-5:] == " msec" {
			values = append(values, s)
		}
	}
	assert.Equal(t, []string{"500 msec", "400 msec", "300 msec", "200 msec", "100 msec"}, values,
		"clamped steps are not redrawn")
}

func TestMenuRedrawnAfterEditor(t *testing.T) {
	r := newRig(t, nil, Options{})
	r.selectEntry(EntryCWKeyer * CountsPerItem)
	r.commit()
	r.selectEntry((EntryExit - EntryCWKeyer) * CountsPerItem)

	require.NoError(t, r.nav.EnterSetupMenu(r.context(t)))

	ops := r.screen.Ops()
	dialog := -1
	for i, op := range ops {
		if op.Kind == display.OpDialog {
			dialog = i
			break
		}
	}
	require.NotEqual(t, -1, dialog)

	var redraw []display.Op
	for _, op := range ops[dialog:] {
		if op.Kind == display.OpClear {
			redraw = nil
		}
		redraw = append(redraw, op)
		if op.Kind == display.OpRect && op.Border == colorActiveBorder {
			break
		}
	}
	require.NotEmpty(t, redraw)
	assert.Equal(t, display.OpClear, redraw[0].Kind)
	hl := redraw[len(redraw)-1]
	assert.Equal(t, display.OpRect, hl.Kind)
	assert.Equal(t, itemY(EntryCWKeyer), hl.Y, "highlight is restored on the entry that was edited")
}

func TestPersistenceFailureReported(t *testing.T) {
	r := newRig(t, nil, Options{})
	boom := errors.New("eeprom write failed")
	r.store.Fail(boom)

	r.selectEntry(EntryCWDelay * CountsPerItem)
	r.turn(2)
	r.commit()
	r.selectEntry((EntryExit - EntryCWDelay) * CountsPerItem)

	err := r.nav.EnterSetupMenu(r.context(t))

	var pf *PersistenceFailure
	require.ErrorAs(t, err, &pf)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint32(700), pf.Record.CWActiveTimeoutMs)

	assert.False(t, r.nav.Active(), "the menu keeps running until Exit")
	assert.Equal(t, uint32(700), r.gate.Record().CWActiveTimeoutMs)
	assert.Equal(t, uint32(500), r.gate.Snapshot().CWActiveTimeoutMs)
	assert.Equal(t, 1, r.catRuns)
}

func TestReturnAfterSave(t *testing.T) {
	t.Run("Leaves After Keyer", func(t *testing.T) {
		r := newRig(t, nil, Options{ReturnAfterSave: true})
		r.selectEntry(EntryCWKeyer * CountsPerItem)
		r.turn(-1)
		r.commit()

		require.NoError(t, r.nav.EnterSetupMenu(r.context(t)))
		assert.False(t, r.nav.Active())
		assert.Equal(t, settings.KeyerStraight, r.gate.Snapshot().KeyerMode)
		assert.Equal(t, 1, r.redraws)
	})

	t.Run("Stays After Calibration", func(t *testing.T) {
		r := newRig(t, nil, Options{ReturnAfterSave: true})
		r.selectEntry(EntrySetFreq)
		r.commit()

		err := r.nav.EnterSetupMenu(r.context(t))
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, r.nav.Active())
		assert.Equal(t, 1, r.store.Saves())
	})
}

func TestTouchEntry(t *testing.T) {
	r := newRig(t, nil, Options{})
	r.selectEntry(EntryTouch * CountsPerItem)
	r.selectEntry(CountsPerItem)

	require.NoError(t, r.nav.EnterSetupMenu(r.context(t)))
	assert.Equal(t, 1, r.touches)
	assert.Zero(t, r.store.Saves())
}

func TestCancelledContext(t *testing.T) {
	r := newRig(t, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.clock.AfterFunc(5*time.Second, cancel)

	err := r.nav.EnterSetupMenu(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, r.catRuns)
}

func TestCalibrationEditor(t *testing.T) {
	r := newRig(t, nil, Options{})
	r.turn(2)
	r.commit()

	require.NoError(t, r.runEditor(t, EntrySetFreq))

	op, ok := r.screen.Last(display.OpDialog)
	require.True(t, ok)
	assert.Equal(t, "Set Frequency", op.Text)
	assert.Equal(t, "Push TUNE to Save", op.Sub)

	texts := r.screen.Texts()
	assert.Contains(t, texts, "7150 KHz")
	assert.Contains(t, texts, "875")
	assert.Contains(t, texts, "1750")
	assert.Contains(t, texts, "Beat: 440 Hz")

	state := r.osc.State()
	assert.Equal(t, int32(1750), state.Calibration)
	assert.Equal(t, uint32(7150000), state.ActiveFrequency, "rounded to the kHz below")
	assert.Equal(t, settings.DefaultUSBCarrierFreq, state.CarrierFrequency)
	assert.Equal(t, 1, r.osc.Reinits())

	assert.Equal(t, int32(1750), r.gate.Snapshot().OscillatorCal)
}

func TestCalibrationCommitReprogramsCarrier(t *testing.T) {
	stored := settings.Defaults()
	stored.USBCarrierFreq = 11052000
	r := newRig(t, &stored, Options{})
	r.turn(1)
	r.commit()

	require.NoError(t, r.runEditor(t, EntrySetFreq))

	var afterReset []string
	reset := false
	for _, call := range r.osc.Calls() {
		if call.Op == "init" {
			reset = true
			continue
		}
		if reset {
			afterReset = append(afterReset, call.String())
		}
	}
	require.True(t, reset)
	assert.Equal(t, []string{"carrier(11052000)", "calibration(875)", "frequency(7150000)"}, afterReset)

	state := r.osc.State()
	assert.Equal(t, uint32(11052000), state.CarrierFrequency)
	assert.Equal(t, int32(875), state.Calibration)
}

func TestCalibrationBeatRefreshesWhileIdle(t *testing.T) {
	r := newRig(t, nil, Options{})
	beat := &driftingBeat{hz: 600}
	r.nav.session.Beat = beat
	r.commit()

	require.NoError(t, r.runEditor(t, EntrySetFreq))

	var beats []string
	for _, text := range r.screen.Texts() {
		if strings.HasPrefix(text, "Beat:") {
			beats = append(beats, text)
		}
	}
	require.GreaterOrEqual(t, len(beats), 3, "a second of rest redraws the beat every %v", beatRefresh)
	assert.Equal(t, "Beat: 590 Hz", beats[0])
	assert.Equal(t, "Beat: 580 Hz", beats[1])
	assert.Equal(t, len(beats), beat.reads)

	assert.NotContains(t, r.screen.Texts(), "0", "resting does not redraw the value")
}

func TestCalibrationStartsFromZero(t *testing.T) {
	stored := settings.Defaults()
	stored.OscillatorCal = 8750
	r := newRig(t, &stored, Options{})
	r.turn(-1)
	r.commit()

	require.NoError(t, r.runEditor(t, EntrySetFreq))
	assert.Equal(t, int32(-875), r.gate.Snapshot().OscillatorCal)
}

func TestZeroDeltaIsIdempotent(t *testing.T) {
	r := newRig(t, nil, Options{})
	r.commit()

	require.NoError(t, r.runEditor(t, EntrySetFreq))

	for _, call := range r.osc.Calls() {
		if call.Op == "init" {
			break
		}
		assert.NotEqual(t, "carrier", call.Op, "no hardware apply without a delta")
	}
	assert.NotContains(t, r.screen.Texts(), "0", "the value is only drawn after a change")
	assert.Equal(t, int32(0), r.gate.Snapshot().OscillatorCal)
}

func TestScenarioC(t *testing.T) {
	stored := settings.Defaults()
	stored.USBCarrierFreq = 11000000
	r := newRig(t, &stored, Options{})
	r.commit()

	require.NoError(t, r.runEditor(t, EntrySetBFO))

	assert.Equal(t, settings.DefaultUSBCarrierFreq, r.gate.Snapshot().USBCarrierFreq)
	assert.Equal(t, settings.DefaultUSBCarrierFreq, r.osc.State().CarrierFrequency)
	assert.Contains(t, r.screen.Texts(), "11.053.000")
}

func TestCarrierEditorSteps(t *testing.T) {
	r := newRig(t, nil, Options{})
	r.turn(2)
	r.turn(-5)
	r.commit()

	require.NoError(t, r.runEditor(t, EntrySetBFO))

	assert.Equal(t, uint32(11053150), r.gate.Snapshot().USBCarrierFreq)
	assert.Equal(t, uint32(11053150), r.osc.State().CarrierFrequency)
	assert.Equal(t, "11.053.150", r.screen.Texts()[len(r.screen.Texts())-1])
}

func TestScenarioD(t *testing.T) {
	r := newRig(t, nil, Options{})
	r.turn(2)
	r.commit()

	require.NoError(t, r.runEditor(t, EntryCWKeyer))

	assert.Equal(t, settings.KeyerIambicB, r.gate.Snapshot().KeyerMode)
	assert.Equal(t, []string{"< Iambic A >", "< Iambic B >"}, r.screen.Texts())
}

func TestEditorHardwareFailureKeepsEditing(t *testing.T) {
	r := newRig(t, nil, Options{})
	r.osc.FailOn("calibration")
	r.turn(1)
	r.commit()

	require.NoError(t, r.runEditor(t, EntrySetFreq))
	assert.Contains(t, r.screen.Texts(), "875")
	assert.Equal(t, int32(875), r.gate.Snapshot().OscillatorCal)
}

func TestSettleDelay(t *testing.T) {
	r := newRig(t, nil, Options{})
	r.commit()

	require.NoError(t, r.runEditor(t, EntryCWKeyer))

	sleeps := r.clock.Sleeps()
	require.NotEmpty(t, sleeps)
	assert.Equal(t, DefaultTiming().Settle, sleeps[len(sleeps)-1])
}
