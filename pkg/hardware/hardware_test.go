package hardware

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dougsko/rigsetup/pkg/config"
)

func TestSimClock(t *testing.T) {
	clock := NewSimClock()

	fired := 0
	clock.AfterFunc(100*time.Millisecond, func() { fired++ })

	clock.Sleep(60 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("deadline fired early at %v", clock.Now())
	}
	clock.Sleep(40 * time.Millisecond)
	clock.Sleep(40 * time.Millisecond)

	if fired != 1 {
		t.Errorf("Expected deadline to fire once, fired %d times", fired)
	}
	if clock.Now() != 140*time.Millisecond {
		t.Errorf("Expected 140ms, got %v", clock.Now())
	}
	if len(clock.Sleeps()) != 3 {
		t.Errorf("Expected 3 sleeps recorded, got %d", len(clock.Sleeps()))
	}
}

func TestScriptedInput(t *testing.T) {
	clock := NewSimClock()
	in := NewScriptedInput(clock)
	in.Wait(10 * time.Millisecond).Rotate(3).
		Wait(10 * time.Millisecond).Rotate(-1).
		Wait(10 * time.Millisecond).Click(50 * time.Millisecond)

	t.Run("Nothing Before First Event", func(t *testing.T) {
		if n := in.Pulses(); n != 0 {
			t.Errorf("Expected 0 pulses, got %d", n)
		}
	})

	t.Run("Pulses Accumulate Between Reads", func(t *testing.T) {
		clock.Sleep(25 * time.Millisecond)
		if n := in.Pulses(); n != 2 {
			t.Errorf("Expected 2 pulses, got %d", n)
		}
		if n := in.Pulses(); n != 0 {
			t.Errorf("Expected pulses to be consumed, got %d", n)
		}
	})

	t.Run("Button Level Follows Script", func(t *testing.T) {
		clock.Sleep(5 * time.Millisecond)
		if !in.IsButtonDown() {
			t.Error("Expected button down at 30ms")
		}
		clock.Sleep(49 * time.Millisecond)
		if !in.IsButtonDown() {
			t.Error("Expected button still down at 79ms")
		}
		clock.Sleep(1 * time.Millisecond)
		if in.IsButtonDown() {
			t.Error("Expected button up at 80ms")
		}
		if !in.Done() {
			t.Error("Expected script to be done")
		}
	})

	if in.End() != 80*time.Millisecond {
		t.Errorf("Expected script end 80ms, got %v", in.End())
	}
}

func TestVirtualInput(t *testing.T) {
	v := NewVirtualInput()
	v.Rotate(4)
	v.Rotate(-1)
	v.SetButton(true)

	if n := v.Pulses(); n != 3 {
		t.Errorf("Expected 3 pulses, got %d", n)
	}
	if n := v.Pulses(); n != 0 {
		t.Errorf("Expected 0 pulses after read, got %d", n)
	}
	if !v.IsButtonDown() {
		t.Error("Expected button down")
	}
}

func TestQuadratureDecoder(t *testing.T) {
	// A leads B for one direction; states listed as (a, b)
	forward := [][2]bool{{false, false}, {true, false}, {true, true}, {false, true}, {false, false}}
	backward := [][2]bool{{false, false}, {false, true}, {true, true}, {true, false}, {false, false}}

	run := func(seq [][2]bool) int {
		var q QuadratureDecoder
		total := 0
		for _, s := range seq {
			total += q.Update(s[0], s[1])
		}
		return total
	}

	if got := run(forward); got != 4 {
		t.Errorf("Expected +4 for a full forward cycle, got %d", got)
	}
	if got := run(backward); got != -4 {
		t.Errorf("Expected -4 for a full backward cycle, got %d", got)
	}

	var q QuadratureDecoder
	if got := q.Update(true, true); got != 0 {
		t.Errorf("Expected a double phase change to count 0, got %d", got)
	}
}

func TestButtonFilter(t *testing.T) {
	f := NewButtonFilter(3)

	samples := []bool{true, false, true, true, true, false, false, false}
	want := []bool{false, false, false, false, true, true, true, false}
	for i, s := range samples {
		if got := f.Sample(s); got != want[i] {
			t.Errorf("Sample %d: expected %t, got %t", i, want[i], got)
		}
	}
}

func TestMockOscillator(t *testing.T) {
	osc := NewMockOscillator(OscillatorConfig{VFOFrequency: 7150000})

	if err := osc.SetCarrierFrequency(11053000); err == nil {
		t.Error("Expected error before Initialize")
	}
	if err := osc.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	osc.ResetCalls()

	if err := osc.SetCarrierFrequency(11053000); err != nil {
		t.Errorf("SetCarrierFrequency failed: %v", err)
	}
	if err := osc.SetCalibration(-875); err != nil {
		t.Errorf("SetCalibration failed: %v", err)
	}
	if err := osc.Reinitialize(); err != nil {
		t.Errorf("Reinitialize failed: %v", err)
	}

	state := osc.State()
	if state.CarrierFrequency != 0 || state.Calibration != 0 || state.ActiveFrequency != 7150000 {
		t.Errorf("Reset must clear the carrier and calibration and keep the VFO, got %+v", state)
	}
	if osc.Reinits() != 1 {
		t.Errorf("Expected 1 reinit, got %d", osc.Reinits())
	}

	calls := osc.Calls()
	if len(calls) != 3 || calls[1].String() != "calibration(-875)" {
		t.Errorf("Unexpected calls %v", calls)
	}

	osc.FailOn("frequency")
	if err := osc.SetActiveFrequency(7000000); err == nil {
		t.Error("Expected injected failure")
	}
	if osc.ActiveFrequency() != 7150000 {
		t.Errorf("Failed call must not change state, got %d", osc.ActiveFrequency())
	}
}

// fakeBoard answers each command line of the serial protocol
type fakeBoard struct {
	lines   []string
	replies bytes.Buffer
	reject  string
	closed  bool
}

func (b *fakeBoard) Write(p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	b.lines = append(b.lines, line)
	if b.reject != "" && strings.HasPrefix(line, b.reject) {
		fmt.Fprintf(&b.replies, "ERR out of range\n")
	} else {
		b.replies.WriteString("OK\n")
	}
	return len(p), nil
}

func (b *fakeBoard) Read(p []byte) (int, error) {
	if b.replies.Len() == 0 {
		return 0, io.EOF
	}
	return b.replies.Read(p)
}

func (b *fakeBoard) Close() error {
	b.closed = true
	return nil
}

func TestSerialOscillator(t *testing.T) {
	board := &fakeBoard{}
	osc := NewSerialOscillator(OscillatorConfig{Device: "/dev/null", BaudRate: 38400, VFOFrequency: 7150000})
	osc.open = func(OscillatorConfig) (io.ReadWriteCloser, error) { return board, nil }

	if err := osc.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	t.Run("Commands Are Text Lines", func(t *testing.T) {
		if err := osc.SetCarrierFrequency(11053000); err != nil {
			t.Fatalf("SetCarrierFrequency failed: %v", err)
		}
		if err := osc.SetCalibration(-1750); err != nil {
			t.Fatalf("SetCalibration failed: %v", err)
		}

		want := []string{"INIT", "VFO 7150000", "CAR 11053000", "CAL -1750"}
		if strings.Join(board.lines, "|") != strings.Join(want, "|") {
			t.Errorf("Expected %v, got %v", want, board.lines)
		}
	})

	t.Run("Reinitialize Clears Outputs", func(t *testing.T) {
		board.lines = nil
		if err := osc.Reinitialize(); err != nil {
			t.Fatalf("Reinitialize failed: %v", err)
		}

		want := []string{"INIT", "VFO 7150000"}
		if strings.Join(board.lines, "|") != strings.Join(want, "|") {
			t.Errorf("Expected %v, got %v", want, board.lines)
		}
		state := osc.State()
		if state.CarrierFrequency != 0 || state.Calibration != 0 || state.ActiveFrequency != 7150000 {
			t.Errorf("Unexpected state after reset %+v", state)
		}

		if err := osc.SetCarrierFrequency(11053000); err != nil {
			t.Fatalf("SetCarrierFrequency failed: %v", err)
		}
		if osc.State().CarrierFrequency != 11053000 {
			t.Errorf("Expected carrier to be reprogrammed, got %d", osc.State().CarrierFrequency)
		}
	})

	t.Run("Error Reply", func(t *testing.T) {
		board.reject = "VFO"
		err := osc.SetActiveFrequency(99000000)
		if err == nil || !strings.Contains(err.Error(), "out of range") {
			t.Errorf("Expected out of range error, got %v", err)
		}
		if osc.ActiveFrequency() != 7150000 {
			t.Errorf("Rejected frequency must not be kept, got %d", osc.ActiveFrequency())
		}
	})

	if err := osc.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if !board.closed {
		t.Error("Expected port to be closed")
	}
	if err := osc.SetCalibration(0); err == nil {
		t.Error("Expected error after Close")
	}
}

func TestManagerSimBackends(t *testing.T) {
	m := NewManager(HardwareConfig{
		InputBackend:  config.InputSim,
		PulsesPerStep: 2,
		Oscillator:    OscillatorConfig{Backend: config.OscillatorMock, VFOFrequency: 7150000},
	})

	if m.IsInitialized() {
		t.Error("Expected manager to not be initialized initially")
	}
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer m.Close()

	m.Virtual().Rotate(5)
	if d := m.Input().ReadEncoderDelta(); d != 2 {
		t.Errorf("Expected 2 steps from 5 pulses, got %d", d)
	}

	if err := m.Oscillator().SetCarrierFrequency(11053000); err != nil {
		t.Errorf("SetCarrierFrequency failed: %v", err)
	}
	state, ok := m.OscillatorState()
	if !ok || state.CarrierFrequency != 11053000 {
		t.Errorf("Unexpected oscillator state %+v (%t)", state, ok)
	}
}

func TestManagerUnknownBackend(t *testing.T) {
	m := NewManager(HardwareConfig{
		InputBackend: config.InputSim,
		Oscillator:   OscillatorConfig{Backend: "si5351-i2c"},
	})
	if err := m.Initialize(); err == nil {
		t.Error("Expected error for unknown oscillator backend")
	}
	if m.IsInitialized() {
		t.Error("Manager must not be initialized after a failure")
	}
}
