package input

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pulseQueue struct {
	reads []int
}

func (p *pulseQueue) Pulses() int {
	if len(p.reads) == 0 {
		return 0
	}
	n := p.reads[0]
	p.reads = p.reads[1:]
	return n
}

// levelScript returns one level per call, then sticks on the last one
type levelScript struct {
	levels []bool
	calls  int
}

func (l *levelScript) IsButtonDown() bool {
	l.calls++
	if len(l.levels) == 0 {
		return false
	}
	v := l.levels[0]
	if len(l.levels) > 1 {
		l.levels = l.levels[1:]
	}
	return v
}

type sleepLog struct {
	sleeps []time.Duration
}

func (s *sleepLog) Sleep(d time.Duration) {
	s.sleeps = append(s.sleeps, d)
}

func TestQuantizer(t *testing.T) {
	t.Run("One Pulse Per Step", func(t *testing.T) {
		q := NewQuantizer(&pulseQueue{reads: []int{3, -2, 0}}, &levelScript{}, 1)
		assert.Equal(t, 3, q.ReadEncoderDelta())
		assert.Equal(t, -2, q.ReadEncoderDelta())
		assert.Equal(t, 0, q.ReadEncoderDelta())
		assert.Equal(t, 0, q.ReadEncoderDelta(), "idle encoder reads zero")
	})

	t.Run("Remainder Carried", func(t *testing.T) {
		q := NewQuantizer(&pulseQueue{reads: []int{3, 3, 2}}, &levelScript{}, 4)
		assert.Equal(t, 0, q.ReadEncoderDelta())
		assert.Equal(t, 1, q.ReadEncoderDelta())
		assert.Equal(t, 1, q.ReadEncoderDelta())
	})

	t.Run("Negative Remainder Keeps Sign", func(t *testing.T) {
		q := NewQuantizer(&pulseQueue{reads: []int{-3, -3, 5}}, &levelScript{}, 4)
		assert.Equal(t, 0, q.ReadEncoderDelta())
		assert.Equal(t, -1, q.ReadEncoderDelta())
		// remainder -2 plus 5 is 3, not yet a step
		assert.Equal(t, 0, q.ReadEncoderDelta())
	})

	t.Run("Reset Drops Partial Step", func(t *testing.T) {
		q := NewQuantizer(&pulseQueue{reads: []int{3, 1}}, &levelScript{}, 4)
		assert.Equal(t, 0, q.ReadEncoderDelta())
		q.Reset()
		assert.Equal(t, 0, q.ReadEncoderDelta())
	})

	t.Run("Invalid Pulses Per Step", func(t *testing.T) {
		q := NewQuantizer(&pulseQueue{}, &levelScript{}, 0)
		assert.Equal(t, 1, q.PulsesPerStep())
	})

	t.Run("Button Pass Through", func(t *testing.T) {
		q := NewQuantizer(&pulseQueue{}, &levelScript{levels: []bool{true}}, 1)
		assert.True(t, q.IsButtonDown())
	})
}

func TestDebouncer(t *testing.T) {
	t.Run("Waits For Release Then Quiet", func(t *testing.T) {
		button := &levelScript{levels: []bool{true, true, true, false}}
		clock := &sleepLog{}
		d := &Debouncer{Button: button, Clock: clock}

		require.NoError(t, d.WaitRelease(context.Background(), 50*time.Millisecond, 300*time.Millisecond))
		assert.Equal(t, []time.Duration{
			50 * time.Millisecond, 50 * time.Millisecond, 50 * time.Millisecond,
			300 * time.Millisecond,
		}, clock.sleeps)
	})

	t.Run("Released Button Only Quiet", func(t *testing.T) {
		clock := &sleepLog{}
		d := &Debouncer{Button: &levelScript{}, Clock: clock}

		require.NoError(t, d.WaitRelease(context.Background(), 50*time.Millisecond, 100*time.Millisecond))
		assert.Equal(t, []time.Duration{100 * time.Millisecond}, clock.sleeps)
	})

	t.Run("Zero Quiet Skips Sleep", func(t *testing.T) {
		clock := &sleepLog{}
		d := &Debouncer{Button: &levelScript{}, Clock: clock}

		require.NoError(t, d.WaitRelease(context.Background(), 50*time.Millisecond, 0))
		assert.Empty(t, clock.sleeps)
	})

	t.Run("Cancelled While Held", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d := &Debouncer{Button: &levelScript{levels: []bool{true}}, Clock: &sleepLog{}}

		err := d.WaitRelease(ctx, 50*time.Millisecond, 0)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestEdgeDetector(t *testing.T) {
	e := &EdgeDetector{Button: &levelScript{levels: []bool{false, true, true, false, false}}}

	edges := []Edge{e.Poll(), e.Poll(), e.Poll(), e.Poll(), e.Poll()}
	assert.Equal(t, []Edge{EdgeNone, EdgePressed, EdgeNone, EdgeReleased, EdgeNone}, edges)
	assert.Equal(t, "pressed", EdgePressed.String())
}
