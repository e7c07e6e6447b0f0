package menu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dougsko/rigsetup/pkg/settings"
	"github.com/dougsko/rigsetup/pkg/storage"
)

func TestGateLoad(t *testing.T) {
	t.Run("Defaults Before Load", func(t *testing.T) {
		g := NewGate(storage.NewMemoryStore())
		assert.Equal(t, settings.Defaults(), g.Snapshot())
	})

	t.Run("Out Of Range Values Are Clamped", func(t *testing.T) {
		stored := settings.Record{
			OscillatorCal:     1750,
			USBCarrierFreq:    11052000,
			CWActiveTimeoutMs: 4000,
			KeyerMode:         settings.KeyerMode(9),
		}
		g := NewGate(storage.NewMemoryStoreWith(stored))

		rec, err := g.Load()
		require.NoError(t, err)
		assert.Equal(t, uint32(settings.MaxCWTimeoutMs), rec.CWActiveTimeoutMs)
		assert.True(t, rec.KeyerMode.Valid())
		assert.Equal(t, int32(1750), g.Record().OscillatorCal)
		assert.Equal(t, rec, g.Snapshot())
	})
}

func TestGateCommit(t *testing.T) {
	store := storage.NewMemoryStore()
	g := NewGate(store)
	_, err := g.Load()
	require.NoError(t, err)

	var notified []settings.Record
	g.Subscribe(func(rec settings.Record) { notified = append(notified, rec) })

	t.Run("Round Trip", func(t *testing.T) {
		g.Record().CWActiveTimeoutMs = 800
		resynced := false
		require.NoError(t, g.Commit(func() { resynced = true }))
		assert.True(t, resynced)

		reloaded, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, *g.Record(), reloaded)
		assert.Equal(t, reloaded, g.Snapshot())
		require.Len(t, notified, 1)
		assert.Equal(t, uint32(800), notified[0].CWActiveTimeoutMs)
	})

	t.Run("Persistence Failure", func(t *testing.T) {
		boom := errors.New("eeprom busy")
		store.Fail(boom)

		g.Record().KeyerMode = settings.KeyerStraight
		resynced := false
		err := g.Commit(func() { resynced = true })

		var pf *PersistenceFailure
		require.ErrorAs(t, err, &pf)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, settings.KeyerStraight, pf.Record.KeyerMode)
		assert.True(t, resynced, "hardware is resynced even when the save fails")

		assert.Equal(t, settings.KeyerStraight, g.Record().KeyerMode)
		assert.Equal(t, settings.KeyerIambicA, g.Snapshot().KeyerMode)
		assert.Len(t, notified, 1)
	})
}
