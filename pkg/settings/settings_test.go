package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	rec := Defaults()

	assert.Equal(t, int32(0), rec.OscillatorCal)
	assert.Equal(t, uint32(11053000), rec.USBCarrierFreq)
	assert.Equal(t, uint32(500), rec.CWActiveTimeoutMs)
	assert.Equal(t, KeyerIambicA, rec.KeyerMode)
	assert.NoError(t, rec.Validate())
}

func TestKeyerMode(t *testing.T) {
	t.Run("Labels", func(t *testing.T) {
		assert.Equal(t, "< Hand Key >", KeyerStraight.Label())
		assert.Equal(t, "< Iambic A >", KeyerIambicA.Label())
		assert.Equal(t, "< Iambic B >", KeyerIambicB.Label())
	})

	t.Run("Parse Round Trip", func(t *testing.T) {
		for _, mode := range []KeyerMode{KeyerStraight, KeyerIambicA, KeyerIambicB} {
			parsed, err := ParseKeyerMode(mode.String())
			require.NoError(t, err)
			assert.Equal(t, mode, parsed)
		}
	})

	t.Run("Parse Unknown", func(t *testing.T) {
		_, err := ParseKeyerMode("bug")
		assert.Error(t, err)
	})

	t.Run("Validity", func(t *testing.T) {
		assert.True(t, KeyerIambicB.Valid())
		assert.False(t, KeyerMode(3).Valid())
	})
}

func TestValidateAndNormalize(t *testing.T) {
	t.Run("Timeout Too Small", func(t *testing.T) {
		rec := Defaults()
		rec.CWActiveTimeoutMs = 40
		assert.Error(t, rec.Validate())
		assert.Equal(t, uint32(100), rec.Normalize().CWActiveTimeoutMs)
	})

	t.Run("Timeout Too Large", func(t *testing.T) {
		rec := Defaults()
		rec.CWActiveTimeoutMs = 2500
		assert.Error(t, rec.Validate())
		assert.Equal(t, uint32(1000), rec.Normalize().CWActiveTimeoutMs)
	})

	t.Run("Keyer Out Of Range", func(t *testing.T) {
		rec := Defaults()
		rec.KeyerMode = 7
		assert.Error(t, rec.Validate())
		assert.Equal(t, KeyerIambicB, rec.Normalize().KeyerMode)
	})

	t.Run("Zero Carrier", func(t *testing.T) {
		rec := Defaults()
		rec.USBCarrierFreq = 0
		assert.Error(t, rec.Validate())
		assert.Equal(t, DefaultUSBCarrierFreq, rec.Normalize().USBCarrierFreq)
	})

	t.Run("Normalize Keeps Valid Record", func(t *testing.T) {
		rec := Record{OscillatorCal: -8750, USBCarrierFreq: 11052500, CWActiveTimeoutMs: 300, KeyerMode: KeyerStraight}
		assert.Equal(t, rec, rec.Normalize())
	})
}
