package menu

import (
	"fmt"
	"sync"

	"github.com/dougsko/rigsetup/pkg/logging"
	"github.com/dougsko/rigsetup/pkg/settings"
)

// PersistenceFailure reports that a committed record could not be written
// to the settings store. The in-memory record keeps the new value.
type PersistenceFailure struct {
	Record settings.Record
	Err    error
}

func (e *PersistenceFailure) Error() string {
	return fmt.Sprintf("persist settings: %v", e.Err)
}

func (e *PersistenceFailure) Unwrap() error {
	return e.Err
}

// Gate owns the settings record. The active editor mutates Record() in
// place; everyone else reads Snapshot(), which only changes on commit.
type Gate struct {
	store Store
	log   *logging.ComponentLogger

	record settings.Record

	mu        sync.RWMutex
	committed settings.Record
	listeners []func(settings.Record)
}

// NewGate creates a gate over store holding the factory defaults until Load
func NewGate(store Store) *Gate {
	def := settings.Defaults()
	return &Gate{
		store:     store,
		log:       logging.For("settings"),
		record:    def,
		committed: def,
	}
}

// Load reads the record from the store. Out-of-range values are clamped.
func (g *Gate) Load() (settings.Record, error) {
	rec, err := g.store.Load()
	if err != nil {
		return settings.Record{}, fmt.Errorf("load settings: %w", err)
	}
	if verr := rec.Validate(); verr != nil {
		g.log.Warnf("Stored settings out of range, clamping: %v", verr)
		rec = rec.Normalize()
	}

	g.record = rec
	g.mu.Lock()
	g.committed = rec
	g.mu.Unlock()

	g.log.Infof("Loaded settings: cal=%d carrier=%d cw=%dms keyer=%s",
		rec.OscillatorCal, rec.USBCarrierFreq, rec.CWActiveTimeoutMs, rec.KeyerMode)
	return rec, nil
}

// Record returns the working record. Only the active editor may write it.
func (g *Gate) Record() *settings.Record {
	return &g.record
}

// Snapshot returns the last committed record; safe from any goroutine
func (g *Gate) Snapshot() settings.Record {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.committed
}

// Subscribe registers fn to be called after every successful commit
func (g *Gate) Subscribe(fn func(settings.Record)) {
	g.mu.Lock()
	g.listeners = append(g.listeners, fn)
	g.mu.Unlock()
}

// Commit saves the working record, then runs resync so the oscillator
// picks up the committed values. resync runs even when the save fails:
// the hardware must match the in-memory record either way.
func (g *Gate) Commit(resync func()) error {
	rec := g.record

	var err error
	if serr := g.store.Save(rec); serr != nil {
		err = &PersistenceFailure{Record: rec, Err: serr}
		g.log.Errorf("Failed to save settings: %v", serr)
	} else {
		g.mu.Lock()
		g.committed = rec
		listeners := append([]func(settings.Record){}, g.listeners...)
		g.mu.Unlock()

		g.log.Debugf("Settings saved")
		for _, fn := range listeners {
			fn(rec)
		}
	}

	if resync != nil {
		resync()
	}
	return err
}
