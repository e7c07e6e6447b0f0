package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dougsko/rigsetup/pkg/config"
	"github.com/dougsko/rigsetup/pkg/display"
	"github.com/dougsko/rigsetup/pkg/hardware"
	"github.com/dougsko/rigsetup/pkg/input"
	"github.com/dougsko/rigsetup/pkg/logging"
	"github.com/dougsko/rigsetup/pkg/menu"
	"github.com/dougsko/rigsetup/pkg/protocol"
	"github.com/dougsko/rigsetup/pkg/settings"
	"github.com/dougsko/rigsetup/pkg/storage"
	"github.com/dougsko/rigsetup/pkg/zerobeat"
)

// Home screen tuning
const (
	tuneStepHz = 100
	minTuneHz  = 100000
	maxTuneHz  = 30000000
)

// simCalPerHz converts calibration units to beat note Hz for the simulated
// zero-beat tone: one calibration knob step moves the tone 10 Hz
const simCalPerHz = 87.5

const screenEventInterval = 100 * time.Millisecond

// RigDaemon owns the radio front panel: the home screen, the setup menu
// and the optional web panel
type RigDaemon struct {
	config *config.Config
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *logging.ComponentLogger

	// Core components
	hardware *hardware.Manager
	store    *storage.SettingsStore
	gate     *menu.Gate
	screen   *display.Screen
	meter    *zerobeat.Meter
	nav      *menu.Navigator
	events   *eventHub

	router    *gin.Engine
	webServer *http.Server

	menuActive  atomic.Bool
	menuRequest chan struct{}
	screenDirty atomic.Bool
	startTime   time.Time
}

// NewRigDaemon creates a new daemon instance
func NewRigDaemon(cfg *config.Config) (*RigDaemon, error) {
	store, err := storage.NewSettingsStore(cfg.Storage.DatabasePath, cfg.Storage.MaxHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &RigDaemon{
		config:      cfg,
		ctx:         ctx,
		cancel:      cancel,
		log:         logging.For("daemon"),
		hardware:    hardware.NewManager(hardwareConfig(cfg)),
		store:       store,
		gate:        menu.NewGate(store),
		screen:      display.NewScreen(cfg.Display.Width, cfg.Display.Height),
		events:      newEventHub(),
		menuRequest: make(chan struct{}, 1),
		startTime:   time.Now(),
	}

	d.gate.Subscribe(func(rec settings.Record) {
		d.events.publish(protocol.NewEvent(protocol.EventCommitted, rec))
	})
	d.screen.OnDisplay(func() { d.screenDirty.Store(true) })

	d.setupWebServer()
	return d, nil
}

// hardwareConfig maps the config file onto the hardware manager
func hardwareConfig(cfg *config.Config) hardware.HardwareConfig {
	return hardware.HardwareConfig{
		InputBackend:  cfg.Input.Backend,
		PulsesPerStep: cfg.Input.PulsesPerStep,
		Encoder: hardware.EncoderConfig{
			PinA:          cfg.Input.PinA,
			PinB:          cfg.Input.PinB,
			ButtonPin:     cfg.Input.ButtonPin,
			SamplePeriod:  time.Duration(cfg.Input.SamplePeriodUs) * time.Microsecond,
			StableSamples: cfg.Input.StableSamples,
		},
		Oscillator: hardware.OscillatorConfig{
			Backend:       cfg.Oscillator.Backend,
			Device:        cfg.Oscillator.Device,
			BaudRate:      cfg.Oscillator.BaudRate,
			ReadTimeoutMs: cfg.Oscillator.ReadTimeoutMs,
			VFOFrequency:  cfg.Oscillator.VFOFrequency,
		},
	}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// timingFromConfig converts the menu section to menu intervals
func timingFromConfig(cfg *config.Config) menu.Timing {
	m := cfg.Menu
	return menu.Timing{
		Poll:          ms(m.PollIntervalMs),
		ButtonPoll:    ms(m.ButtonPollMs),
		MenuQuiet:     ms(m.MenuQuietMs),
		SelectQuiet:   ms(m.SelectQuietMs),
		EditorPoll:    ms(m.EditorPollMs),
		EditorQuiet:   ms(m.EditorQuietMs),
		CommitQuiet:   ms(m.CommitQuietMs),
		CWEntryQuiet:  ms(m.CWEntryQuietMs),
		Settle:        ms(m.SettleMs),
		CarrierChange: ms(m.CarrierChangeMs),
	}
}

// Start starts the daemon
func (d *RigDaemon) Start() (err error) {
	d.log.Infof("Starting rigsetupd daemon...")

	defer func() {
		if err != nil {
			d.hardware.Close()
			if cerr := d.store.Close(); cerr != nil {
				d.log.Errorf("Settings store shutdown error: %v", cerr)
			}
		}
	}()

	if err := d.hardware.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize hardware: %w", err)
	}

	rec, err := d.gate.Load()
	if err != nil {
		return err
	}
	d.applySettings(rec)

	var beat menu.BeatMeter
	if d.config.ZeroBeat.Enabled {
		tone := zerobeat.NewToneSource(d.config.ZeroBeat.SampleRate, d.simulatedBeat)
		meter, err := zerobeat.NewMeter(tone, d.config.ZeroBeat.SampleRate, d.config.ZeroBeat.FFTSize)
		if err != nil {
			return fmt.Errorf("failed to create zero-beat meter: %w", err)
		}
		d.meter = meter
		beat = meter
	}

	d.nav = menu.New(menu.Deps{
		Display:    d.screen,
		Input:      d.hardware.Input(),
		Oscillator: d.hardware.Oscillator(),
		Clock:      hardware.SystemClock{},
		Gate:       d.gate,
		Beat:       beat,
		Procedures: menu.Procedures{
			TouchCalibration: d.touchCalibration,
			CheckCAT:         d.checkCAT,
			RefreshDisplay:   d.drawHome,
		},
	}, menu.Options{
		Timing:          timingFromConfig(d.config),
		ReturnAfterSave: d.config.Menu.ReturnAfterSave,
	})

	d.drawHome()

	d.wg.Add(2)
	go d.controller()
	go d.screenNotifier()

	if d.config.Web.Enabled {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.log.Infof("Starting web server on %s", d.webServer.Addr)
			if err := d.webServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				d.log.Errorf("Web server error: %v", err)
			}
		}()
	}

	return nil
}

// Stop stops the daemon gracefully
func (d *RigDaemon) Stop() error {
	d.log.Infof("Stopping daemon...")

	d.cancel()

	if d.config.Web.Enabled && d.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.webServer.Shutdown(ctx); err != nil {
			d.log.Errorf("Web server shutdown error: %v", err)
		}
	}

	d.wg.Wait()

	if err := d.hardware.Close(); err != nil {
		d.log.Errorf("Hardware shutdown error: %v", err)
	}
	if err := d.store.Close(); err != nil {
		d.log.Errorf("Settings store shutdown error: %v", err)
	}

	d.log.Infof("Daemon stopped")
	return nil
}

// applySettings programs the oscillator from a freshly loaded record
func (d *RigDaemon) applySettings(rec settings.Record) {
	osc := d.hardware.Oscillator()
	if err := osc.SetCalibration(rec.OscillatorCal); err != nil {
		d.log.Warnf("Failed to apply calibration: %v", err)
	}
	if err := osc.SetCarrierFrequency(rec.USBCarrierFreq); err != nil {
		d.log.Warnf("Failed to apply carrier frequency: %v", err)
	}
}

// controller is the radio's main loop: the knob tunes, the button opens the
// setup menu
func (d *RigDaemon) controller() {
	defer d.wg.Done()

	knob := d.hardware.Input()
	edges := &input.EdgeDetector{Button: knob}
	ticker := time.NewTicker(ms(d.config.Menu.FunctionPollMs))
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.menuRequest:
			d.runMenu()
		case <-ticker.C:
			if n := knob.ReadEncoderDelta(); n != 0 {
				d.tune(n)
			}
			if edges.Poll() == input.EdgePressed {
				d.runMenu()
			}
		}
	}
}

func (d *RigDaemon) runMenu() {
	d.menuActive.Store(true)
	d.events.publish(protocol.NewEvent(protocol.EventMenu, map[string]bool{"active": true}))

	err := d.nav.EnterSetupMenu(d.ctx)

	d.menuActive.Store(false)
	d.events.publish(protocol.NewEvent(protocol.EventMenu, map[string]bool{"active": false}))

	if err == nil || d.ctx.Err() != nil {
		return
	}
	var pf *menu.PersistenceFailure
	if errors.As(err, &pf) {
		d.log.Errorf("Settings were not saved: %v", err)
		d.events.publish(protocol.NewEvent(protocol.EventFailed, map[string]interface{}{
			"error":  err.Error(),
			"record": pf.Record,
		}))
		return
	}
	d.log.Errorf("Setup menu failed: %v", err)
}

// tune moves the active frequency by whole knob steps
func (d *RigDaemon) tune(steps int) {
	osc := d.hardware.Oscillator()
	f := int64(osc.ActiveFrequency()) + int64(steps)*tuneStepHz
	if f < minTuneHz {
		f = minTuneHz
	} else if f > maxTuneHz {
		f = maxTuneHz
	}
	if err := osc.SetActiveFrequency(uint32(f)); err != nil {
		d.log.Warnf("Failed to tune to %d Hz: %v", f, err)
		return
	}
	d.drawHome()
}

// drawHome paints the main radio screen
func (d *RigDaemon) drawHome() {
	s := d.screen
	rec := d.gate.Snapshot()
	freq := d.hardware.Oscillator().ActiveFrequency()

	s.Clear(menu.ColorBlack)
	s.DrawText(menu.FormatCarrier(freq), 10, 10, 300, 50, menu.ColorWhite, menu.ColorNavy, menu.ColorWhite)
	s.DrawText("Keyer: "+rec.KeyerMode.Label(), 10, 80, 300, 30, menu.ColorWhite, menu.ColorBlack, menu.ColorDarkGrey)
	s.DrawText(fmt.Sprintf("CW Delay: %d ms", rec.CWActiveTimeoutMs), 10, 115, 300, 30, menu.ColorWhite, menu.ColorBlack, menu.ColorDarkGrey)
	s.DrawText("BFO: "+menu.FormatCarrier(rec.USBCarrierFreq), 10, 150, 300, 30, menu.ColorWhite, menu.ColorBlack, menu.ColorDarkGrey)
	s.DrawText("Push TUNE for Setup", 10, 200, 300, 30, menu.ColorCyan, menu.ColorBlack, menu.ColorBlack)
}

// checkCAT tells remote panels the radio state after the menu closes
func (d *RigDaemon) checkCAT() {
	d.events.publish(protocol.NewEvent(protocol.EventStatus, d.status()))
}

func (d *RigDaemon) touchCalibration() {
	d.log.Infof("Touch calibration requested; this panel has no touch controller")
	d.screen.DrawDialogHeader("Touch Screen", "No touch controller")
	hardware.SystemClock{}.Sleep(time.Second)
}

// simulatedBeat is the beat note the receiver would hear against a
// reference carrier; it reaches zero at the right calibration
func (d *RigDaemon) simulatedBeat() float64 {
	base := d.config.ZeroBeat.SimToneHz
	st, ok := d.hardware.OscillatorState()
	if !ok {
		return base
	}
	hz := base - float64(st.Calibration)/simCalPerHz
	if hz < 0 {
		return -hz
	}
	return hz
}

// screenNotifier tells panels the screen changed, at most once per interval
func (d *RigDaemon) screenNotifier() {
	defer d.wg.Done()

	ticker := time.NewTicker(screenEventInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if d.screenDirty.Swap(false) {
				d.events.publish(protocol.NewEvent(protocol.EventScreen, nil))
			}
		}
	}
}

// status collects the daemon status
func (d *RigDaemon) status() protocol.Status {
	st := protocol.Status{
		MenuActive:   d.menuActive.Load(),
		Settings:     d.gate.Snapshot(),
		InputBackend: d.config.Input.Backend,
		OscBackend:   d.config.Oscillator.Backend,
		Uptime:       time.Since(d.startTime).Truncate(time.Second).String(),
		StartTime:    d.startTime,
		Version:      Version,
	}
	if osc, ok := d.hardware.OscillatorState(); ok {
		st.CarrierFrequency = osc.CarrierFrequency
		st.Calibration = osc.Calibration
		st.ActiveFrequency = osc.ActiveFrequency
	}
	return st
}

// applyCommand runs a panel command against the virtual knob
func (d *RigDaemon) applyCommand(cmd *protocol.Command) *protocol.Response {
	switch cmd.Type {
	case protocol.CmdPing:
		return protocol.NewSuccessResponse(map[string]interface{}{"pong": true})

	case protocol.CmdStatus:
		return protocol.NewSuccessResponse(map[string]interface{}{"status": d.status()})

	case protocol.CmdMenu:
		if d.menuActive.Load() {
			return protocol.NewErrorResponse("setup menu is already open")
		}
		select {
		case d.menuRequest <- struct{}{}:
		default:
		}
		return protocol.NewSuccessResponse(nil)
	}

	knob := d.hardware.Virtual()
	if knob == nil {
		return protocol.NewErrorResponse(fmt.Sprintf("input backend %q does not accept remote input", d.config.Input.Backend))
	}

	switch cmd.Type {
	case protocol.CmdRotate:
		knob.Rotate(cmd.IntArg("pulses", 0))
	case protocol.CmdPress:
		knob.SetButton(true)
	case protocol.CmdRelease:
		knob.SetButton(false)
	case protocol.CmdClick:
		hold := ms(cmd.IntArg("hold_ms", defaultClickMs))
		knob.SetButton(true)
		time.AfterFunc(hold, func() { knob.SetButton(false) })
	default:
		return protocol.NewErrorResponse(fmt.Sprintf("unknown command %q", cmd.Type))
	}
	return protocol.NewSuccessResponse(nil)
}

const defaultClickMs = 150
