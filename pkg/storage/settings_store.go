package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dougsko/rigsetup/pkg/logging"
	"github.com/dougsko/rigsetup/pkg/settings"
)

// SettingsStore keeps the settings record in SQLite. The current record is a
// single row; every save is also appended to settings_history.
type SettingsStore struct {
	db         *sql.DB
	dbPath     string
	maxHistory int
	log        *logging.ComponentLogger
}

// NewSettingsStore creates a new settings store with SQLite backend.
// maxHistory of 0 keeps every saved record.
func NewSettingsStore(dbPath string, maxHistory int) (*SettingsStore, error) {
	store := &SettingsStore{
		dbPath:     dbPath,
		maxHistory: maxHistory,
		log:        logging.For("Storage"),
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize settings store: %w", err)
	}

	return store, nil
}

// initialize sets up the database connection and creates tables
func (ss *SettingsStore) initialize() error {
	if ss.dbPath == "" {
		ss.dbPath = "./rigsetup.db"
	}

	if err := os.MkdirAll(filepath.Dir(ss.dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	connectionString := ss.dbPath + "?_busy_timeout=10000&_journal_mode=WAL"

	db, err := sql.Open("sqlite3", connectionString)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	ss.db = db

	if err := ss.createTables(); err != nil {
		db.Close()
		return fmt.Errorf("failed to create tables: %w", err)
	}

	ss.log.Infof("Settings store initialized: %s", ss.dbPath)
	return nil
}

// createTables creates the database schema
func (ss *SettingsStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		oscillator_cal INTEGER NOT NULL,
		usb_carrier_freq INTEGER NOT NULL,
		cw_active_timeout_ms INTEGER NOT NULL,
		keyer_mode INTEGER NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		saved_at DATETIME NOT NULL,
		oscillator_cal INTEGER NOT NULL,
		usb_carrier_freq INTEGER NOT NULL,
		cw_active_timeout_ms INTEGER NOT NULL,
		keyer_mode INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_settings_history_saved_at ON settings_history(saved_at DESC);
	`

	_, err := ss.db.Exec(schema)
	return err
}

// Load returns the stored record, or the factory defaults when nothing has
// been saved yet
func (ss *SettingsStore) Load() (settings.Record, error) {
	var rec settings.Record
	var keyer int

	err := ss.db.QueryRow(`
		SELECT oscillator_cal, usb_carrier_freq, cw_active_timeout_ms, keyer_mode
		FROM settings WHERE id = 1
	`).Scan(&rec.OscillatorCal, &rec.USBCarrierFreq, &rec.CWActiveTimeoutMs, &keyer)
	if errors.Is(err, sql.ErrNoRows) {
		ss.log.Infof("No stored settings, using defaults")
		return settings.Defaults(), nil
	}
	if err != nil {
		return settings.Record{}, fmt.Errorf("failed to read settings: %w", err)
	}

	rec.KeyerMode = settings.KeyerMode(keyer)
	return rec, nil
}

// Save replaces the stored record and appends it to the history
func (ss *SettingsStore) Save(rec settings.Record) error {
	tx, err := ss.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	_, err = tx.Exec(`
		INSERT INTO settings (id, oscillator_cal, usb_carrier_freq, cw_active_timeout_ms, keyer_mode, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			oscillator_cal = excluded.oscillator_cal,
			usb_carrier_freq = excluded.usb_carrier_freq,
			cw_active_timeout_ms = excluded.cw_active_timeout_ms,
			keyer_mode = excluded.keyer_mode,
			updated_at = excluded.updated_at
	`, rec.OscillatorCal, rec.USBCarrierFreq, rec.CWActiveTimeoutMs, int(rec.KeyerMode), now)
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO settings_history (saved_at, oscillator_cal, usb_carrier_freq, cw_active_timeout_ms, keyer_mode)
		VALUES (?, ?, ?, ?, ?)
	`, now, rec.OscillatorCal, rec.USBCarrierFreq, rec.CWActiveTimeoutMs, int(rec.KeyerMode))
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	if err := ss.trimHistory(tx); err != nil {
		ss.log.Warnf("Failed to trim settings history: %v", err)
	}

	return tx.Commit()
}

// trimHistory removes history rows beyond the maximum
func (ss *SettingsStore) trimHistory(tx *sql.Tx) error {
	if ss.maxHistory <= 0 {
		return nil
	}

	_, err := tx.Exec(`
		DELETE FROM settings_history
		WHERE id NOT IN (
			SELECT id FROM settings_history
			ORDER BY id DESC
			LIMIT ?
		)
	`, ss.maxHistory)
	return err
}

// Close closes the database connection
func (ss *SettingsStore) Close() error {
	if ss.db != nil {
		return ss.db.Close()
	}
	return nil
}
