package storage

import (
	"fmt"
	"time"

	"github.com/dougsko/rigsetup/pkg/settings"
)

// HistoryEntry is one saved record
type HistoryEntry struct {
	ID      int64           `json:"id"`
	SavedAt time.Time       `json:"saved_at"`
	Record  settings.Record `json:"record"`
}

// HistoryQuery filters the settings history
type HistoryQuery struct {
	Limit int
	Since *time.Time
}

// History returns saved records, newest first
func (ss *SettingsStore) History(query HistoryQuery) ([]HistoryEntry, error) {
	sqlQuery := `
		SELECT id, saved_at, oscillator_cal, usb_carrier_freq, cw_active_timeout_ms, keyer_mode
		FROM settings_history
	`
	var args []interface{}
	if query.Since != nil {
		sqlQuery += " WHERE saved_at >= ?"
		args = append(args, query.Since.UTC())
	}
	sqlQuery += " ORDER BY id DESC"
	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)
	}

	rows, err := ss.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var keyer int
		if err := rows.Scan(&e.ID, &e.SavedAt, &e.Record.OscillatorCal, &e.Record.USBCarrierFreq,
			&e.Record.CWActiveTimeoutMs, &keyer); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		e.Record.KeyerMode = settings.KeyerMode(keyer)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// HistoryCount returns the number of saved records kept
func (ss *SettingsStore) HistoryCount() (int, error) {
	var count int
	err := ss.db.QueryRow("SELECT COUNT(*) FROM settings_history").Scan(&count)
	return count, err
}
