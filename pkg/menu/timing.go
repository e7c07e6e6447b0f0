package menu

import "time"

// Timing holds the debounce and polling intervals of the menu
type Timing struct {
	Poll          time.Duration // idle editor poll
	ButtonPoll    time.Duration // release polling in the navigator and after commit
	MenuQuiet     time.Duration // after entering and leaving the menu
	SelectQuiet   time.Duration // after the press that selects an entry
	EditorPoll    time.Duration // release polling when an editor opens
	EditorQuiet   time.Duration // after an editor drains the selection press
	CommitQuiet   time.Duration // after the press that commits an editor
	CWEntryQuiet  time.Duration
	Settle        time.Duration // keyer and CW delay, after commit
	CarrierChange time.Duration // after each BFO change
}

// DefaultTiming returns the intervals used on the radio
func DefaultTiming() Timing {
	return Timing{
		Poll:          10 * time.Millisecond,
		ButtonPoll:    50 * time.Millisecond,
		MenuQuiet:     50 * time.Millisecond,
		SelectQuiet:   300 * time.Millisecond,
		EditorPoll:    100 * time.Millisecond,
		EditorQuiet:   100 * time.Millisecond,
		CommitQuiet:   100 * time.Millisecond,
		CWEntryQuiet:  500 * time.Millisecond,
		Settle:        500 * time.Millisecond,
		CarrierChange: 100 * time.Millisecond,
	}
}
