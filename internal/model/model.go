package model

import (
	"sort"
	"time"
)

// KeyLayout is the time layout for ShiftEvent keys: the shift's local
// start instant without offset, e.g. "2024-03-05T06:00:00". The same
// string doubles as the dateTime value sent to calendar backends that
// carry the zone name separately.
const KeyLayout = "2006-01-02T15:04:05"

// ReminderMethod distinguishes how a reminder is delivered.
type ReminderMethod string

const (
	ReminderEmail ReminderMethod = "email"
	ReminderPopup ReminderMethod = "popup"
)

// Reminder is one (channel, lead time) pair attached to an event.
type Reminder struct {
	Method      ReminderMethod
	LeadMinutes int64
}

// DefaultReminders returns the fixed reminder policy applied to every
// shift event: email a day and half a day ahead, popups closer in.
func DefaultReminders() []Reminder {
	return []Reminder{
		{Method: ReminderEmail, LeadMinutes: 24 * 60},
		{Method: ReminderEmail, LeadMinutes: 12 * 60},
		{Method: ReminderPopup, LeadMinutes: 12 * 60},
		{Method: ReminderPopup, LeadMinutes: 60},
		{Method: ReminderPopup, LeadMinutes: 10},
	}
}

// ShiftEvent is one rostered shift, normalized into the site time zone
// and ready to be pushed to a remote calendar.
type ShiftEvent struct {
	// Key is Start formatted with KeyLayout; it is the identity used
	// for de-duplication across overlapping month pages.
	Key string

	Summary     string // role worked during the shift
	Location    string // fixed site address
	Description string // generation timestamp, for audit

	// Start and End carry the site location; End is always after Start
	// (overnight shifts roll the end date forward).
	Start time.Time
	End   time.Time

	Reminders []Reminder
}

// ShiftEventSet is a keyed collection of shift events. Insertion with
// an existing key overwrites, so re-parsing an overlapping page is
// idempotent.
type ShiftEventSet map[string]ShiftEvent

func NewShiftEventSet() ShiftEventSet {
	return make(ShiftEventSet)
}

// Insert adds ev under its own key, replacing any previous entry.
func (s ShiftEventSet) Insert(ev ShiftEvent) {
	s[ev.Key] = ev
}

// Keys returns the set's keys in chronological (lexicographic) order.
func (s ShiftEventSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	// Key strings sort chronologically by construction.
	sort.Strings(keys)
	return keys
}

// Events returns the events ordered by key.
func (s ShiftEventSet) Events() []ShiftEvent {
	out := make([]ShiftEvent, 0, len(s))
	for _, k := range s.Keys() {
		out = append(out, s[k])
	}
	return out
}

// RemoteEvent is the minimal view of an event already present in the
// remote calendar: enough to target it for deletion.
type RemoteEvent struct {
	// ID is the backend-specific identifier (Google event id, CalDAV
	// object path).
	ID    string
	Start time.Time
}
