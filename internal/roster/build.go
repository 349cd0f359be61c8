package roster

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rostersync/internal/model"
)

// Errors surfaced when a shift record cannot be resolved into a real
// date. They fail only the one record; callers skip it and continue.
var (
	ErrBadMonthLabel = errors.New("roster: month label is not \"<MonthName> <Year>\"")
	ErrUnknownMonth  = errors.New("roster: unrecognized month name")
	ErrBadClockTime  = errors.New("roster: time component out of range")
)

// monthNumbers resolves English month names case-insensitively.
var monthNumbers = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

// Builder turns interpreted shift tokens into model.ShiftEvent values.
// The zero value is not usable; construct with NewBuilder.
type Builder struct {
	site *time.Location
	loc  string // event location line, the fixed site address

	// now stamps event descriptions; swappable in tests.
	now func() time.Time
}

// NewBuilder returns a Builder producing events in the given site time
// zone with the given location line.
func NewBuilder(site *time.Location, location string) *Builder {
	if site == nil {
		site = time.Local
	}
	return &Builder{site: site, loc: location, now: time.Now}
}

// Build resolves (monthLabel, dayNumber, shift token) into a
// ShiftEvent. The month label must be "<MonthName> <Year>". A shift
// whose end clock reading is not after its start is taken to finish
// the next day. Build never mutates its inputs; on failure the one
// record is reported and nothing is produced.
func (b *Builder) Build(monthLabel string, dayNumber int, tok Token) (model.ShiftEvent, error) {
	if tok.Kind != KindShift {
		return model.ShiftEvent{}, fmt.Errorf("roster: build called with non-shift token %q", tok.Raw)
	}

	month, year, err := resolveMonthLabel(monthLabel)
	if err != nil {
		return model.ShiftEvent{}, err
	}

	startH, startM, err := splitClock(tok.Times.Start)
	if err != nil {
		return model.ShiftEvent{}, err
	}
	endH, endM, err := splitClock(tok.Times.End)
	if err != nil {
		return model.ShiftEvent{}, err
	}

	start := time.Date(year, month, dayNumber, startH, startM, 0, 0, b.site)
	end := time.Date(year, month, dayNumber, endH, endM, 0, 0, b.site)
	if !end.After(start) {
		// Overnight shift: the portal prints only clock times, so an
		// end at or before the start means the shift crosses midnight.
		end = end.AddDate(0, 0, 1)
	}

	return model.ShiftEvent{
		Key:         start.Format(model.KeyLayout),
		Summary:     tok.Role,
		Location:    b.loc,
		Description: "Synced from roster at " + b.now().Format(time.RFC3339),
		Start:       start,
		End:         end,
		Reminders:   model.DefaultReminders(),
	}, nil
}

// resolveMonthLabel splits "March 2024" into its month and year.
func resolveMonthLabel(label string) (time.Month, int, error) {
	fields := strings.Fields(label)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadMonthLabel, label)
	}

	month, ok := monthNumbers[strings.ToLower(fields[0])]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownMonth, fields[0])
	}

	year, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadMonthLabel, label)
	}

	return month, year, nil
}

// splitClock decomposes "HHMM" into hour and minute, rejecting
// readings past 23:59. The interpreter already guaranteed four digits.
func splitClock(hhmm string) (hour, minute int, err error) {
	if len(hhmm) != 4 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClockTime, hhmm)
	}
	hour, _ = strconv.Atoi(hhmm[:2])
	minute, _ = strconv.Atoi(hhmm[2:])
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClockTime, hhmm)
	}
	return hour, minute, nil
}
