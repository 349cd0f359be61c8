package roster

import (
	"strings"
)

// NonShiftReason classifies a roster cell that does not describe a
// working shift.
type NonShiftReason string

const (
	ReasonOff           NonShiftReason = "OFF"
	ReasonPublicHoliday NonShiftReason = "PUBLIC_HOLIDAY"
	ReasonOvertime      NonShiftReason = "OVERTIME"
	ReasonNotAvailable  NonShiftReason = "NOT_AVAILABLE"
	ReasonSick          NonShiftReason = "SICK"
	ReasonUnrecognized  NonShiftReason = "UNRECOGNIZED"
)

// markers maps the portal's status vocabulary to reasons. "Not" covers
// phrases like "Not available" where only the first word is stable.
var markers = map[string]NonShiftReason{
	"OFF":  ReasonOff,
	"PH":   ReasonPublicHoliday,
	"OT":   ReasonOvertime,
	"NA":   ReasonNotAvailable,
	"SICK": ReasonSick,
	"Not":  ReasonNotAvailable,
}

// TokenKind is the classification of one cell text.
type TokenKind int

const (
	// KindShift: the cell describes a working shift.
	KindShift TokenKind = iota
	// KindNonShift: a recognized non-working marker; not an error.
	KindNonShift
	// KindMalformed: a non-marker cell that could not be decomposed.
	// The caller surfaces it to the operator and skips the cell.
	KindMalformed
)

// TimeRange is a shift's start and end as portal "HHMM" strings.
type TimeRange struct {
	Start string
	End   string
}

// Token is the result of interpreting one cell. Exactly one variant
// applies: Shift fields are set only for KindShift, Reason only for
// KindNonShift, and Raw always carries the original text.
type Token struct {
	Kind   TokenKind
	Times  TimeRange
	Role   string
	Reason NonShiftReason
	Raw    string
}

// Interpret classifies one normalized cell text. Shift cells look like
//
//	"0600-1400 ABC(L) RoleName ..."
//
// where the first token is the time range, the second a site/shift-type
// code (parsed but not retained), and the third the role. Anything
// that is neither a marker nor decomposable that way comes back as
// KindMalformed; this function never fails.
func Interpret(text string) Token {
	tok := Token{Raw: text}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		tok.Kind = KindMalformed
		return tok
	}

	if reason, ok := markers[fields[0]]; ok {
		tok.Kind = KindNonShift
		tok.Reason = reason
		return tok
	}

	times, ok := parseTimeRange(fields[0])
	if !ok || len(fields) < 3 {
		tok.Kind = KindMalformed
		return tok
	}

	tok.Kind = KindShift
	tok.Times = times
	tok.Role = fields[2]
	return tok
}

// parseTimeRange splits "HHMM-HHMM" and checks both halves are
// four-digit numbers.
func parseTimeRange(s string) (TimeRange, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return TimeRange{}, false
	}
	if !isClockDigits(parts[0]) || !isClockDigits(parts[1]) {
		return TimeRange{}, false
	}
	return TimeRange{Start: parts[0], End: parts[1]}, true
}

func isClockDigits(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
