package caldav

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rostersync/internal/model"
)

func testShift(t *testing.T) model.ShiftEvent {
	t.Helper()
	loc, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)
	start := time.Date(2024, time.March, 5, 6, 0, 0, 0, loc)
	return model.ShiftEvent{
		Key:         "2024-03-05T06:00:00",
		Summary:     "0600-1400 D RN",
		Location:    "Main Campus",
		Description: "Synced from roster at 2024-02-20T10:00:00Z",
		Start:       start,
		End:         start.Add(8 * time.Hour),
		Reminders:   model.DefaultReminders(),
	}
}

func encodeObject(t *testing.T, c *Client, ev model.ShiftEvent) string {
	t.Helper()
	cal, _ := c.shiftObject(ev, time.Date(2024, time.February, 20, 10, 0, 0, 0, time.UTC))
	var buf bytes.Buffer
	require.NoError(t, ical.NewEncoder(&buf).Encode(cal))
	return buf.String()
}

func TestShiftObject_TriggersAreDurationValued(t *testing.T) {
	out := encodeObject(t, &Client{}, testShift(t))

	// A TRIGGER with VALUE=TEXT is not a valid alarm trigger; servers
	// that validate (Radicale, iCloud) reject the whole object.
	assert.NotContains(t, out, "VALUE=TEXT")
	assert.Contains(t, out, "TRIGGER:-PT86400S") // 1440 min
	assert.Contains(t, out, "TRIGGER:-PT43200S") // 720 min
	assert.Contains(t, out, "TRIGGER:-PT3600S")  // 60 min
	assert.Contains(t, out, "TRIGGER:-PT600S")   // 10 min
}

func TestShiftObject_EmailAlarmsCarrySummaryAndAttendee(t *testing.T) {
	out := encodeObject(t, &Client{alarmEmail: "ops@example.com"}, testShift(t))

	assert.Contains(t, out, "ACTION:EMAIL")
	assert.Contains(t, out, "SUMMARY:Shift reminder")
	assert.Contains(t, out, "ATTENDEE:mailto:ops@example.com")
	assert.Contains(t, out, "ACTION:DISPLAY")
}

func TestShiftObject_NoAlarmEmailFallsBackToDisplay(t *testing.T) {
	out := encodeObject(t, &Client{}, testShift(t))

	assert.NotContains(t, out, "ACTION:EMAIL")
	assert.NotContains(t, out, "ATTENDEE")
	assert.Contains(t, out, "ACTION:DISPLAY")
}

func TestShiftObject_UIDFromKey(t *testing.T) {
	cal, uid := (&Client{}).shiftObject(testShift(t), time.Now())

	assert.Equal(t, "rostersync-20240305T060000", uid)
	require.Len(t, cal.Events(), 1)
	got, err := cal.Events()[0].Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, uid, got)
}
