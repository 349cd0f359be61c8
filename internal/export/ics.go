// Package export writes an aggregated shift set out as a single ICS
// file so the operator can inspect or import it independently of the
// remote calendar push.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	appLog "rostersync/internal/log"
	"rostersync/internal/model"
)

// WriteFile serializes the set to path (0600), one VEVENT per shift.
func WriteFile(path string, set model.ShiftEventSet) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("export: open %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, set); err != nil {
		return err
	}

	appLog.Info("ics export written", "path", path, "events", len(set))
	return nil
}

// Write serializes the set as an ICS calendar to w in key order.
func Write(w io.Writer, set model.ShiftEventSet) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//rostersync//EN")

	for _, ev := range set.Events() {
		vevent := cal.AddEvent(eventUID(ev))
		vevent.SetDtStampTime(time.Now())
		vevent.SetStartAt(ev.Start)
		vevent.SetEndAt(ev.End)
		vevent.SetSummary(ev.Summary)
		vevent.SetLocation(ev.Location)
		vevent.SetDescription(ev.Description)

		for _, r := range ev.Reminders {
			alarm := vevent.AddAlarm()
			action := ics.ActionDisplay
			if r.Method == model.ReminderEmail {
				action = ics.ActionEmail
			}
			alarm.SetAction(action)
			alarm.SetTrigger(fmt.Sprintf("-PT%dM", r.LeadMinutes))
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("export: serialize: %w", err)
	}
	return nil
}

// eventUID derives a stable UID from the event key, so re-exports
// produce identical identifiers for identical shifts.
func eventUID(ev model.ShiftEvent) string {
	return "rostersync-" + strings.NewReplacer(":", "", "-", "").Replace(ev.Key)
}
