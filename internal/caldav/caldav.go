// Package caldav implements the remote calendar store against a
// CalDAV collection (iCloud, Nextcloud, Radicale, ...).
package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	appLog "rostersync/internal/log"
	"rostersync/internal/model"
)

// Options configures the CalDAV client.
type Options struct {
	// BaseURL is the CalDAV endpoint, e.g. "https://caldav.example.com".
	BaseURL string
	// CalendarPath is the collection all shift objects live in.
	CalendarPath string
	Username     string
	Password     string
	// AlarmEmail is the address email reminders are sent to. Without
	// it, email reminders degrade to DISPLAY alarms.
	AlarmEmail string
}

// Client talks to one CalDAV collection with basic auth.
type Client struct {
	client       *caldav.Client
	calendarPath string
	alarmEmail   string
}

// New dials the CalDAV endpoint.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" || opts.CalendarPath == "" {
		return nil, fmt.Errorf("caldav: base URL and calendar path are required")
	}
	if opts.Username == "" || opts.Password == "" {
		return nil, fmt.Errorf("caldav: credentials are required")
	}

	httpClient := webdav.HTTPClientWithBasicAuth(
		&http.Client{Timeout: 30 * time.Second},
		opts.Username, opts.Password,
	)
	client, err := caldav.NewClient(httpClient, opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("caldav: connect: %w", err)
	}

	return &Client{client: client, calendarPath: opts.CalendarPath, alarmEmail: opts.AlarmEmail}, nil
}

// List runs a time-range calendar-query over the collection. The
// returned ids are object paths, directly usable by Delete.
func (c *Client) List(ctx context.Context, from, to time.Time) ([]model.RemoteEvent, error) {
	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: from,
				End:   to,
			}},
		},
	}

	objects, err := c.client.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("caldav: query calendar: %w", err)
	}

	var out []model.RemoteEvent
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, ev := range obj.Data.Events() {
			start, err := ev.DateTimeStart(time.UTC)
			if err != nil {
				appLog.Warn("caldav object without readable DTSTART", "path", obj.Path)
				continue
			}
			out = append(out, model.RemoteEvent{ID: obj.Path, Start: start})
			// One VEVENT per object by construction; extras share the
			// same path and would be deleted together anyway.
			break
		}
	}
	return out, nil
}

// Delete removes the calendar object at the given path.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.client.RemoveAll(ctx, id); err != nil {
		return fmt.Errorf("caldav: delete %s: %w", id, err)
	}
	return nil
}

// Create PUTs a one-VEVENT calendar object whose UID and path derive
// from the event key. VALARMs mirror the reminder policy: email
// reminders become EMAIL actions when an alarm address is configured,
// popups (and unaddressed email reminders) DISPLAY actions.
func (c *Client) Create(ctx context.Context, ev model.ShiftEvent) error {
	cal, uid := c.shiftObject(ev, time.Now())

	objPath := c.calendarPath
	if !strings.HasSuffix(objPath, "/") {
		objPath += "/"
	}
	objPath += uid + ".ics"

	if _, err := c.client.PutCalendarObject(ctx, objPath, cal); err != nil {
		return fmt.Errorf("caldav: put %s: %w", objPath, err)
	}

	appLog.Debug("caldav object created", "key", ev.Key, "path", objPath)
	return nil
}

// shiftObject builds the one-VEVENT calendar object for ev and the UID
// its path derives from.
func (c *Client) shiftObject(ev model.ShiftEvent, now time.Time) (*ical.Calendar, string) {
	uid := "rostersync-" + strings.NewReplacer(":", "", "-", "").Replace(ev.Key)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//rostersync//EN")

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetText(ical.PropSummary, ev.Summary)
	vevent.Props.SetText(ical.PropLocation, ev.Location)
	vevent.Props.SetText(ical.PropDescription, ev.Description)
	vevent.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())

	for _, r := range ev.Reminders {
		vevent.Children = append(vevent.Children, alarm(r, c.alarmEmail))
	}

	cal.Children = append(cal.Children, vevent.Component)
	return cal, uid
}

// alarm builds the VALARM for one reminder. The TRIGGER is
// duration-valued, counting back from DTSTART. EMAIL actions require a
// SUMMARY and an ATTENDEE (RFC 5545 §3.6.6), so email reminders only
// become EMAIL alarms when an address is configured.
func alarm(r model.Reminder, email string) *ical.Component {
	comp := ical.NewComponent(ical.CompAlarm)

	trigger := ical.NewProp(ical.PropTrigger)
	trigger.SetDuration(-time.Duration(r.LeadMinutes) * time.Minute)
	comp.Props.Set(trigger)

	comp.Props.SetText(ical.PropDescription, "Shift reminder")

	if r.Method == model.ReminderEmail && email != "" {
		comp.Props.SetText(ical.PropAction, "EMAIL")
		comp.Props.SetText(ical.PropSummary, "Shift reminder")
		attendee := ical.NewProp(ical.PropAttendee)
		attendee.Value = "mailto:" + email
		comp.Props.Set(attendee)
	} else {
		comp.Props.SetText(ical.PropAction, "DISPLAY")
	}
	return comp
}
