// Package gcal implements the remote calendar store on the Google
// Calendar v3 API.
package gcal

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	appLog "rostersync/internal/log"
	"rostersync/internal/model"
)

// Options configures the Google Calendar client.
type Options struct {
	// CalendarID is the target calendar ("primary" or an explicit id).
	CalendarID string
	// CredentialsFile is a Google credentials JSON path (service
	// account or authorized user).
	CredentialsFile string
	// TimeZone is the IANA zone name stamped on created events, e.g.
	// "Australia/Sydney".
	TimeZone string
}

// Client wraps a calendar.Service for the one configured calendar.
type Client struct {
	svc        *calendar.Service
	calendarID string
	timeZone   string
}

// New builds a client from a credentials file.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.CalendarID == "" {
		opts.CalendarID = "primary"
	}
	if opts.CredentialsFile == "" {
		return nil, fmt.Errorf("gcal: credentials file is required")
	}

	svc, err := calendar.NewService(ctx,
		option.WithCredentialsFile(opts.CredentialsFile),
		option.WithScopes(calendar.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("gcal: build calendar service: %w", err)
	}

	return &Client{svc: svc, calendarID: opts.CalendarID, timeZone: opts.TimeZone}, nil
}

// List returns the single (non-recurring-expanded) events starting in
// [from, to], following result pages until exhausted.
func (c *Client) List(ctx context.Context, from, to time.Time) ([]model.RemoteEvent, error) {
	var out []model.RemoteEvent

	pageToken := ""
	for {
		call := c.svc.Events.List(c.calendarID).
			Context(ctx).
			SingleEvents(true).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			OrderBy("startTime")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("gcal: list events: %w", err)
		}

		for _, item := range resp.Items {
			out = append(out, model.RemoteEvent{
				ID:    item.Id,
				Start: parseEventStart(item),
			})
		}

		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}
}

// Delete removes one event by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.svc.Events.Delete(c.calendarID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gcal: delete event %s: %w", id, err)
	}
	return nil
}

// Create inserts one shift event with the fixed reminder overrides.
func (c *Client) Create(ctx context.Context, ev model.ShiftEvent) error {
	overrides := make([]*calendar.EventReminder, 0, len(ev.Reminders))
	for _, r := range ev.Reminders {
		overrides = append(overrides, &calendar.EventReminder{
			Method:  string(r.Method),
			Minutes: r.LeadMinutes,
		})
	}

	entry := &calendar.Event{
		Summary:     ev.Summary,
		Location:    ev.Location,
		Description: ev.Description,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(model.KeyLayout),
			TimeZone: c.timeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(model.KeyLayout),
			TimeZone: c.timeZone,
		},
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		},
	}

	created, err := c.svc.Events.Insert(c.calendarID, entry).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gcal: insert event %s: %w", ev.Key, err)
	}

	appLog.Debug("gcal event created", "key", ev.Key, "id", created.Id)
	return nil
}

// parseEventStart reads an item's start as a time; all-day events come
// back as bare dates.
func parseEventStart(item *calendar.Event) time.Time {
	if item.Start == nil {
		return time.Time{}
	}
	if item.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
			return t
		}
	}
	if item.Start.Date != "" {
		if t, err := time.Parse("2006-01-02", item.Start.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}
