// Package calendar implements the reminder service on Google Calendar.
// Events are all-alike: a fixed start time of day, a fixed duration, the user
// as only attendee, and a same-day email notification.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/gmarini/reviewdesk/internal/config"
	"github.com/gmarini/reviewdesk/internal/domain"
)

// Client is the Calendar-backed reminder service.
type Client struct {
	svc *gcal.Service
	cfg config.CalendarConfig
	log *slog.Logger
	loc *time.Location
}

// NewClient builds the Calendar client.
func NewClient(ctx context.Context, cfg config.CalendarConfig, ts oauth2.TokenSource, log *slog.Logger) (*Client, error) {
	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("calendar: new service: %w", err)
	}
	return &Client{
		svc: svc,
		cfg: cfg,
		log: log.With("adapter", "calendar"),
		loc: cfg.Location(),
	}, nil
}

// CreateEvent inserts a reminder event on the given calendar day and returns
// its id. The event starts at the configured local hour.
func (c *Client) CreateEvent(ctx context.Context, subject, description string, day time.Time) (string, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), c.cfg.EventHour, 0, 0, 0, c.loc)
	end := start.Add(c.cfg.EventDuration)

	event := &gcal.Event{
		Summary:     subject,
		Description: description,
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: c.cfg.TimeZone},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: c.cfg.TimeZone},
		Attendees:   []*gcal.EventAttendee{{Email: c.cfg.CalendarID}},
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       []*gcal.EventReminder{{Method: "email", Minutes: 0}},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	created, err := c.svc.Events.Insert(c.cfg.CalendarID, event).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return "", mapError(err, "create event", subject)
	}
	c.log.Info("created reminder", slog.String("subject", subject), slog.String("date", domain.FormatDate(day)))
	return created.Id, nil
}

// DeleteEvent removes a single event by id.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	if err := c.svc.Events.Delete(c.cfg.CalendarID, eventID).Context(ctx).Do(); err != nil {
		return mapError(err, "delete event", eventID)
	}
	return nil
}

// ListFutureEvents scans all future events (paginated) and returns those
// whose summary equals subject.
func (c *Client) ListFutureEvents(ctx context.Context, subject string) ([]domain.CalendarEvent, error) {
	timeMin := time.Now().UTC().Format(time.RFC3339)

	var events []domain.CalendarEvent
	pageToken := ""
	for {
		call := c.svc.Events.List(c.cfg.CalendarID).TimeMin(timeMin).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, mapError(err, "list events", subject)
		}
		for _, ev := range list.Items {
			if ev.Summary == subject {
				events = append(events, domain.CalendarEvent{ID: ev.Id, Subject: ev.Summary})
			}
		}
		pageToken = list.NextPageToken
		if pageToken == "" {
			return events, nil
		}
	}
}
