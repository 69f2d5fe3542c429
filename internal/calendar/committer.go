// Package calendar inserts booked meetings into Google Calendar.
package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/comigor/nazborg-go/internal/booking"
	"github.com/comigor/nazborg-go/internal/config"
)

// Committer performs a single Events.Insert per booking. Refreshing an
// expired access token is left to the oauth2 token source.
type Committer struct {
	oauth      *oauth2.Config
	calendarID string
	endpoint   string
	loc        *time.Location
}

func NewCommitter(oauthCfg *oauth2.Config, cfg config.GoogleCalendarConfig, loc *time.Location) *Committer {
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Committer{
		oauth:      oauthCfg,
		calendarID: calendarID,
		endpoint:   cfg.Endpoint,
		loc:        loc,
	}
}

// Commit inserts b using tok.
func (c *Committer) Commit(ctx context.Context, b booking.Resolved, tok *oauth2.Token) (*booking.CommittedEvent, error) {
	opts := []option.ClientOption{option.WithTokenSource(c.oauth.TokenSource(ctx, tok))}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar client: %w", err)
	}

	created, err := svc.Events.Insert(c.calendarID, c.event(b)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	return &booking.CommittedEvent{
		ID:          created.Id,
		Link:        created.HtmlLink,
		Summary:     created.Summary,
		Description: created.Description,
		Start:       b.Start,
		End:         b.End,
	}, nil
}

func (c *Committer) event(b booking.Resolved) *gcal.Event {
	tz := c.loc.String()
	return &gcal.Event{
		Summary:     Summary(b.Name),
		Description: b.Reason,
		Start: &gcal.EventDateTime{
			DateTime: b.Start.In(c.loc).Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &gcal.EventDateTime{
			DateTime: b.End.In(c.loc).Format(time.RFC3339),
			TimeZone: tz,
		},
	}
}

// Summary is the event title shown on the calendar.
func Summary(name string) string {
	return "Meeting with " + name
}
