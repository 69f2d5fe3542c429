package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/comigor/nazborg-go/internal/auth"
	"github.com/comigor/nazborg-go/internal/booking"
)

// Scheduler commits a booking candidate.
type Scheduler interface {
	Schedule(ctx context.Context, c booking.Candidate, source booking.Source) (*booking.CommittedEvent, error)
}

// ScheduleTool books a meeting on the operator's calendar.
type ScheduleTool struct {
	Scheduler Scheduler
}

func NewScheduleTool(s Scheduler) *ScheduleTool {
	return &ScheduleTool{Scheduler: s}
}

func (t *ScheduleTool) Name() string { return "schedule_appointment" }

func (t *ScheduleTool) Description() string {
	return "Books a 30 minute meeting with Eddie Nazario on his Google Calendar."
}

func (t *ScheduleTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(t.Description()),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the person booking the meeting")),
		mcp.WithString("dateTime", mcp.Required(), mcp.Description("Requested start, absolute or relative (e.g. \"next Friday at 2pm\")")),
		mcp.WithString("reason", mcp.Required(), mcp.Description("What the meeting is about")),
	)
}

func (t *ScheduleTool) Run(ctx context.Context, args map[string]any) (string, error) {
	c := booking.Candidate{
		Name:        stringArg(args, "name"),
		RawDateTime: stringArg(args, "dateTime"),
		Reason:      stringArg(args, "reason"),
	}
	ev, err := t.Scheduler.Schedule(ctx, c, booking.SourceTool)
	switch {
	case err == nil:
		return "Meeting booked: " + ev.Link, nil
	case errors.Is(err, auth.ErrUnauthenticated):
		return "", errors.New("calendar is not connected; the operator must visit /auth/google")
	case errors.Is(err, booking.ErrCommit):
		return "", errors.New("the calendar rejected the event")
	default:
		return "", fmt.Errorf("cannot book: %w", err)
	}
}
