// Package booking holds the scheduling domain shared by the chat pipeline,
// the direct /schedule endpoint and the MCP tools: candidates, resolved
// bookings and the service that resolves, commits and announces them.
package booking

import (
	"context"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// EventDuration is the fixed length of every booked meeting.
const EventDuration = 30 * time.Minute

// Source names the path that produced a booking request.
type Source string

const (
	SourceDirect   Source = "direct"
	SourceModel    Source = "model"
	SourceImplicit Source = "implicit"
	SourceTool     Source = "tool"
)

// Candidate is an unvalidated booking request extracted from text.
type Candidate struct {
	Name        string
	RawDateTime string
	Reason      string
}

// Complete reports whether every field is non-blank.
func (c Candidate) Complete() bool {
	return strings.TrimSpace(c.Name) != "" &&
		strings.TrimSpace(c.RawDateTime) != "" &&
		strings.TrimSpace(c.Reason) != ""
}

// Resolved is a candidate with a concrete start and end.
type Resolved struct {
	Name   string
	Reason string
	Start  time.Time
	End    time.Time
}

// NewResolved fixes End to Start plus EventDuration.
func NewResolved(name, reason string, start time.Time) Resolved {
	return Resolved{
		Name:   strings.TrimSpace(name),
		Reason: strings.TrimSpace(reason),
		Start:  start,
		End:    start.Add(EventDuration),
	}
}

// CommittedEvent is the provider's view of an inserted event.
type CommittedEvent struct {
	ID          string
	Link        string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Notification is what the operator is told about a committed booking.
type Notification struct {
	Name   string
	Reason string
	Start  time.Time
	Link   string
}

// Committer creates a calendar event for a resolved booking.
type Committer interface {
	Commit(ctx context.Context, b Resolved, tok *oauth2.Token) (*CommittedEvent, error)
}

// Notifier tells the operator about a committed booking.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
