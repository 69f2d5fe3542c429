package intent

import (
	"strings"

	"github.com/comigor/nazborg-go/internal/booking"
	"github.com/comigor/nazborg-go/internal/dates"
)

// ImplicitDate books from a date expression in the user's message when the
// model produced no action block. The name is a placeholder and the reason is
// the message itself. Only expressions with a time of day count: "Friday" or
// "May" alone is conversation, not a booking request.
type ImplicitDate struct {
	Resolver        *dates.Resolver
	PlaceholderName string
}

func (s ImplicitDate) Extract(in Input) Result {
	msg := strings.TrimSpace(in.UserMessage)
	if msg == "" {
		return Result{Kind: None}
	}
	m, ok := s.Resolver.Find(msg, in.Now)
	if !ok || m.Text == "" || !m.HasTime {
		return Result{Kind: None}
	}
	name := s.PlaceholderName
	if name == "" {
		name = "Guest"
	}
	return Result{
		Kind:      Implicit,
		Candidate: booking.Candidate{Name: name, RawDateTime: m.Text, Reason: msg},
	}
}
