package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comigor/nazborg-go/internal/auth"
	"github.com/comigor/nazborg-go/internal/dates"
	"github.com/comigor/nazborg-go/internal/logger"
	"github.com/comigor/nazborg-go/internal/metrics"
	"github.com/comigor/nazborg-go/internal/tasks"
)

var (
	ErrIncomplete      = errors.New("name, dateTime and reason are required")
	ErrUnparseableDate = errors.New("could not understand the requested date and time")
	ErrPastDate        = errors.New("the requested time is in the past")
	ErrCommit          = errors.New("calendar event could not be created")
)

// Service resolves candidates, commits them with the held credential and
// dispatches the operator notification. One commit attempt per call.
type Service struct {
	resolver  *dates.Resolver
	tokens    *auth.TokenHolder
	committer Committer
	notifier  Notifier
	tasks     *tasks.Dispatcher
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(resolver *dates.Resolver, tokens *auth.TokenHolder, committer Committer, notifier Notifier, dispatcher *tasks.Dispatcher, m *metrics.Metrics) *Service {
	return &Service{
		resolver:  resolver,
		tokens:    tokens,
		committer: committer,
		notifier:  notifier,
		tasks:     dispatcher,
		metrics:   m,
		now:       time.Now,
	}
}

// Resolve validates c and turns its date expression into a future start time.
func (s *Service) Resolve(c Candidate) (Resolved, error) {
	if !c.Complete() {
		return Resolved{}, ErrIncomplete
	}
	now := s.now()
	start, ok := s.resolver.Resolve(c.RawDateTime, now)
	if !ok {
		return Resolved{}, fmt.Errorf("%w: %q", ErrUnparseableDate, c.RawDateTime)
	}
	if !start.After(now) {
		return Resolved{}, fmt.Errorf("%w: %s", ErrPastDate, start.Format(time.RFC3339))
	}
	return NewResolved(c.Name, c.Reason, start), nil
}

// Schedule books c. It fails fast with auth.ErrUnauthenticated before any
// provider call when no credential is held.
func (s *Service) Schedule(ctx context.Context, c Candidate, source Source) (*CommittedEvent, error) {
	b, err := s.Resolve(c)
	if err != nil {
		s.metrics.Booking(string(source), "rejected")
		return nil, err
	}

	tok, err := s.tokens.Current()
	if err != nil {
		s.metrics.Booking(string(source), "unauthenticated")
		return nil, err
	}

	ev, err := s.committer.Commit(ctx, b, tok)
	if err != nil {
		s.metrics.Booking(string(source), "failed")
		return nil, fmt.Errorf("%w: %w", ErrCommit, err)
	}
	s.metrics.Booking(string(source), "committed")
	logger.From(ctx).Info("booking committed", "source", source, "event_id", ev.ID, "start", b.Start.Format(time.RFC3339))

	s.dispatchNotification(Notification{Name: b.Name, Reason: b.Reason, Start: b.Start, Link: ev.Link})
	return ev, nil
}

func (s *Service) dispatchNotification(n Notification) {
	if s.notifier == nil {
		return
	}
	s.tasks.Submit("notify", func(ctx context.Context) error {
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.metrics.Notification("failed")
			return fmt.Errorf("notify operator: %w", err)
		}
		s.metrics.Notification("sent")
		return nil
	})
}
