// Package intent finds scheduling requests in a chat turn. Strategies run in
// order and the first one that reaches a verdict decides the turn.
package intent

import (
	"time"

	"github.com/comigor/nazborg-go/internal/booking"
)

// Kind tags an extraction result.
type Kind int

const (
	// None means no strategy saw scheduling intent.
	None Kind = iota
	// Declined means a strategy saw intent but the request was incomplete;
	// later strategies must not guess the missing fields.
	Declined
	// Structured is a complete action block emitted by the model.
	Structured
	// Implicit is a date expression found in the user's own message.
	Implicit
)

func (k Kind) String() string {
	switch k {
	case Declined:
		return "declined"
	case Structured:
		return "structured"
	case Implicit:
		return "implicit"
	default:
		return "none"
	}
}

// Input is everything a strategy may look at.
type Input struct {
	Reply       string
	UserMessage string
	Now         time.Time
}

// Result is the tagged outcome of an extraction.
type Result struct {
	Kind      Kind
	Candidate booking.Candidate
}

// Found reports whether Candidate is actionable.
func (r Result) Found() bool {
	return r.Kind == Structured || r.Kind == Implicit
}

// Source maps the result to the booking source label.
func (r Result) Source() booking.Source {
	if r.Kind == Implicit {
		return booking.SourceImplicit
	}
	return booking.SourceModel
}

// Strategy inspects a turn. It returns a Result with Kind None to pass.
type Strategy interface {
	Extract(in Input) Result
}

// Extractor runs strategies in order.
type Extractor struct {
	strategies []Strategy
}

func NewExtractor(strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies}
}

// Extract returns the first non-None result.
func (e *Extractor) Extract(in Input) Result {
	for _, s := range e.strategies {
		if res := s.Extract(in); res.Kind != None {
			return res
		}
	}
	return Result{Kind: None}
}
