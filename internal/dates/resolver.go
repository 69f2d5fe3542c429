// Package dates turns free-text date and time expressions into absolute
// timestamps in the configured scheduling timezone.
package dates

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var (
	isoPattern = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2})?(?:Z|[+-]\d{2}:?\d{2})?)?\b`)

	timePattern = regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(?:a\.?m\.?|p\.?m\.?)(?:[^a-z]|$)|\b\d{1,2}:\d{2}\b|\b(?:noon|midnight)\b`)
	dayPattern  = regexp.MustCompile(`(?i)\b(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tues?|wed|thu(?:rs?)?|fri|sat|sun|today|tomorrow|tonight)\b|\d`)

	monthPattern = regexp.MustCompile(`(?i)\b(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\b|\b\d{1,2}/\d{1,2}\b`)
	yearPattern  = regexp.MustCompile(`\b\d{4}\b|\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
)

// connectors may surround a natural-language match without changing its meaning.
var connectors = map[string]bool{"at": true, "on": true}

// Resolver interprets relative and absolute expressions against a reference instant.
type Resolver struct {
	loc    *time.Location
	parser *when.Parser
}

// Match is a date expression found inside a longer text.
type Match struct {
	Text    string
	Time    time.Time
	HasDay  bool
	HasTime bool
}

// NewResolver returns a Resolver for loc; nil means UTC.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Resolver{loc: loc, parser: w}
}

// Location is the single timezone every booking is resolved in.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve parses the whole of text. Explicit formats (ISO 8601, bare dates,
// common US layouts) are tried first, then natural language such as
// "next Friday at 2pm". A natural-language match must cover the entire text
// and name a day or a time; a month-day without a year is the next one on or
// after ref. Results are truncated to the minute.
func (r *Resolver) Resolve(text string, ref time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	if t, err := dateparse.ParseIn(text, r.loc); err == nil && specific(text) {
		return r.finish(text, t, ref), true
	}
	res, err := r.parser.Parse(text, ref.In(r.loc))
	if err != nil || res == nil {
		return time.Time{}, false
	}
	if !covers(text, res.Index, res.Text) || !specific(res.Text) {
		return time.Time{}, false
	}
	return r.finish(text, res.Time, ref), true
}

// Find scans text for the first date expression that names a day or a time.
// Bare month names ("May I ask...") and words like "now" are skipped.
func (r *Resolver) Find(text string, ref time.Time) (Match, bool) {
	if iso := isoPattern.FindString(text); iso != "" {
		if t, err := dateparse.ParseIn(iso, r.loc); err == nil {
			return Match{Text: iso, Time: r.finish(iso, t, ref), HasDay: true, HasTime: strings.ContainsRune(iso, ':')}, true
		}
	}

	for offset := 0; offset < len(text); {
		res, err := r.parser.Parse(text[offset:], ref.In(r.loc))
		if err != nil || res == nil || res.Text == "" {
			break
		}
		found := strings.TrimSpace(res.Text)
		m := Match{
			Text:    found,
			HasDay:  dayPattern.MatchString(found),
			HasTime: timePattern.MatchString(found),
		}
		if m.HasDay || m.HasTime {
			m.Time = r.finish(found, res.Time, ref)
			return m, true
		}
		offset += res.Index + len(res.Text)
	}
	return Match{}, false
}

// finish moves t into the scheduling timezone, rolls a year-less month-day
// that already passed into next year, and drops seconds.
func (r *Resolver) finish(text string, t, ref time.Time) time.Time {
	t = t.In(r.loc)
	ref = ref.In(r.loc)
	if t.Before(ref) && monthPattern.MatchString(text) && !yearPattern.MatchString(text) {
		t = time.Date(ref.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), r.loc)
		if t.Before(ref) {
			t = t.AddDate(1, 0, 0)
		}
	}
	return t.Truncate(time.Minute)
}

// covers reports whether the match at index spans text apart from
// punctuation and connector words.
func covers(text string, index int, matched string) bool {
	end := index + len(matched)
	if index < 0 || end > len(text) {
		return false
	}
	rest := text[:index] + " " + text[end:]
	for _, word := range strings.FieldsFunc(rest, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	}) {
		if !connectors[strings.ToLower(word)] {
			return false
		}
	}
	return true
}

func specific(text string) bool {
	return dayPattern.MatchString(text) || timePattern.MatchString(text)
}
