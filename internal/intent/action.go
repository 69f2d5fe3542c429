package intent

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/comigor/nazborg-go/internal/booking"
	"github.com/comigor/nazborg-go/internal/logger"
)

// ScheduleAction is the action value the model emits for a booking.
const ScheduleAction = "schedule"

// ActionBlock finds an inline {"action":"schedule",...} object in the model reply.
type ActionBlock struct{}

func (ActionBlock) Extract(in Input) Result {
	obj, ok := findAction(in.Reply)
	if !ok {
		if strings.Contains(in.Reply, `"`+ScheduleAction+`"`) {
			logger.L.Warn("schedule action block present but not parseable; ignoring")
		}
		return Result{Kind: None}
	}

	c := booking.Candidate{
		Name:        stringField(obj, "name"),
		RawDateTime: stringField(obj, "dateTime"),
		Reason:      stringField(obj, "reason"),
	}
	if !c.Complete() {
		logger.L.Info("schedule action block incomplete; not booking",
			"has_name", c.Name != "", "has_date", c.RawDateTime != "", "has_reason", c.Reason != "")
		return Result{Kind: Declined}
	}
	return Result{Kind: Structured, Candidate: c}
}

// findAction decodes a JSON object at every '{' in text and returns the first
// one whose action is ScheduleAction. Surrounding prose, code fences and
// newlines inside the object are tolerated.
func findAction(text string) (gjson.Result, bool) {
	for i := strings.IndexByte(text, '{'); i >= 0; {
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); err == nil {
			obj := gjson.ParseBytes(raw)
			if obj.IsObject() && obj.Get("action").String() == ScheduleAction {
				return obj, true
			}
		}
		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return gjson.Result{}, false
}

func stringField(obj gjson.Result, key string) string {
	v := obj.Get(key)
	if v.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(v.String())
}
