package tools

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/comigor/nazborg-go/internal/auth"
	"github.com/comigor/nazborg-go/internal/booking"
	"github.com/comigor/nazborg-go/internal/dates"
)

type mockScheduler struct {
	err    error
	calls  []booking.Candidate
	source booking.Source
}

func (m *mockScheduler) Schedule(ctx context.Context, c booking.Candidate, source booking.Source) (*booking.CommittedEvent, error) {
	m.calls = append(m.calls, c)
	m.source = source
	if m.err != nil {
		return nil, m.err
	}
	return &booking.CommittedEvent{ID: "e1", Link: "https://calendar.google.com/event?eid=e1"}, nil
}

func TestToolManager(t *testing.T) {
	m := NewToolManager()
	m.RegisterTool(NewScheduleTool(&mockScheduler{}))
	m.RegisterTool(NewResolveDateTool(dates.NewResolver(time.UTC)))

	names := []string{}
	for _, tool := range m.List() {
		names = append(names, tool.Name())
	}
	require.Equal(t, []string{"resolve_date", "schedule_appointment"}, names)

	tool, err := m.GetTool("schedule_appointment")
	require.NoError(t, err)
	require.Equal(t, "schedule_appointment", tool.Definition().Name)
	require.ElementsMatch(t, []string{"name", "dateTime", "reason"}, tool.Definition().InputSchema.Required)

	_, err = m.GetTool("home_assistant")
	require.Error(t, err)

	require.NotNil(t, m.MCPServer("nazborg", "test"))
}

func TestScheduleTool_Run(t *testing.T) {
	s := &mockScheduler{}
	tool := NewScheduleTool(s)

	out, err := tool.Run(context.Background(), map[string]any{
		"name":     "John",
		"dateTime": "next Friday at 2pm",
		"reason":   "discuss React",
	})
	require.NoError(t, err)
	require.Equal(t, "Meeting booked: https://calendar.google.com/event?eid=e1", out)
	require.Equal(t, booking.SourceTool, s.source)
	require.Equal(t, booking.Candidate{Name: "John", RawDateTime: "next Friday at 2pm", Reason: "discuss React"}, s.calls[0])
}

func TestScheduleTool_NonStringArgs(t *testing.T) {
	s := &mockScheduler{err: booking.ErrIncomplete}
	tool := NewScheduleTool(s)

	_, err := tool.Run(context.Background(), map[string]any{"name": 7, "dateTime": "tomorrow", "reason": "x"})
	require.ErrorIs(t, err, booking.ErrIncomplete)
	require.Empty(t, s.calls[0].Name)
}

func TestScheduleTool_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{auth.ErrUnauthenticated, "calendar is not connected"},
		{fmt.Errorf("%w: %w", booking.ErrCommit, &googleapi.Error{Code: 500}), "the calendar rejected the event"},
		{booking.ErrPastDate, "cannot book"},
	}
	for _, tc := range tests {
		tool := NewScheduleTool(&mockScheduler{err: tc.err})
		_, err := tool.Run(context.Background(), map[string]any{"name": "a", "dateTime": "b", "reason": "c"})
		require.ErrorContains(t, err, tc.want)
	}
}

func TestResolveDateTool_Run(t *testing.T) {
	tool := NewResolveDateTool(dates.NewResolver(time.UTC))
	tool.Now = func() time.Time { return time.Date(2025, 10, 13, 8, 0, 0, 0, time.UTC) }

	out, err := tool.Run(context.Background(), map[string]any{"text": "2025-10-20T09:30:00Z"})
	require.NoError(t, err)
	require.Equal(t, "2025-10-20T09:30:00Z", out)

	_, err = tool.Run(context.Background(), map[string]any{"text": "  "})
	require.Error(t, err)

	_, err = tool.Run(context.Background(), map[string]any{"text": "when pigs fly"})
	require.Error(t, err)
}

func TestHandleCall_DispatchesByName(t *testing.T) {
	failing := NewToolManager()
	failing.RegisterTool(NewScheduleTool(&mockScheduler{err: auth.ErrUnauthenticated}))

	req := mcp.CallToolRequest{}
	req.Params.Name = "schedule_appointment"
	req.Params.Arguments = map[string]any{"name": "a", "dateTime": "b", "reason": "c"}

	res, err := failing.handleCall(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.IsError)

	m := NewToolManager()
	m.RegisterTool(NewScheduleTool(&mockScheduler{}))
	m.RegisterTool(NewResolveDateTool(dates.NewResolver(time.UTC)))

	res, err = m.handleCall(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.IsError)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	require.Contains(t, text.Text, "Meeting booked")

	req.Params.Name = "home_assistant"
	_, err = m.handleCall(context.Background(), req)
	require.Error(t, err)
}
