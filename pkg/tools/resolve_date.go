package tools

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/comigor/nazborg-go/internal/dates"
)

// ResolveDateTool turns a date expression into an RFC 3339 timestamp in the
// scheduling timezone.
type ResolveDateTool struct {
	Resolver *dates.Resolver
	Now      func() time.Time
}

func NewResolveDateTool(r *dates.Resolver) *ResolveDateTool {
	return &ResolveDateTool{Resolver: r, Now: time.Now}
}

func (t *ResolveDateTool) Name() string { return "resolve_date" }

func (t *ResolveDateTool) Description() string {
	return "Resolves a natural language or absolute date expression to an RFC 3339 timestamp."
}

func (t *ResolveDateTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(t.Description()),
		mcp.WithString("text", mcp.Required(), mcp.Description("Date expression, e.g. \"tomorrow at 10am\"")),
	)
}

func (t *ResolveDateTool) Run(ctx context.Context, args map[string]any) (string, error) {
	text := stringArg(args, "text")
	if text == "" {
		return "", errors.New("text is required")
	}
	ts, ok := t.Resolver.Resolve(text, t.Now())
	if !ok {
		return "", errors.New("could not understand the date expression")
	}
	return ts.Format(time.RFC3339), nil
}
