package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool is the interface for all tools
type Tool interface {
	Name() string
	Description() string
	// Definition is the MCP schema advertised to clients.
	Definition() mcp.Tool
	Run(ctx context.Context, args map[string]any) (string, error)
}

// stringArg returns args[key] when it is a string, trimmed.
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}
