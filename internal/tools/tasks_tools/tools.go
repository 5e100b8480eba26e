package tasks_tools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/taskpulse/internal/server"
	"github.com/teemow/taskpulse/internal/tasks"
	"github.com/teemow/taskpulse/internal/tools/common"
)

// RegisterTasksTools registers all task, analytics and session tools with
// the MCP server. Write tools are skipped in read-only mode.
func RegisterTasksTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	registerTaskTools(s, sc, readOnly)
	registerAnalyticsTools(s, sc)
	registerSessionTools(s, sc)
	return nil
}

func addTool(s *mcpserver.MCPServer, sc *server.ServerContext, tool mcp.Tool, handler common.ToolHandler) {
	s.AddTool(tool, mcpserver.ToolHandlerFunc(common.InstrumentedToolHandler(tool.Name, sc, handler)))
}

// stringArg returns a trimmed string argument and whether it was present.
func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// intArg returns an integer argument, or def when absent.
func intArg(args map[string]any, key string, def int) (int, error) {
	switch v := args[key].(type) {
	case nil:
		return def, nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}

// boolArg returns a boolean argument, false when absent.
func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

// dateArg parses a date or timestamp argument. Empty means absent.
func dateArg(args map[string]any, key string) (*tasks.Timestamp, error) {
	s, ok := stringArg(args, key)
	if !ok || s == "" {
		return nil, nil
	}
	ts, err := tasks.ParseTimestamp(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &ts, nil
}
