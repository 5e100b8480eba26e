package tasks_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/taskpulse/internal/server"
	"github.com/teemow/taskpulse/internal/session"
	"github.com/teemow/taskpulse/internal/tools/common"
)

func registerSessionTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	statusTool := mcp.NewTool("session_status",
		mcp.WithDescription("Show the signed-in user and the state of the stored session"),
	)
	addTool(s, sc, statusTool, handleSessionStatus(sc))
}

type sessionStatus struct {
	State    string `json:"state"`
	Username string `json:"username,omitempty"`
	Hint     string `json:"hint,omitempty"`
}

func handleSessionStatus(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		state, err := sc.Sessions().State(ctx)
		if err != nil {
			return common.ErrorResult("read session", err), nil
		}

		out := sessionStatus{State: state.String()}
		if sc.Auth() != nil {
			user, err := sc.Auth().CurrentUser(ctx)
			if err != nil {
				return common.ErrorResult("read session", err), nil
			}
			if user != nil {
				out.Username = user.Username
			}
		}
		if out.Username == "" && state != session.StateValid {
			out.Hint = "Run `taskpulse login` to sign in."
		}
		return common.JSONResult(out)
	}
}
